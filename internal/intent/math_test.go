package intent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	cases := []struct {
		expr string
		want float64
	}{
		{"2+2", 4.0},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10/4", 2.5},
		{"-3 + 5", 2},
		{"1.5 * 2", 3},
		{"8 - 2 - 1", 5},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := Evaluate(tc.expr)
			require.NoError(t, err)
			require.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	_, err := Evaluate("5/0")
	require.ErrorIs(t, err, ErrDivisionByZero)

	_, err = Evaluate("2 +")
	require.Error(t, err)

	_, err = Evaluate("(1+2")
	require.ErrorContains(t, err, "parenthesis")

	_, err = Evaluate("hello")
	require.ErrorContains(t, err, "not a simple math expression")
}

func TestEvaluate_DeepNesting(t *testing.T) {
	_, err := Evaluate(strings.Repeat("(", 4<<20) + "1+1")
	require.ErrorContains(t, err, "nested deeper")

	_, err = Evaluate(strings.Repeat("-", 1000) + "1+1")
	require.ErrorContains(t, err, "nested deeper")

	v, err := Evaluate(strings.Repeat("(", 20) + "1+1" + strings.Repeat(")", 20))
	require.NoError(t, err)
	require.Equal(t, 2.0, v)
}
