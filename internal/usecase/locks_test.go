package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionLocks_SerializesSameKey(t *testing.T) {
	l := newSessionLocks()
	unlock := l.Lock("a")

	acquired := make(chan struct{})
	go func() {
		release := l.Lock("a")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held session lock")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	<-acquired
}

func TestSessionLocks_IndependentKeys(t *testing.T) {
	l := newSessionLocks()
	unlockA := l.Lock("a")
	unlockB := l.Lock("b")
	require.Equal(t, 2, l.size())

	unlockA()
	unlockB()
	require.Zero(t, l.size())
}
