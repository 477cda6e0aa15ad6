package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type staticKey string

func (k staticKey) Value(context.Context) (string, error) { return string(k), nil }

type failingKey struct{}

func (failingKey) Value(context.Context) (string, error) { return "", errors.New("ssm unavailable") }

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(srv.URL, staticKey("anon-key"), WithHTTPClient(&http.Client{Timeout: 2 * time.Second}))
	require.NoError(t, err)
	return c
}

func TestNewClient_Validates(t *testing.T) {
	_, err := NewClient(" ", staticKey("k"))
	require.ErrorContains(t, err, "base URL")

	_, err = NewClient("https://db.example", nil)
	require.ErrorContains(t, err, "key source")

	c, err := NewClient("https://db.example/", staticKey("k"), WithFunction("lookup_cert"))
	require.NoError(t, err)
	require.Equal(t, "https://db.example", c.baseURL)
	require.Equal(t, "lookup_cert", c.function)
}

func TestRPCURL(t *testing.T) {
	require.Equal(t, "https://db.example/rest/v1/rpc/search_certificate", rpcURL("https://db.example/", "search_certificate"))
}

func TestSearch_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/rest/v1/rpc/search_certificate", r.URL.Path)
		require.Equal(t, "anon-key", r.Header.Get("apikey"))
		require.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]string
		require.NoError(t, json.Unmarshal(raw, &body))
		require.Equal(t, map[string]string{"enrollment_no": "123456", "pass_key": "secret"}, body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"Asha Rao","course":"Data Analytics","status":"issued","file_url":"https://files.example/c.pdf","pass_key":"secret","year":2025}]`))
	}))
	defer srv.Close()

	docs, err := newTestClient(t, srv).Search(context.Background(), "123456", "secret")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "Asha Rao", docs[0].Name)
	require.Equal(t, "Data Analytics", docs[0].Course)
	require.Equal(t, "issued", docs[0].Status)
	require.Equal(t, "https://files.example/c.pdf", docs[0].FileURL)
	require.Equal(t, float64(2025), docs[0].Fields["year"])
	require.NotContains(t, docs[0].Fields, "pass_key")
}

func TestSearch_EmptyArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	docs, err := newTestClient(t, srv).Search(context.Background(), "123456", "secret")
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestSearch_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"db down"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Search(context.Background(), "123456", "secret")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusServiceUnavailable, statusErr.HTTPStatusCode())
	require.Contains(t, err.Error(), "db down")
}

func TestSearch_MalformedBodies(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "not json", body: `not-json`, want: "invalid JSON"},
		{name: "object", body: `{"name":"x"}`, want: "expected a JSON array"},
		{name: "scalar record", body: `[1]`, want: "record 0 is not an object"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv).Search(context.Background(), "123456", "secret")
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestSearch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Search(ctx, "123456", "secret")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSearch_KeyError(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:1", failingKey{})
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "123456", "secret")
	require.ErrorContains(t, err, "resolve key")
}
