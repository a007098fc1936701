package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const googleBody = `{
  "kind": "customsearch#search",
  "items": [
    {"link": "https://example.jp/sakura.jpg", "title": "桜 <満開>", "image": {"contextLink": "https://example.jp/hanami/"}},
    {"link": "", "title": "broken"},
    {"link": "https://example.jp/hanami.png"},
    {"link": "https://example.jp/third.png", "title": "third"}
  ]
}`

func newGoogleEngine(endpoint string) *GoogleEngine {
	return NewGoogleEngine(GoogleOptions{
		Endpoint: endpoint,
		APIKey:   "test-key",
		EngineID: "test-cx",
		Language: "lang_ja",
		Country:  "jp",
		Region:   "countryJP",
		Timeout:  time.Second,
	}, zap.NewNop())
}

func TestGoogleSearch(t *testing.T) {
	var query url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(googleBody))
	}))
	defer srv.Close()

	results, err := newGoogleEngine(srv.URL).Search(context.Background(), "桜", 10)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, ImageResult{URL: "https://example.jp/sakura.jpg", Title: "桜 <満開>", Source: "https://example.jp/hanami/"}, results[0])
	assert.Equal(t, ImageResult{URL: "https://example.jp/hanami.png"}, results[1])

	assert.Equal(t, "test-key", query.Get("key"))
	assert.Equal(t, "test-cx", query.Get("cx"))
	assert.Equal(t, "桜", query.Get("q"))
	assert.Equal(t, "image", query.Get("searchType"))
	assert.Equal(t, "10", query.Get("num"))
	assert.Equal(t, "lang_ja", query.Get("lr"))
	assert.Equal(t, "jp", query.Get("gl"))
	assert.Equal(t, "countryJP", query.Get("cr"))
}

func TestGoogleSearchCapsNum(t *testing.T) {
	e := newGoogleEngine("https://api.example/v1")

	u, err := url.Parse(e.requestURL("x", 25))
	require.NoError(t, err)
	assert.Equal(t, "10", u.Query().Get("num"))

	u, err = url.Parse(e.requestURL("x", 5))
	require.NoError(t, err)
	assert.Equal(t, "5", u.Query().Get("num"))
}

func TestGoogleSearchTruncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(googleBody))
	}))
	defer srv.Close()

	results, err := newGoogleEngine(srv.URL).Search(context.Background(), "桜", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestGoogleSearchNoItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"kind": "customsearch#search"}`))
	}))
	defer srv.Close()

	results, err := newGoogleEngine(srv.URL).Search(context.Background(), "qwxz", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGoogleSearchErrors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error": {"code": 403}}`, http.StatusForbidden)
		}))
		defer srv.Close()

		_, err := newGoogleEngine(srv.URL).Search(context.Background(), "桜", 10)
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
		assert.Equal(t, "google", statusErr.Provider)
	})

	t.Run("malformed json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"items": [`))
		}))
		defer srv.Close()

		_, err := newGoogleEngine(srv.URL).Search(context.Background(), "桜", 10)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse response failed")
	})

	t.Run("network", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		endpoint := srv.URL
		srv.Close()

		_, err := newGoogleEngine(endpoint).Search(context.Background(), "桜", 10)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "request failed")
	})
}
