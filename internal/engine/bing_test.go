package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const bingPage = `<html><body>
<div class="imgpt"><a class="iusc"><img class="mimg" src="https://tse1.mm.bing.net/th?id=1" alt="犬の写真"></a></div>
<div class="imgpt"><a class="iusc"><img class="mimg vimgld" data-src="https://tse2.mm.bing.net/th?id=2"></a></div>
<div class="imgpt"><a class="iusc"><img class="mimg"></a></div>
<div class="imgpt"><img class="other" src="https://example.com/logo.png"></div>
<div class="imgpt"><a class="iusc"><img class="mimg" src="data:image/gif;base64,R0lGODlhAQABAAAAACw="></a></div>
</body></html>`

type capturedRequest struct {
	URL    *url.URL
	Header http.Header
}

func newBingTestServer(t *testing.T, status int, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	got := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.URL = r.URL
		got.Header = r.Header.Clone()
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestBingSearch(t *testing.T) {
	srv, got := newBingTestServer(t, http.StatusOK, bingPage)

	e := NewBingEngine(BingOptions{
		BaseURL:   srv.URL + "/images/search",
		Market:    "ja-JP",
		UserAgent: "test-agent",
		Timeout:   time.Second,
	}, zap.NewNop())

	results, err := e.Search(context.Background(), "犬 & 猫", 10)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, ImageResult{URL: "https://tse1.mm.bing.net/th?id=1", Title: "犬の写真"}, results[0])
	assert.Equal(t, "https://tse2.mm.bing.net/th?id=2", results[1].URL)
	assert.Empty(t, results[1].Title)
	assert.True(t, strings.HasPrefix(results[2].URL, "data:image/gif"))

	assert.Equal(t, "/images/search", got.URL.Path)
	assert.Equal(t, "犬 & 猫", got.URL.Query().Get("q"))
	assert.Equal(t, "ja-JP", got.URL.Query().Get("mkt"))
	assert.Equal(t, "test-agent", got.Header.Get("User-Agent"))
}

func TestBingSearchLimit(t *testing.T) {
	srv, _ := newBingTestServer(t, http.StatusOK, bingPage)
	e := NewBingEngine(BingOptions{BaseURL: srv.URL, Timeout: time.Second}, zap.NewNop())

	results, err := e.Search(context.Background(), "dog", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://tse1.mm.bing.net/th?id=1", results[0].URL)

	results, err = e.Search(context.Background(), "dog", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBingSearchNoImages(t *testing.T) {
	srv, _ := newBingTestServer(t, http.StatusOK, `<html><body><p>no results</p></body></html>`)
	e := NewBingEngine(BingOptions{BaseURL: srv.URL, Timeout: time.Second}, zap.NewNop())

	results, err := e.Search(context.Background(), "zzzz", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBingSearchStatusError(t *testing.T) {
	srv, _ := newBingTestServer(t, http.StatusServiceUnavailable, "busy")
	e := NewBingEngine(BingOptions{BaseURL: srv.URL, Timeout: time.Second}, zap.NewNop())

	_, err := e.Search(context.Background(), "dog", 5)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, "busy", statusErr.Body)
}

func TestParseBingImagesSourcePage(t *testing.T) {
	page := `<html><body>
<a class="iusc" m='{"murl":"https://img.example/full.jpg","purl":"https://blog.example/inu"}'><img class="mimg" src="https://tse1.mm.bing.net/th?id=1"></a>
<a class="iusc" m='not json'><img class="mimg" src="https://tse1.mm.bing.net/th?id=2"></a>
<img class="mimg" src="https://tse1.mm.bing.net/th?id=3">
</body></html>`

	results, err := parseBingImages(strings.NewReader(page), 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "https://blog.example/inu", results[0].Source)
	assert.Empty(t, results[1].Source)
	assert.Empty(t, results[2].Source)
}

func TestBingSearchURL(t *testing.T) {
	assert.Equal(t, "https://www.bing.com/images/search?mkt=ja-JP&q=%E7%8C%AB",
		bingSearchURL(defaultBingURL, "猫", "ja-JP"))
	assert.Equal(t, "https://www.bing.com/images/search?q=a+b%22c",
		bingSearchURL(defaultBingURL, `a b"c`, ""))
}
