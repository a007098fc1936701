package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const defaultBingURL = "https://www.bing.com/images/search"

// BingEngine Bing 图片搜索（抓取结果页）
type BingEngine struct {
	client    *http.Client
	baseURL   string
	market    string
	userAgent string
	logger    *zap.Logger
}

// BingOptions Bing 引擎参数
type BingOptions struct {
	BaseURL   string
	Market    string
	UserAgent string
	ProxyURL  string
	Timeout   time.Duration
}

// newHTTPClient 创建带 cookie 和可选代理的 HTTP 客户端
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	jar, _ := cookiejar.New(nil)

	transport := &http.Transport{}
	if proxyURL != "" {
		if proxy, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxy)
		}
	}

	return &http.Client{
		Timeout:   timeout,
		Jar:       jar,
		Transport: transport,
	}
}

// NewBingEngine 创建 Bing 图片搜索引擎实例
func NewBingEngine(opts BingOptions, logger *zap.Logger) *BingEngine {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBingURL
	}
	return &BingEngine{
		client:    newHTTPClient(opts.ProxyURL, opts.Timeout),
		baseURL:   opts.BaseURL,
		market:    opts.Market,
		userAgent: opts.UserAgent,
		logger:    logger.With(zap.String("provider", "bing")),
	}
}

// Name 返回引擎名称
func (e *BingEngine) Name() string {
	return "bing"
}

// Search 执行 Bing 图片搜索
func (e *BingEngine) Search(ctx context.Context, term string, limit int) ([]ImageResult, error) {
	searchURL := bingSearchURL(e.baseURL, term, e.market)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	e.setHeaders(req)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Provider: e.Name(), StatusCode: resp.StatusCode, Body: snippet(body)}
	}

	e.logger.Debug("🔍 Bing response received", zap.Int("bytes", len(body)))

	results, err := parseBingImages(strings.NewReader(string(body)), limit)
	if err != nil {
		return nil, err
	}

	e.logger.Info("🔍 Bing image search done", zap.String("term", term), zap.Int("results", len(results)))
	return results, nil
}

// setHeaders 设置请求头
func (e *BingEngine) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja,en-US;q=0.9,en;q=0.8")
	req.Header.Set("Cache-Control", "no-cache")
}

// bingSearchURL 构建 Bing 图片搜索地址
func bingSearchURL(baseURL, term, market string) string {
	params := url.Values{}
	params.Set("q", term)
	if market != "" {
		params.Set("mkt", market)
	}
	return baseURL + "?" + params.Encode()
}

// parseBingImages 从结果页中提取 img.mimg 缩略图
// src 缺失时尝试懒加载属性 data-src，两者都没有的条目直接跳过。
func parseBingImages(r io.Reader, limit int) ([]ImageResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML failed: %w", err)
	}

	var results []ImageResult
	doc.Find("img.mimg").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if len(results) >= limit {
			return false
		}

		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" {
			src = strings.TrimSpace(s.AttrOr("data-src", ""))
		}
		if src == "" {
			return true
		}

		results = append(results, ImageResult{
			URL:    src,
			Title:  strings.TrimSpace(s.AttrOr("alt", "")),
			Source: bingSourcePage(s),
		})
		return true
	})

	return results, nil
}

// bingSourcePage 从外层 a.iusc 的 m 属性（JSON）中读取原网页地址
func bingSourcePage(img *goquery.Selection) string {
	m, ok := img.Closest("a.iusc").Attr("m")
	if !ok {
		return ""
	}
	var meta struct {
		PageURL string `json:"purl"`
	}
	if err := json.Unmarshal([]byte(m), &meta); err != nil {
		return ""
	}
	return meta.PageURL
}
