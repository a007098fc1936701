package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Custom Search API 单次最多返回 10 条
const googleMaxNum = 10

// GoogleEngine Google Custom Search 图片搜索
type GoogleEngine struct {
	client *http.Client
	opts   GoogleOptions
	logger *zap.Logger
}

// GoogleOptions Google 引擎参数
type GoogleOptions struct {
	Endpoint string
	APIKey   string
	EngineID string
	Language string
	Country  string
	Region   string
	ProxyURL string
	Timeout  time.Duration
}

// googleResponse Custom Search API 响应
type googleResponse struct {
	Items []struct {
		Link  string `json:"link"`
		Title string `json:"title"`
		Image struct {
			ContextLink string `json:"contextLink"`
		} `json:"image"`
	} `json:"items"`
}

// NewGoogleEngine 创建 Google 图片搜索引擎实例
func NewGoogleEngine(opts GoogleOptions, logger *zap.Logger) *GoogleEngine {
	return &GoogleEngine{
		client: newHTTPClient(opts.ProxyURL, opts.Timeout),
		opts:   opts,
		logger: logger.With(zap.String("provider", "google")),
	}
}

// Name 返回引擎名称
func (e *GoogleEngine) Name() string {
	return "google"
}

// Search 执行 Google 图片搜索
func (e *GoogleEngine) Search(ctx context.Context, term string, limit int) ([]ImageResult, error) {
	if limit <= 0 {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.requestURL(term, limit), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Provider: e.Name(), StatusCode: resp.StatusCode, Body: snippet(body)}
	}

	var data googleResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("parse response failed: %w", err)
	}

	results := make([]ImageResult, 0, len(data.Items))
	for _, item := range data.Items {
		if item.Link == "" {
			continue
		}
		results = append(results, ImageResult{URL: item.Link, Title: item.Title, Source: item.Image.ContextLink})
	}

	e.logger.Info("🔍 Google image search done", zap.String("term", term), zap.Int("results", len(results)))
	return truncate(results, limit), nil
}

// requestURL 构建 API 请求地址
func (e *GoogleEngine) requestURL(term string, limit int) string {
	num := min(limit, googleMaxNum)

	params := url.Values{}
	params.Set("key", e.opts.APIKey)
	params.Set("cx", e.opts.EngineID)
	params.Set("q", term)
	params.Set("searchType", "image")
	params.Set("num", strconv.Itoa(num))
	if e.opts.Language != "" {
		params.Set("lr", e.opts.Language)
	}
	if e.opts.Country != "" {
		params.Set("gl", e.opts.Country)
	}
	if e.opts.Region != "" {
		params.Set("cr", e.opts.Region)
	}
	return e.opts.Endpoint + "?" + params.Encode()
}
