package engine

import (
	"context"
	"fmt"
)

// ImageResult 图片搜索结果
type ImageResult struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`

	// Source 图片所在的网页，提供者拿不到时为空
	Source string `json:"source,omitempty"`
}

// Provider 图片搜索提供者接口
type Provider interface {
	// Name 返回提供者名称
	Name() string
	// Search 执行搜索，返回按提供者排序的结果，最多 limit 条
	Search(ctx context.Context, term string, limit int) ([]ImageResult, error)
}

// StatusError 上游返回了非 2xx 状态码
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status code: %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status code: %d, body: %s", e.Provider, e.StatusCode, e.Body)
}

func truncate(results []ImageResult, limit int) []ImageResult {
	if limit < 0 {
		limit = 0
	}
	if len(results) > limit {
		return results[:limit]
	}
	return results
}

func snippet(body []byte) string {
	return string(body[:min(len(body), 200)])
}
