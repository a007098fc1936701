package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// BrowserBingEngine 使用无头浏览器的 Bing 图片搜索
type BrowserBingEngine struct {
	browser *Browser
	baseURL string
	market  string
	logger  *zap.Logger
}

// NewBrowserBingEngine 创建浏览器版 Bing 图片搜索引擎
func NewBrowserBingEngine(browser *Browser, baseURL, market string, logger *zap.Logger) *BrowserBingEngine {
	if baseURL == "" {
		baseURL = defaultBingURL
	}
	return &BrowserBingEngine{
		browser: browser,
		baseURL: baseURL,
		market:  market,
		logger:  logger.With(zap.String("provider", "bing_browser")),
	}
}

// Name 返回引擎名称
func (e *BrowserBingEngine) Name() string {
	return "bing_browser"
}

// Search 使用浏览器执行 Bing 图片搜索
func (e *BrowserBingEngine) Search(ctx context.Context, term string, limit int) ([]ImageResult, error) {
	tabCtx, cancel, err := e.browser.NewTab(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}
	defer cancel()

	searchURL := bingSearchURL(e.baseURL, term, e.market)
	e.logger.Debug("🌐 Navigating", zap.String("url", searchURL))

	var html string
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(searchURL),
		chromedp.WaitReady("img.mimg", chromedp.ByQuery),

		// 滚动一次，触发懒加载缩略图
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight / 2)`, nil),
		chromedp.Sleep(500*time.Millisecond),

		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, fmt.Errorf("browser navigation failed: %w", err)
	}

	e.logger.Debug("🔍 Got page HTML", zap.Int("bytes", len(html)))

	results, err := parseBingImages(strings.NewReader(html), limit)
	if err != nil {
		return nil, err
	}

	e.logger.Info("🔍 Browser Bing image search done", zap.String("term", term), zap.Int("results", len(results)))
	return results, nil
}
