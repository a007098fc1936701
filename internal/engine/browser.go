package engine

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Browser 无头浏览器，首次使用时启动
type Browser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	cancelFunc  context.CancelFunc
	mu          sync.Mutex
	initialized bool
	proxyURL    string
	headless    bool
	execPath    string
	userAgent   string
	logger      *zap.Logger
}

// NewBrowser 创建浏览器（不立即启动）
func NewBrowser(proxyURL string, headless bool, execPath, userAgent string, logger *zap.Logger) *Browser {
	return &Browser{
		proxyURL:  proxyURL,
		headless:  headless,
		execPath:  execPath,
		userAgent: userAgent,
		logger:    logger,
	}
}

// findChromePath 查找 Chrome 可执行文件路径
func findChromePath() string {
	var paths []string

	switch runtime.GOOS {
	case "darwin":
		paths = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "linux":
		paths = []string{
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
		}
	case "windows":
		paths = []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
			os.Getenv("LOCALAPPDATA") + `\Google\Chrome\Application\chrome.exe`,
		}
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// start 启动浏览器，调用方持有锁
// 已启动的浏览器如果崩溃或断开连接，先释放再重新启动。
func (b *Browser) start() error {
	if b.initialized {
		if b.alive() {
			return nil
		}
		b.logger.Warn("⚠️ Browser connection lost, restarting")
		b.release()
	}

	chromePath := b.execPath
	if chromePath == "" {
		chromePath = findChromePath()
	} else if _, err := os.Stat(chromePath); err != nil {
		return fmt.Errorf("browser.exec_path %s: %w", chromePath, err)
	}
	if chromePath == "" {
		return fmt.Errorf("Chrome/Chromium not found, install it or set browser.exec_path")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(chromePath),

		chromedp.Flag("headless", b.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),

		// 模拟真实浏览器
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),

		chromedp.Flag("lang", "ja-JP"),
		chromedp.WindowSize(1280, 900),
		chromedp.UserAgent(b.userAgent),
	)

	if b.proxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(b.proxyURL))
	}

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	b.browserCtx, b.cancelFunc = chromedp.NewContext(b.allocCtx,
		chromedp.WithLogf(b.logger.Sugar().Debugf),
	)

	if err := chromedp.Run(b.browserCtx); err != nil {
		b.cancelFunc()
		b.allocCancel()
		return fmt.Errorf("failed to start browser: %w", err)
	}

	b.initialized = true
	b.logger.Info("✅ Browser started", zap.Bool("headless", b.headless), zap.String("path", chromePath))
	return nil
}

// alive 检查浏览器上下文和 DevTools 连接是否仍然可用，调用方持有锁
func (b *Browser) alive() bool {
	if b.browserCtx == nil || b.browserCtx.Err() != nil {
		return false
	}
	c := chromedp.FromContext(b.browserCtx)
	if c == nil || c.Browser == nil {
		return false
	}
	select {
	case <-c.Browser.LostConnection:
		return false
	default:
		return true
	}
}

// release 释放浏览器资源，调用方持有锁
func (b *Browser) release() {
	if b.cancelFunc != nil {
		b.cancelFunc()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	b.browserCtx, b.cancelFunc = nil, nil
	b.allocCtx, b.allocCancel = nil, nil
	b.initialized = false
}

// NewTab 创建新的标签页上下文
// 标签页随 ctx 取消而结束，ctx 的超时同样作用于页面操作。
func (b *Browser) NewTab(ctx context.Context) (context.Context, context.CancelFunc, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.start(); err != nil {
		return nil, nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)

	// 把调用方的取消和超时传给标签页
	stop := context.AfterFunc(ctx, tabCancel)
	if deadline, ok := ctx.Deadline(); ok {
		var timeoutCancel context.CancelFunc
		tabCtx, timeoutCancel = context.WithDeadline(tabCtx, deadline)
		return tabCtx, func() {
			stop()
			timeoutCancel()
			tabCancel()
		}, nil
	}

	return tabCtx, func() {
		stop()
		tabCancel()
	}, nil
}

// Close 关闭浏览器
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return
	}
	b.release()
	b.logger.Debug("🔴 Browser closed")
}
