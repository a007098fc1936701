package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cliffyan/gd-images/internal/config"
)

// Manager 负责单次查询：选择提供者、限定超时、把失败转换为空结果
type Manager struct {
	provider Provider
	timeout  time.Duration
	browser  *Browser
	logger   *zap.Logger
}

// NewManager 根据配置创建管理器
func NewManager(cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		timeout: cfg.Search.Timeout,
		logger:  logger,
	}

	proxyURL := cfg.ProxyURL()

	switch cfg.Search.Provider {
	case config.ProviderBing:
		m.provider = NewBingEngine(BingOptions{
			BaseURL:   cfg.Search.Endpoint,
			Market:    cfg.Search.Market,
			UserAgent: cfg.Search.UserAgent,
			ProxyURL:  proxyURL,
			Timeout:   cfg.Search.Timeout,
		}, logger)
	case config.ProviderBingBrowser:
		m.browser = NewBrowser(proxyURL, cfg.Browser.Headless, cfg.Browser.ExecPath, cfg.Search.UserAgent, logger)
		m.provider = NewBrowserBingEngine(m.browser, cfg.Search.Endpoint, cfg.Search.Market, logger)
	case config.ProviderGoogle:
		if err := cfg.RequireCredentials(); err != nil {
			return nil, err
		}
		m.provider = NewGoogleEngine(GoogleOptions{
			Endpoint: cfg.Google.Endpoint,
			APIKey:   cfg.Google.APIKey,
			EngineID: cfg.Google.EngineID,
			Language: cfg.Google.Language,
			Country:  cfg.Google.Country,
			Region:   cfg.Google.Region,
			ProxyURL: proxyURL,
			Timeout:  cfg.Search.Timeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Search.Provider)
	}

	logger.Debug("📝 Provider selected", zap.String("provider", m.provider.Name()), zap.Duration("timeout", m.timeout))
	return m, nil
}

// NewManagerWithProvider 使用指定的提供者创建管理器
func NewManagerWithProvider(p Provider, timeout time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		provider: p,
		timeout:  timeout,
		logger:   logger,
	}
}

// ProviderName 返回当前提供者名称
func (m *Manager) ProviderName() string {
	return m.provider.Name()
}

// Lookup 执行一次查询
// 任何上游错误（网络、状态码、解析、超时）都会记录日志并返回空结果，调用方总能输出片段。
func (m *Manager) Lookup(ctx context.Context, term string, limit int) []ImageResult {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	results, err := m.provider.Search(ctx, term, limit)
	if err != nil {
		fields := []zap.Field{
			zap.String("provider", m.provider.Name()),
			zap.String("term", term),
			zap.Error(err),
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			fields = append(fields, zap.Duration("timeout", m.timeout))
			m.logger.Error("❌ Image search timed out", fields...)
		} else {
			m.logger.Error("❌ Error fetching images", fields...)
		}
		return []ImageResult{}
	}

	return truncate(results, limit)
}

// Close 释放提供者持有的资源（浏览器）
func (m *Manager) Close() {
	if m.browser != nil {
		m.browser.Close()
	}
}
