package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/cliffyan/gd-images/internal/config"
	"github.com/cliffyan/gd-images/internal/engine"
	"github.com/cliffyan/gd-images/internal/fragment"
)

// Version 服务版本
const Version = "1.0.0"

// maxItemsLimit ?max= 参数的上限
const maxItemsLimit = 50

// Server GoldenDict「网站」词典源使用的 HTTP 服务器
type Server struct {
	config  *config.Config
	manager *engine.Manager
	builder *fragment.Builder
	logger  *zap.Logger
}

// New 创建新的服务器实例
func New(cfg *config.Config, m *engine.Manager, b *fragment.Builder, logger *zap.Logger) *Server {
	return &Server{
		config:  cfg,
		manager: m,
		builder: b,
		logger:  logger,
	}
}

// Handler 返回路由，按配置加上 CORS 中间件
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/images", s.handleImages)
	mux.HandleFunc("/health", s.handleHealth)

	var handler http.Handler = mux
	if s.config.Server.CORS.Enabled {
		c := cors.New(cors.Options{
			AllowedOrigins: []string{s.config.Server.CORS.Origin},
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			ExposedHeaders: []string{"X-Request-Id"},
		})
		handler = c.Handler(mux)
	}
	return handler
}

// Start 启动 HTTP 服务器，ctx 取消后优雅关闭
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Server.Host, strconv.Itoa(s.config.Server.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("🚀 Starting HTTP server", zap.String("addr", addr))
		s.logger.Info("📡 GoldenDict website URL: http://" + addr + "/images?word=%GDWORD%")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("🛑 Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// handleImages 查询图片并返回 HTML 片段
func (s *Server) handleImages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := uuid.New().String()
	w.Header().Set("X-Request-Id", requestID)

	word := r.URL.Query().Get("word")
	if word == "" {
		http.Error(w, "Missing word parameter", http.StatusBadRequest)
		return
	}

	maxItems := s.builder.Template().MaxItems
	if v := r.URL.Query().Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, fmt.Sprintf("Invalid max parameter: %q", v), http.StatusBadRequest)
			return
		}
		maxItems = min(n, maxItemsLimit)
	}

	s.logger.Debug("📥 Image request", zap.String("request_id", requestID), zap.String("word", word), zap.Int("max", maxItems))

	results := s.manager.Lookup(r.Context(), word, maxItems)
	out := s.builder.Build(word, results, maxItems)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write([]byte(out)); err != nil {
		s.logger.Warn("❌ Failed to write response", zap.String("request_id", requestID), zap.Error(err))
	}
}

// handleHealth 健康检查端点
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   "ok",
		"service":  "gd-images",
		"version":  Version,
		"provider": s.manager.ProviderName(),
	})
	if err != nil {
		s.logger.Warn("❌ Failed to write health response", zap.Error(err))
	}
}
