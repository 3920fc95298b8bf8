package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"liuproxy_pool/internal/shared/logger"
	"liuproxy_pool/internal/shared/types"
)

const shutdownGrace = 5 * time.Second

// --- DIAGNOSTIC HELPER: A listener that logs accepted connections ---
type loggingListener struct {
	net.Listener
}

func (l loggingListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err == nil {
		logger.Debug().Msgf(" [WebServer DIAGNOSTIC] Connection accepted from: %s ", conn.RemoteAddr())
	}
	return conn, err
}

// basicAuthMiddleware 在配置了 user 和 password 时强制 HTTP Basic Authentication。
func basicAuthMiddleware(next http.Handler, user, pass string) http.Handler {
	// 如果用户名或密码未设置，则不启用认证，直接返回原始处理器
	if user == "" || pass == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Unauthorized.\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter builds the query API routes.
func NewRouter(ctx context.Context, cfg types.WebConf, controller PoolController, hub *Hub) http.Handler {
	handler := NewHandler(controller)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", handler.HandleStatus)
	mux.HandleFunc("GET /proxies", handler.HandleProxies)
	mux.HandleFunc("GET /proxies/random", handler.HandleRandomProxy)
	mux.Handle("POST /proxies/{candidate}/delete",
		basicAuthMiddleware(http.HandlerFunc(handler.HandleDeleteProxy), cfg.User, cfg.Password))

	mux.Handle("GET /metrics", promhttp.Handler())

	if hub != nil {
		mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
			ServeWs(ctx, hub, w, r)
		})
	}
	return mux
}

// StartServer 启动查询 API，ctx 结束时优雅关闭。端口为 0 时不启动。
func StartServer(ctx context.Context, wg *sync.WaitGroup, cfg types.WebConf, controller PoolController, hub *Hub) error {
	l := logger.WithComponent("Web")
	if cfg.Port <= 0 {
		l.Info().Msg("Query API is disabled (port is 0 or not set).")
		return nil
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           NewRouter(ctx, cfg, controller, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}
	l.Info().Msgf("Server running on http://%s", listener.Addr())

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := srv.Serve(loggingListener{Listener: listener}); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error().Err(err).Msg("Web server error.")
		}
		l.Info().Msg("Web server stopped.")
	}()
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.Warn().Err(err).Msg("Web server shutdown did not complete cleanly.")
		}
	}()
	return nil
}
