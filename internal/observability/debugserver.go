// Package observability hosts the optional pprof debug server. It is off by
// default and guarded against accidental public exposure: a non-loopback bind
// requires a token.
package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"strings"
	"sync"
	"time"

	"svitlobot/pkg/logx"
)

type Config struct {
	Enabled bool
	// Addr defaults to 127.0.0.1:6060.
	Addr string
	// Token, when set, is required as ?token=... or a Bearer header.
	Token string
}

// DebugServer serves net/http/pprof plus a /healthz liveness endpoint.
type DebugServer struct {
	cfg Config
	log logx.Logger

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

func NewDebugServer(cfg Config, log logx.Logger) *DebugServer {
	return &DebugServer{cfg: cfg, log: log.With(logx.String("comp", "debug"))}
}

// Start binds and serves in the background. Disabled config is a no-op.
func (d *DebugServer) Start() error {
	if !d.cfg.Enabled {
		return nil
	}

	addr := strings.TrimSpace(d.cfg.Addr)
	if addr == "" {
		addr = "127.0.0.1:6060"
	}
	if d.cfg.Token == "" && !isLoopback(addr) {
		return errors.New("debug server on a non-loopback addr requires a token")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/debug/pprof/", d.auth(pprof.Index))
	mux.HandleFunc("/debug/pprof/cmdline", d.auth(pprof.Cmdline))
	mux.HandleFunc("/debug/pprof/profile", d.auth(pprof.Profile))
	mux.HandleFunc("/debug/pprof/symbol", d.auth(pprof.Symbol))
	mux.HandleFunc("/debug/pprof/trace", d.auth(pprof.Trace))

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  90 * time.Second,
	}

	d.mu.Lock()
	d.srv = srv
	d.ln = ln
	d.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.log.Error("debug server exited", logx.Err(err))
		}
	}()
	d.log.Info("debug server started",
		logx.String("addr", ln.Addr().String()),
		logx.Bool("token_set", d.cfg.Token != ""),
	)
	return nil
}

func (d *DebugServer) Stop(ctx context.Context) {
	d.mu.Lock()
	srv := d.srv
	d.srv = nil
	d.ln = nil
	d.mu.Unlock()
	if srv == nil {
		return
	}
	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
	}
}

func (d *DebugServer) auth(h http.HandlerFunc) http.HandlerFunc {
	token := strings.TrimSpace(d.cfg.Token)
	if token == "" {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") == token {
			h(w, r)
			return
		}
		const prefix = "Bearer "
		if ah := r.Header.Get("Authorization"); strings.HasPrefix(ah, prefix) &&
			strings.TrimSpace(strings.TrimPrefix(ah, prefix)) == token {
			h(w, r)
			return
		}
		w.Header().Set("WWW-Authenticate", "Bearer")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
