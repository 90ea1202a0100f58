package http

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"fridge/frontend/additem"
	"fridge/frontend/inventory"
	"fridge/infrastructure/cache"
	"fridge/infrastructure/sqlite"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed assets/*
var assets embed.FS

var ShutdownTimeout = 2 * time.Second

// Server bundles dependencies and route wiring.
type Server struct {
	Addr   string
	ln     net.Listener
	server *http.Server
	router *chi.Mux

	DB             *sqlite.DB
	Households     *cache.HouseholdCache
	Store          *inventory.Store
	Registry       *additem.Registry
	UploadMaxBytes int64
}

// NewServer creates a new http server.
func NewServer(addr string, db *sqlite.DB, households *cache.HouseholdCache, store *inventory.Store, registry *additem.Registry, uploadMaxBytes int64) *Server {
	s := &Server{
		Addr:           addr,
		router:         chi.NewRouter(),
		DB:             db,
		Households:     households,
		Store:          store,
		Registry:       registry,
		UploadMaxBytes: uploadMaxBytes,
		server: &http.Server{
			MaxHeaderBytes:    1 << 20,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	// Secure headers first. Camera access is limited to this origin.
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Permissions-Policy", "camera=(self)")
			next.ServeHTTP(w, r)
		})
	})

	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Compress(5, "text/html", "text/css", "application/json"))
	s.router.Use(s.CSRFMiddleware)

	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/add", http.StatusSeeOther)
	})

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if s.DB != nil && s.DB.ReadSQL != nil {
			if err := s.DB.ReadSQL.PingContext(r.Context()); err != nil {
				slog.Error("health check db ping failed", slog.Any("err", err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("db unavailable"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Serve assets from embedded FS.
	var assetsFS fs.FS = assets
	if sub, err := fs.Sub(assets, "assets"); err == nil {
		assetsFS = sub
	} else {
		slog.Error("assets subfs init failed; serving fallback fs", slog.Any("err", err))
	}
	s.router.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.FS(assetsFS))))

	s.router.Group(func(r chi.Router) {
		r.Use(s.HouseholdMiddleware)
		s.RegisterAddItemRoutes(r)
		s.RegisterInventoryRoutes(r)
	})

	s.server.Handler = s.router
	return s
}

// Handler exposes the router for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	var err error
	if s.ln, err = net.Listen("tcp", s.Addr); err != nil {
		return err
	}
	go func() {
		if err := s.server.Serve(s.ln); err != nil && err != http.ErrServerClosed {
			slog.Error("http server stopped", slog.Any("err", err))
		}
	}()
	slog.Info("http server listening", slog.String("addr", s.ln.Addr().String()))
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	if s.ln == nil {
		return fmt.Errorf("HTTP server has not been started or is already stopped")
	}
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %v", err)
	}
	s.ln = nil
	return nil
}

// SweepIdleHouseholds drops the in-memory state of households not seen for ttl.
func (s *Server) SweepIdleHouseholds(ttl time.Duration) {
	var workflows, households int
	if s.Registry != nil {
		workflows = s.Registry.EvictIdle(ttl)
	}
	if s.Households != nil {
		households = s.Households.EvictIdle(ttl)
	}
	if workflows > 0 || households > 0 {
		slog.Info("idle households swept", slog.Int("workflows", workflows), slog.Int("cached_households", households))
	}
}

// RunIdleSweeper sweeps every interval until ctx is done.
func (s *Server) RunIdleSweeper(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepIdleHouseholds(ttl)
		}
	}
}
