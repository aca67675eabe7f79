package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yanizio/trackgate/internal/acl"
	"github.com/yanizio/trackgate/internal/admin"
	"github.com/yanizio/trackgate/internal/auth"
	"github.com/yanizio/trackgate/internal/config"
	"github.com/yanizio/trackgate/internal/disable"
	"github.com/yanizio/trackgate/internal/gate"
	"github.com/yanizio/trackgate/internal/middleware"
	"github.com/yanizio/trackgate/internal/requestinfo"
	"github.com/yanizio/trackgate/internal/server"
	"github.com/yanizio/trackgate/internal/site"
	"github.com/yanizio/trackgate/internal/tracking"
)

// recentEvents bounds the in-memory event sink.
const recentEvents = 1024

func newServeCmd() *cobra.Command {
	var install bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tracking endpoint and the admin API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), install)
		},
	}
	cmd.Flags().BoolVar(&install, "install", false, "Create the site_disable table before serving")
	return cmd
}

func runServe(ctx context.Context, install bool) error {
	cfg := config.Get()
	log := zap.S()

	if err := requestinfo.InitGeo(cfg.Geo.DBPath); err != nil {
		return fmt.Errorf("open geo db: %w", err)
	}
	defer requestinfo.CloseGeo()
	if err := requestinfo.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return err
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	store, sites := newStore(db, cfg)
	if install {
		if err := store.Install(ctx); err != nil {
			return err
		}
	}

	h, err := buildHandler(cfg, db, store, sites, tracking.NewMemoryRecorder(recentEvents))
	if err != nil {
		return err
	}

	log.Infow("trackgate online",
		"listen_addr", cfg.HTTP.ListenAddr,
		"cache", cfg.Cache.Enabled,
		"decoder", cfg.Gate.Decoder)
	return server.Run(ctx, server.New(cfg.HTTP.ListenAddr, h), nil)
}

// buildHandler wires every route.  The cache is only placed in front of the
// store when cache.enabled is set; otherwise the gate reads the store on
// every request.
func buildHandler(
	cfg *config.Config,
	db *sqlx.DB,
	store *disable.Store,
	sites *site.Repository,
	rec tracking.Recorder,
) (http.Handler, error) {
	var checker gate.Checker = store
	if cfg.Cache.Enabled {
		c := disable.NewCache(store)
		store.SetInvalidator(c)
		checker = c
	}

	dec, err := newDecoder(cfg.Gate)
	if err != nil {
		return nil, err
	}
	g := gate.New(checker, dec, gate.Policy{
		RejectUndecodable: cfg.Gate.RejectUndecodable,
		FailClosed:        cfg.Gate.FailClosed,
	})

	svc := admin.NewService(store, acl.NewControl(sites, cfg.Admin.Superusers))

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.With(gate.Middleware(g, cfg.Gate.Param), requestinfo.Enrich).
		Handle("/track", tracking.Handler(rec, cfg.Gate.Param))

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS))
		r.Use(middleware.Security)
		r.Use(auth.BearerTokens(cfg.Admin.Tokens))
		r.Use(acl.RequireUser)
		svc.Routes(r)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", healthz(db))
	return r, nil
}

func newDecoder(cfg config.Gate) (gate.Decoder, error) {
	if cfg.Decoder == "sqids" {
		d, err := gate.NewSqidsDecoder(cfg.Sqids.Alphabet, cfg.Sqids.MinLength)
		if err != nil {
			return nil, fmt.Errorf("sqids decoder: %w", err)
		}
		return d, nil
	}
	return gate.IntDecoder{}, nil
}

// healthz answers 200 while the store is reachable.
func healthz(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			zap.L().Warn("healthz: store unreachable", zap.Error(err))
			http.Error(w, "store unreachable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	}
}
