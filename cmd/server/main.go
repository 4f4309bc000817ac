package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/samrogers05/genesis/internal/api"
	"github.com/samrogers05/genesis/internal/api/dms"
	feedapi "github.com/samrogers05/genesis/internal/api/feed"
	"github.com/samrogers05/genesis/internal/api/invitations"
	"github.com/samrogers05/genesis/internal/api/profiles"
	"github.com/samrogers05/genesis/internal/api/projects"
	pubapi "github.com/samrogers05/genesis/internal/api/publications"
	"github.com/samrogers05/genesis/internal/config"
	"github.com/samrogers05/genesis/internal/feed"
	"github.com/samrogers05/genesis/internal/logger"
	"github.com/samrogers05/genesis/internal/middleware"
	"github.com/samrogers05/genesis/internal/publications"
	"github.com/samrogers05/genesis/internal/realtime"
	"github.com/samrogers05/genesis/internal/storage/memory"
	"github.com/samrogers05/genesis/internal/storage/objects"
	"github.com/samrogers05/genesis/internal/storage/postgres"
	"github.com/samrogers05/genesis/internal/ws"
)

// backend is what both storage implementations provide.
type backend interface {
	dms.Store
	projects.Store
	invitations.Store
	profiles.Store
	publications.Store
	feed.Backend
	Close() error
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Setup(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	bus, err := openBus(cfg)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	hub := ws.NewHub()
	upgrader := ws.NewUpgrader(cfg.CORSOrigin)
	sessions := feed.NewSessions(feed.NewAggregator(store, cfg.FeedLimit, nil), store, nil)

	var objectStore objects.Store
	if cfg.StorageURL != "" && cfg.StorageServiceKey != "" {
		objectStore = objects.NewSupabaseStore(cfg.StorageURL, cfg.StorageBucket, cfg.StorageServiceKey)
	} else {
		slog.Warn("object storage not configured, photo uploads disabled")
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		api.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	protected := r.NewRoute().Subrouter()
	protected.Use(middleware.AuthRequired(cfg.JWTSecret))

	dms.RegisterDMRoutes(protected, &dms.DMHandler{Store: store, Hub: hub, Upgrader: upgrader})
	feedapi.RegisterFeedRoutes(protected, &feedapi.FeedHandler{Sessions: sessions, Hub: hub, Upgrader: upgrader})
	projects.RegisterProjectRoutes(protected, &projects.ProjectHandler{Store: store, Objects: objectStore, Publisher: bus})
	invitations.RegisterInvitationRoutes(protected, &invitations.InvitationHandler{Store: store})
	profiles.RegisterProfileRoutes(protected, &profiles.ProfileHandler{Store: store, Objects: objectStore})
	pubapi.RegisterPublicationRoutes(protected, &pubapi.PublicationHandler{Importer: publications.NewImporter(store, nil)})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.CORS(cfg.CORSOrigin)(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		relayProjects(gctx, bus, sessions, hub)
		return nil
	})
	g.Go(func() error {
		slog.Info("server started", "addr", srv.Addr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (backend, error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, using the in-memory store")
		return memory.NewStore(memory.WithDailyBoosts(cfg.DailySignalBoosts)), nil
	}
	return postgres.NewStore(ctx, cfg.DatabaseURL, cfg.DailySignalBoosts)
}

func openBus(cfg *config.Config) (realtime.Bus, error) {
	if cfg.ValkeyURL == "" {
		return realtime.NewLocalBus(nil), nil
	}
	return realtime.NewValkeyBus(cfg.ValkeyURL, nil)
}

// resubscribeDelay is the pause before subscribing again after the project feed drops.
var resubscribeDelay = 2 * time.Second

// relayProjects puts every created project at the top of the live feeds and pushes it to
// feed sockets. A dropped or failed subscription is retried until ctx is done.
func relayProjects(ctx context.Context, bus realtime.Bus, sessions *feed.Sessions, hub *ws.Hub) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "genesis.realtime"})
	handle := func(ev realtime.Event) {
		n := sessions.PrependProject(ev.Project)
		slog.DebugContext(ctx, "project created", "project_id", ev.Project.ID, "sessions", n)

		data, err := json.Marshal(ev)
		if err != nil {
			slog.ErrorContext(ctx, "error encoding project event", "error", err)
			return
		}
		hub.Publish(ctx, ws.FeedTopic, data)
	}

	for {
		err := bus.Subscribe(ctx, handle)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			slog.ErrorContext(ctx, "project subscription failed", "error", err, "retry_in", resubscribeDelay)
		} else {
			slog.WarnContext(ctx, "project subscription ended", "retry_in", resubscribeDelay)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(resubscribeDelay):
		}
	}
}
