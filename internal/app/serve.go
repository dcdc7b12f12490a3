package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cwrk-planet/tempvoice/config"
	"github.com/cwrk-planet/tempvoice/internal/auth"
	"github.com/cwrk-planet/tempvoice/internal/discord"
	"github.com/cwrk-planet/tempvoice/internal/service"
	grpcx "github.com/cwrk-planet/tempvoice/internal/transport/grpc"
	httpx "github.com/cwrk-planet/tempvoice/internal/transport/http"
	"github.com/cwrk-planet/tempvoice/internal/transport/ws"

	"golang.org/x/sync/errgroup"
)

// Serve runs the bot with its admin API, event stream and health service
// until ctx is cancelled.
func Serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	if err := cfg.ValidateServe(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("close registry", slog.Any("err", err))
		}
	}()

	session, err := discord.NewSession(cfg.Discord.Token)
	if err != nil {
		return err
	}
	gw := discord.NewGateway(session, cfg.Discord.Timeout())

	hub := ws.NewHub()
	svc := NewServices(store, gw, cfg, log,
		service.WithObservers(service.NewLogObserver(log), hub))
	bot := discord.NewBot(session, gw, svc.Rooms, svc.Provisioner, log)

	g, gctx := errgroup.WithContext(ctx)
	// anything started so far is stopped before a startup error is returned
	abort := func(err error) error {
		cancel()
		return errors.Join(err, g.Wait())
	}

	if cfg.GRPC.Addr != "" {
		health := grpcx.New(cfg.GRPC.Addr, log)
		if err := health.Listen(); err != nil {
			return err
		}
		bot.OnReady(func(context.Context) { health.SetServing(true) })
		bot.OnDisconnect(func() { health.SetServing(false) })
		g.Go(func() error { return health.Serve(gctx) })
	}

	if cfg.HTTP.Addr != "" {
		signer, err := auth.NewSigner(cfg.HTTP.JWTSecret, cfg.HTTP.TTL())
		if err != nil {
			return abort(err)
		}
		handler := httpx.NewHandler(svc.Generators, svc.Provisioner, svc.Reconciler, log)
		srv := &http.Server{
			Addr: cfg.HTTP.Addr,
			Handler: httpx.NewRouter(httpx.Deps{
				Handler:     handler,
				Tokens:      signer,
				WS:          ws.NewServer(hub, signer, svc.Generators, log),
				CORSOrigins: cfg.HTTP.CORSOrigins,
				Log:         log,
			}),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		g.Go(func() error {
			log.Info("http listen", "addr", cfg.HTTP.Addr)
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
	}

	if cfg.Reconcile.OnStartup {
		var swept sync.Map
		bot.OnGuildAvailable(func(ctx context.Context, guildID string) {
			if _, done := swept.LoadOrStore(guildID, struct{}{}); done {
				return
			}
			if _, err := svc.Reconciler.SweepGuild(ctx, guildID); err != nil && ctx.Err() == nil {
				log.Error("startup reconcile failed", "guild_id", guildID, slog.Any("err", err))
			}
		})
	}
	if every := cfg.Reconcile.Every(); every > 0 {
		g.Go(func() error {
			if err := svc.Reconciler.Run(gctx, every); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := bot.Open(gctx); err != nil {
		return abort(err)
	}
	log.Info("tempvoice started", "store", cfg.Store.Driver)

	<-gctx.Done()
	log.Info("shutting down")
	if err := bot.Close(); err != nil {
		log.Warn("discord close", slog.Any("err", err))
	}
	return g.Wait()
}
