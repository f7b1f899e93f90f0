package main

import (
	"context"
	"expvar"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/igm/sockjs-go/sockjs"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/eieicore/queue-v1/internal/announce"
	"github.com/eieicore/queue-v1/internal/config"
	"github.com/eieicore/queue-v1/internal/httpapi"
	"github.com/eieicore/queue-v1/internal/kiosk"
	"github.com/eieicore/queue-v1/internal/poll"
	"github.com/eieicore/queue-v1/internal/queue"
	"github.com/eieicore/queue-v1/internal/realtime"
	"github.com/eieicore/queue-v1/internal/speech"
	"github.com/eieicore/queue-v1/internal/store"
	"github.com/eieicore/queue-v1/internal/store/memory"
	"github.com/eieicore/queue-v1/internal/store/postgres"
	"github.com/eieicore/queue-v1/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	shutdownTelemetry := telemetry.Setup("calling-service")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	var ticketStore store.TicketStore
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		defer pool.Close()
		ticketStore = postgres.NewStore(pool)
	} else {
		log.Printf("DB_DSN not set, using in-memory ticket store")
		ticketStore = memory.New()
	}
	ticketStore = store.WithRetry(ticketStore, cfg.StoreRetryDelay)

	service := queue.NewService(ticketStore)
	issuer := kiosk.NewIssuer(ticketStore)

	var speaker speech.Speaker = speech.LogSpeaker{}
	if cfg.SpeechEndpoint != "" {
		speaker = speech.NewHTTPSpeaker(cfg.SpeechEndpoint)
	}
	sequencer := announce.NewSequencer(speaker, cfg.AnnounceLanguage, cfg.AnnounceCooldown)

	hub := realtime.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sequencer.Run(ctx)

	refresh := poll.NewTask(cfg.PollInterval, func(ctx context.Context) error {
		if err := service.Refresh(ctx); err != nil {
			return err
		}
		snap := service.Snapshot()
		sequencer.Observe(snap)
		realtime.PublishSnapshot(hub, snap)
		return nil
	})
	refresh.Start(ctx)
	defer refresh.Stop()

	handler := httpapi.NewHandler(service, issuer)
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		PerMinute: cfg.RateLimitPerMinute,
		Burst:     cfg.RateLimitBurst,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", expvar.Handler())
	mux.Handle("/realtime/", sockjs.NewHandler("/realtime", sockjs.DefaultOptions, realtime.SessionHandler(hub)))
	mux.Handle("/", handler.Routes())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(httpapi.LoggingMiddleware(limiter.Middleware(mux)), "calling-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("calling-service listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	cancel()
	refresh.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
