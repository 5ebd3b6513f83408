package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-pos-gateway.git/internal/backend"
	"github.com/ariefcatur/go-pos-gateway.git/internal/board"
	"github.com/ariefcatur/go-pos-gateway.git/internal/cart"
	"github.com/ariefcatur/go-pos-gateway.git/internal/config"
	"github.com/ariefcatur/go-pos-gateway.git/internal/feed"
	"github.com/ariefcatur/go-pos-gateway.git/internal/httpx"
	"github.com/ariefcatur/go-pos-gateway.git/internal/pos"
	"github.com/ariefcatur/go-pos-gateway.git/internal/redisx"
)

func mustAtoi(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taxRate, err := decimal.NewFromString(cfg.TaxRatePercent)
	if err != nil {
		log.Fatal().Err(err).Str("rate", cfg.TaxRatePercent).Msg("bad TAX_RATE_PERCENT")
	}

	// Redis: session token + cart snapshot cache, event dedup
	rdb, err := redisx.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect")
	}
	defer rdb.Close()
	cache := &redisx.SessionCache{RDB: rdb, Tenant: cfg.TenantCode}
	dedup := &redisx.EventDedup{RDB: rdb}

	// Upstream client; a cached token survives gateway restarts
	tokens := &backend.TokenStore{}
	if tok, err := cache.LoadToken(ctx); err != nil {
		log.Warn().Err(err).Msg("token restore failed")
	} else if tok != "" {
		tokens.Set(tok)
	}
	client := backend.NewClient(cfg.BackendURL, tokens, log)
	client.OnSessionInvalid(func(ctx context.Context) {
		// tear the persisted copy down with the session, or a restart
		// would resurrect the invalidated token
		if err := cache.ClearToken(ctx); err != nil {
			log.Warn().Err(err).Msg("token cache clear failed")
		}
	})

	// Boards, seeded from the authoritative snapshot. A failed seed is not
	// fatal: the reconnect hook reseeds once the backend is reachable.
	ordersBoard := board.NewOrderBoard(client, dedup, log)
	tablesBoard := board.NewTableBoard(client, dedup, log)
	if err := ordersBoard.Resync(ctx); err != nil {
		log.Warn().Err(err).Msg("initial order snapshot failed")
	}
	if err := tablesBoard.Resync(ctx); err != nil {
		log.Warn().Err(err).Msg("initial table snapshot failed")
	}

	// Event feed: one transport, fanned out via the hub. Each board holds
	// its own subscription.
	hub := feed.NewHub(log)
	hub.OnReconnect(func(ctx context.Context) {
		if err := ordersBoard.Resync(ctx); err != nil {
			log.Warn().Err(err).Msg("order resync after reconnect failed")
		}
		if err := tablesBoard.Resync(ctx); err != nil {
			log.Warn().Err(err).Msg("table resync after reconnect failed")
		}
	})

	var transport feed.Feed
	switch cfg.FeedDriver {
	case "rabbit":
		transport = feed.NewRabbitFeed(cfg.RabbitURL, log)
	default:
		workers := mustAtoi(cfg.FeedWorkers, 4)
		transport = feed.NewKafkaFeed(cfg.KafkaBrokers, cfg.FeedGroup,
			[]string{pos.TopicOrders, pos.TopicTables}, workers, log)
	}
	sup := &feed.Supervisor{Feed: transport, Hub: hub, Log: log}

	// Cart store + HTTP surface. A cached cart snapshot survives gateway
	// restarts the same way the token does.
	store := cart.NewStore(taxRate, client, cache, log)
	if o, ok, err := cache.LoadCart(ctx); err != nil {
		log.Warn().Err(err).Msg("cart restore failed")
	} else if ok {
		if err := store.Restore(ctx, o); err != nil {
			log.Warn().Err(err).Msg("cached cart discarded")
		}
	}

	router := httpx.NewRouter(log)
	(&httpx.CartHandler{Store: store}).Register(router)
	(&httpx.BoardHandler{Orders: ordersBoard, Tables: tablesBoard, History: client}).Register(router)
	(&httpx.SessionHandler{Tokens: tokens, Cache: cache, Log: log}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error { return sup.Run(gctx) })

	orderSub := hub.Subscribe(256,
		pos.EventOrderCreated, pos.EventOrderUpdated, pos.EventOrderStatusUpdated,
		pos.EventOrderDeleted, pos.EventOrderCompleted)
	tableSub := hub.Subscribe(256, pos.EventTableUpdated)
	g.Go(func() error { return pump(gctx, orderSub, ordersBoard.Apply, log) })
	g.Go(func() error { return pump(gctx, tableSub, tablesBoard.Apply, log) })

	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sig:
			log.Info().Msg("shutting down...")
		case <-gctx.Done():
		}
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutCancel()
		_ = srv.Shutdown(shutCtx)
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("exit")
	}
}

// pump drains one subscription into a board until shutdown. Malformed
// events are logged and skipped; channel hiccups never block a screen.
func pump(ctx context.Context, sub *feed.Subscription, apply func(context.Context, pos.Envelope) error, log zerolog.Logger) error {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case env, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := apply(ctx, env); err != nil {
				log.Warn().Err(err).Str("event_id", env.EventID).Msg("event not applied")
			}
		}
	}
}
