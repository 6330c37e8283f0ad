// Command resultdesk serves the student records and exam results API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/resultdesk/internal/config"
	"github.com/unkn0wn-root/resultdesk/internal/httpapi"
	"github.com/unkn0wn-root/resultdesk/internal/kvcache"
	"github.com/unkn0wn-root/resultdesk/internal/kvcache/codec"
	"github.com/unkn0wn-root/resultdesk/internal/kvcache/provider"
	kvbigcache "github.com/unkn0wn-root/resultdesk/internal/kvcache/provider/bigcache"
	kvredis "github.com/unkn0wn-root/resultdesk/internal/kvcache/provider/redis"
	kvristretto "github.com/unkn0wn-root/resultdesk/internal/kvcache/provider/ristretto"
	"github.com/unkn0wn-root/resultdesk/internal/kvcache/zaplog"
	"github.com/unkn0wn-root/resultdesk/internal/results"
	"github.com/unkn0wn-root/resultdesk/internal/storage"
	"github.com/unkn0wn-root/resultdesk/internal/students"
)

const shutdownGrace = 10 * time.Second

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil {
		// startup and listener failures are fatal; Fatal exits with code 1
		log.Fatal("fatal", zap.Error(err))
	}
}

func run(ctx context.Context, log *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, err := storage.NewMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return err
	}
	log.Info("connected to mongodb", zap.String("db", cfg.MongoDB))

	cacheProv, err := buildProvider(ctx, cfg)
	if err != nil {
		_ = store.Close(ctx)
		return err
	}
	log.Info("cache ready", zap.String("backend", cfg.CacheBackend), zap.String("codec", cfg.CacheCodec))

	resultCodec, err := buildCodec(cfg)
	if err != nil {
		_ = cacheProv.Close(ctx)
		_ = store.Close(ctx)
		return err
	}

	resultCache, err := kvcache.New(kvcache.Options[storage.Result]{
		Namespace:  "result",
		Provider:   cacheProv,
		Codec:      resultCodec,
		Logger:     zaplog.Logger{L: log},
		DefaultTTL: cfg.CacheTTL(),
	})
	if err != nil {
		_ = cacheProv.Close(ctx)
		_ = store.Close(ctx)
		return err
	}

	resultSvc := results.New(store, resultCache, cfg.CacheTTL(), log)
	studentDir := students.New(store, log)
	handler := httpapi.NewHandler(studentDir, resultSvc, store, resultCache, log)

	mux := http.NewServeMux()
	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: httpapi.RegisterRoutes(mux, handler),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		_ = resultCache.Close(context.Background())
		_ = store.Close(context.Background())
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown", zap.Error(err))
	}
	if err := resultCache.Close(shutdownCtx); err != nil {
		log.Warn("cache close", zap.Error(err))
	}
	if err := store.Close(shutdownCtx); err != nil {
		log.Warn("mongo disconnect", zap.Error(err))
	}
	return nil
}

func buildProvider(ctx context.Context, cfg config.Config) (provider.Provider, error) {
	switch cfg.CacheBackend {
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return kvredis.New(kvredis.Config{Client: client, CloseClient: true})
	case "ristretto":
		return kvristretto.New(kvristretto.Config{
			NumCounters: 100_000,
			MaxCost:     64 << 20,
			BufferItems: 64,
		})
	case "bigcache":
		// BigCache has no per-entry TTL; the life window carries the expiry.
		return kvbigcache.New(kvbigcache.Config{LifeWindow: cfg.CacheTTL()})
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

func buildCodec(cfg config.Config) (codec.Codec[storage.Result], error) {
	var inner codec.Codec[storage.Result]
	switch cfg.CacheCodec {
	case "json":
		inner = codec.JSON[storage.Result]{}
	case "msgpack":
		inner = codec.Msgpack[storage.Result]{}
	case "cbor":
		cb, err := codec.NewCBOR[storage.Result](false)
		if err != nil {
			return nil, err
		}
		inner = cb
	default:
		return nil, fmt.Errorf("unknown cache codec %q", cfg.CacheCodec)
	}
	if cfg.CacheMaxValueBytes > 0 {
		inner = codec.Limit[storage.Result]{Inner: inner, MaxDecode: cfg.CacheMaxValueBytes}
	}
	return inner, nil
}
