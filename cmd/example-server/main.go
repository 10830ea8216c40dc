package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tobenna/gatekeep/pkg/admission"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := readConfig()

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.redisAddr,
		Password: cfg.redisPassword,
		DB:       cfg.redisDB,
	})
	defer func() { _ = client.Close() }()

	store, err := admission.NewRedisStore(client,
		admission.WithPrefix("demo:adm:"),
		admission.WithTimeout(cfg.storeTimeout),
	)
	if err != nil {
		logger.Fatal("redis store init failed", zap.Error(err))
	}

	engine, err := buildEngine(store, cfg, logger)
	if err != nil {
		logger.Fatal("engine init failed", zap.Error(err))
	}

	r := chi.NewRouter()
	r.Use(admission.Middleware(admission.MiddlewareOptions{
		Engine:            engine,
		CallerID:          func(r *http.Request) string { return r.Header.Get("X-API-Key") },
		TrustForwardedFor: cfg.trustXFF,
		StandardHeaders:   true,
		LegacyHeaders:     cfg.legacyHeaders,
		SkipFailed:        cfg.skipFailed,
		Logger:            logger,
	}))
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong\n"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("example server listening",
		zap.String("addr", cfg.listenAddr),
		zap.String("redis", cfg.redisAddr),
		zap.Int64("burst_limit", cfg.burstLimit),
		zap.Int64("sustained_limit", cfg.sustainedLimit))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}

// buildEngine assembles the demo pipeline: a burst fixed-window limiter
// chained with a progressively penalized sliding-window limiter, behind
// allow/deny overrides, keyed by caller+address.
func buildEngine(store admission.CounterStore, cfg config, logger *zap.Logger) (*admission.Engine, error) {
	burst, err := admission.NewFixedWindow(store, "burst",
		admission.Policy{Limit: cfg.burstLimit, Window: cfg.burstWindow},
		admission.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	sustained, err := admission.NewSlidingWindow(store, "sustained",
		admission.Policy{Limit: cfg.sustainedLimit, Window: cfg.sustainedWindow},
		admission.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	penalized, err := admission.NewProgressive(sustained, store, "viol",
		admission.Policy{Limit: cfg.sustainedLimit, Window: cfg.sustainedWindow},
		admission.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	limiter, err := admission.NewComposite(burst, penalized)
	if err != nil {
		return nil, err
	}

	return admission.NewEngine(admission.ByCallerAndAddress, limiter,
		admission.WithOverrides(admission.NewOverrides(cfg.allowList, cfg.denyList, cfg.denyMultiplier)),
		admission.WithLogger(logger))
}

type config struct {
	listenAddr    string
	redisAddr     string
	redisPassword string
	redisDB       int
	storeTimeout  time.Duration

	burstLimit      int64
	burstWindow     time.Duration
	sustainedLimit  int64
	sustainedWindow time.Duration

	allowList      []string
	denyList       []string
	denyMultiplier float64

	trustXFF      bool
	legacyHeaders bool
	skipFailed    bool
}

func readConfig() config {
	return config{
		listenAddr:    getenvDefault("LISTEN_ADDR", ":8080"),
		redisAddr:     getenvDefault("REDIS_ADDR", "localhost:6379"),
		redisPassword: os.Getenv("REDIS_PASSWORD"),
		redisDB:       getenvIntDefault("REDIS_DB", 0),
		storeTimeout:  getenvDurationDefault("STORE_TIMEOUT", 500*time.Millisecond),

		burstLimit:      int64(getenvIntDefault("BURST_LIMIT", 10)),
		burstWindow:     getenvDurationDefault("BURST_WINDOW", time.Second),
		sustainedLimit:  int64(getenvIntDefault("SUSTAINED_LIMIT", 100)),
		sustainedWindow: getenvDurationDefault("SUSTAINED_WINDOW", time.Minute),

		allowList:      getenvList("ALLOW_LIST"),
		denyList:       getenvList("DENY_LIST"),
		denyMultiplier: getenvFloatDefault("DENY_MULTIPLIER", 0.1),

		trustXFF:      getenvBoolDefault("TRUST_XFF", false),
		legacyHeaders: getenvBoolDefault("LEGACY_HEADERS", false),
		skipFailed:    getenvBoolDefault("SKIP_FAILED", false),
	}
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getenvList(k string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
