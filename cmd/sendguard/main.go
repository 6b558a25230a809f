package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	slogGorm "github.com/orandin/slog-gorm"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	cli "github.com/urfave/cli/v2"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Marseau/sendguard"
	"github.com/Marseau/sendguard/auditstore"
	"github.com/Marseau/sendguard/engagement"
	"github.com/Marseau/sendguard/engine"
	"github.com/Marseau/sendguard/fingerprint"
	"github.com/Marseau/sendguard/freqstore"
	"github.com/Marseau/sendguard/rules"
	"github.com/Marseau/sendguard/templatestore"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "sendguard",
		Usage:   "outbound message admission-control daemon",
		Version: versioninfo.Short(),
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for the admission API",
			Value:   ":8700",
			EnvVars: []string{"SENDGUARD_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":8701",
			EnvVars: []string{"SENDGUARD_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for shared frequency tracking; empty keeps state in-process",
			EnvVars: []string{"SENDGUARD_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "conversation-history / audit database",
			Value:   "sqlite://data/sendguard/sendguard.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "incoming webhook for high-risk alerts",
			EnvVars: []string{"SENDGUARD_SLACK_WEBHOOK_URL"},
		},
		&cli.IntFlag{
			Name:    "max-per-hour",
			Value:   10,
			EnvVars: []string{"SENDGUARD_MAX_PER_HOUR"},
		},
		&cli.IntFlag{
			Name:    "max-per-day",
			Value:   50,
			EnvVars: []string{"SENDGUARD_MAX_PER_DAY"},
		},
		&cli.IntFlag{
			Name:    "max-per-week",
			Value:   200,
			EnvVars: []string{"SENDGUARD_MAX_PER_WEEK"},
		},
		&cli.IntFlag{
			Name:    "duplicate-threshold",
			Value:   3,
			EnvVars: []string{"SENDGUARD_DUPLICATE_THRESHOLD"},
		},
		&cli.Float64Flag{
			Name:    "min-response-rate",
			Value:   0.1,
			EnvVars: []string{"SENDGUARD_MIN_RESPONSE_RATE"},
		},
		&cli.DurationFlag{
			Name:    "template-frequency-limit",
			Value:   time.Hour,
			EnvVars: []string{"SENDGUARD_TEMPLATE_FREQUENCY_LIMIT"},
		},
		&cli.StringFlag{
			Name:    "fingerprint-eviction",
			Usage:   "fingerprint compaction strategy: topk or recency",
			Value:   "topk",
			EnvVars: []string{"SENDGUARD_FINGERPRINT_EVICTION"},
		},
		&cli.IntFlag{
			Name:    "fingerprint-retention",
			Usage:   "max fingerprints kept after compaction",
			Value:   1000,
			EnvVars: []string{"SENDGUARD_FINGERPRINT_RETENTION"},
		},
		&cli.DurationFlag{
			Name:    "janitor-interval",
			Value:   time.Hour,
			EnvVars: []string{"SENDGUARD_JANITOR_INTERVAL"},
		},
		&cli.StringSliceFlag{
			Name:    "spam-keyword",
			Usage:   "additional spam keyword (repeatable)",
			EnvVars: []string{"SENDGUARD_SPAM_KEYWORDS"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		cfg := engine.DefaultConfig()
		cfg.MaxPerHour = cctx.Int("max-per-hour")
		cfg.MaxPerDay = cctx.Int("max-per-day")
		cfg.MaxPerWeek = cctx.Int("max-per-week")
		cfg.DuplicateThreshold = cctx.Int("duplicate-threshold")
		cfg.MinResponseRate = cctx.Float64("min-response-rate")
		cfg.TemplateFrequencyLimit = cctx.Duration("template-frequency-limit")
		cfg.FingerprintEviction = cctx.String("fingerprint-eviction")
		cfg.FingerprintRetention = cctx.Int("fingerprint-retention")
		cfg.JanitorInterval = cctx.Duration("janitor-interval")
		cfg.SpamKeywords = append(cfg.SpamKeywords, cctx.StringSlice("spam-keyword")...)
		if err := cfg.Validate(); err != nil {
			return err
		}

		db, err := openDB(cctx.String("database-url"))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}

		var freq freqstore.FrequencyStore
		if redisURL := cctx.String("redis-url"); redisURL != "" {
			freq, err = freqstore.NewRedisFrequencyStore(redisURL, cfg.FrequencyLimits())
			if err != nil {
				return fmt.Errorf("connecting to redis: %w", err)
			}
		} else {
			freq = freqstore.NewMemFrequencyStore(cfg.FrequencyLimits())
		}

		strategy, err := fingerprint.StrategyByName(cfg.FingerprintEviction)
		if err != nil {
			return err
		}

		audit, err := auditstore.NewGormAuditStore(db)
		if err != nil {
			return fmt.Errorf("preparing audit store: %w", err)
		}

		eng := &sendguard.Engine{
			Logger:       logger,
			Config:       cfg,
			Rules:        rules.DefaultRules(),
			Frequency:    freq,
			Fingerprints: fingerprint.NewMemIndex(cfg.FingerprintRetention, strategy),
			Templates:    templatestore.NewMemTemplateStore(cfg.TemplateFrequencyLimit),
			Engagement:   engagement.NewAnalyzer(engagement.NewGormLogReader(db), logger, cfg.MinResponseRate, cfg.EngagementWindow),
			Audit:        audit,
		}
		if hook := cctx.String("slack-webhook-url"); hook != "" {
			eng.Notifier = engine.NewSlackNotifier(hook)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		go eng.RunJanitor(ctx)

		// prometheus and pprof on a separate listener
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cctx.String("metrics-listen"), nil); err != nil {
				logger.Error("metrics listener failed", "err", err)
			}
		}()

		srv := NewServer(logger, eng)
		go func() {
			if err := srv.RunAPI(cctx.String("bind")); err != nil && err != http.ErrServerClosed {
				logger.Error("admission API failed", "err", err)
				stop()
			}
		}()

		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func openDB(url string) (*gorm.DB, error) {
	gcfg := gorm.Config{Logger: slogGorm.New()}
	switch {
	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite://")
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return nil, err
			}
		}
		return gorm.Open(sqlite.Open(path), &gcfg)
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return gorm.Open(postgres.Open(url), &gcfg)
	}
	return nil, fmt.Errorf("unsupported database scheme: %s", url)
}
