package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/internal/data"
	"github.com/wonny/twscan/internal/data/repos"
	"github.com/wonny/twscan/internal/external/cached"
	"github.com/wonny/twscan/internal/external/line"
	"github.com/wonny/twscan/internal/external/telegram"
	"github.com/wonny/twscan/internal/external/twse"
	"github.com/wonny/twscan/internal/external/yahoo"
	"github.com/wonny/twscan/internal/metrics"
	"github.com/wonny/twscan/internal/notify"
	"github.com/wonny/twscan/internal/pipeline"
	"github.com/wonny/twscan/internal/report"
	"github.com/wonny/twscan/internal/scanner"
	"github.com/wonny/twscan/internal/strategyconfig"
	"github.com/wonny/twscan/pkg/config"
	"github.com/wonny/twscan/pkg/database"
	"github.com/wonny/twscan/pkg/httputil"
	"github.com/wonny/twscan/pkg/logger"
	"github.com/wonny/twscan/pkg/redis"
)

// app holds the dependencies shared by every command.
// Optional backends are nil (or disabled) when not configured.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *database.DB
	redis   *redis.Client
	cache   *redis.Cache
	http    *httputil.Client
	metrics *metrics.Metrics

	stocks  contracts.StockRepository
	params  contracts.StrategyParamRepository
	results contracts.ResultRepository
	source  contracts.ConfigSource
	fetcher contracts.BarFetcher

	closers []func()
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		if err := godotenv.Overload(configFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", configFile, err)
		}
	}
	if env != "" {
		os.Setenv("ENV", env)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newApp loads config and connects the configured backends
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: logger.New(cfg)}
	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}

	// 1. Postgres (optional)
	db, err := database.New(ctx, cfg)
	switch {
	case errors.Is(err, database.ErrNotConfigured):
		a.log.Info("DATABASE_URL not set, using SCAN_STOCKS and strategy file")
	case err != nil:
		return nil, fmt.Errorf("connect to database: %w", err)
	default:
		a.db = db
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		a.stocks = repos.NewStockRepository(db.Pool)
		a.params = repos.NewStrategyParamRepository(db.Pool)
		a.results = repos.NewResultRepository(db.Pool)
	}

	// 2. Redis (optional)
	rc, err := redis.New(ctx, cfg)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rc
	a.cache = redis.NewCache(rc, "twscan")
	a.closers = append(a.closers, func() { rc.Close() })

	// 3. HTTP client, shared rate limit across processes when Redis is on
	a.http = httputil.New(cfg, a.log)
	if rc.Enabled() {
		if limit, ok := redis.RateLimitFor(cfg.Source.Name); ok {
			a.http.WithRateLimiter(redis.NewRateLimiter(rc, "twscan"), limit)
		}
	}

	// 4. Bar source
	var fetcher contracts.BarFetcher
	switch cfg.Source.Name {
	case twse.SourceName:
		fetcher = twse.NewClient(a.http, a.log, cfg.Source.TWSEBaseURL, cfg.Scan.Spacing)
	default:
		fetcher = yahoo.NewClient(a.http, a.log, cfg.Source.YahooBaseURL, cfg.Source.YahooSuffix)
	}
	a.fetcher = cached.New(fetcher, a.cache, a.log)

	// 5. Config source
	if a.db != nil {
		a.source = data.NewDBSource(a.stocks, a.params)
	} else {
		var strategy *strategyconfig.Config
		if cfg.Scan.StrategyFile != "" {
			strategy, err = strategyconfig.Load(cfg.Scan.StrategyFile)
			if err != nil {
				a.close()
				return nil, fmt.Errorf("load strategy: %w", err)
			}
			for _, w := range strategyconfig.Warn(strategy) {
				a.log.WithField("code", w.Code).Warn(w.Message)
			}
		}
		a.source = data.NewStaticSource(cfg.Scan.Stocks, strategy)
	}

	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) scanner(opts ...scanner.Option) *scanner.Scanner {
	opts = append([]scanner.Option{scanner.WithMetrics(a.metrics)}, opts...)
	return scanner.New(a.fetcher, scanner.Config{
		LookbackDays: a.cfg.Scan.LookbackDays,
		Spacing:      a.cfg.Scan.Spacing,
	}, a.log, opts...)
}

// writer builds the report sinks. console nil leaves the console sink out.
// The returned repository is where the latest report can be read back.
func (a *app) writer(console io.Writer) (*report.Writer, contracts.ResultRepository) {
	w := report.NewWriter(a.log, a.metrics)
	history := a.results

	if console != nil {
		w.Add(report.NewConsoleSink(console))
	}
	if a.cfg.Report.CSVPath != "" {
		w.Add(report.NewCSVSink(a.cfg.Report.CSVPath))
	}
	if a.cfg.Report.SQLitePath != "" {
		store, err := report.OpenSQLite(a.cfg.Report.SQLitePath)
		if err != nil {
			a.log.WithError(err).Warn("SQLite sink disabled")
		} else {
			w.Add(store)
			a.closers = append(a.closers, func() { store.Close() })
			if history == nil {
				history = store
			}
		}
	}
	if a.results != nil {
		w.Add(report.NewRepositorySink("postgres", a.results))
	}
	if a.cfg.NATS.URL != "" {
		sink, err := report.NewNATSSink(a.cfg.NATS.URL, a.cfg.NATS.Subject, a.log)
		if err != nil {
			a.log.WithError(err).Warn("NATS sink disabled")
		} else {
			w.Add(sink)
			a.closers = append(a.closers, func() { sink.Close() })
		}
	}
	if a.cfg.Influx.URL != "" {
		sink := report.NewInfluxSink(a.cfg.Influx, a.cfg.Source.Timeout)
		w.Add(sink)
		a.closers = append(a.closers, sink.Close)
	}

	a.log.WithField("sinks", w.Names()).Debug("Report sinks configured")
	return w, history
}

func (a *app) dispatcher() *notify.Dispatcher {
	var notifiers []contracts.Notifier
	if a.cfg.LINE.Enabled() {
		notifiers = append(notifiers, line.NewClient(a.http, a.log, a.cfg.LINE.BaseURL, a.cfg.LINE.ChannelAccessToken, a.cfg.LINE.UserID))
	}
	if a.cfg.Telegram.Enabled() {
		notifiers = append(notifiers, telegram.NewClient(a.http, a.log, a.cfg.Telegram.BaseURL, a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID))
	}
	if len(notifiers) == 0 {
		a.log.Warn("No LINE or Telegram credentials, digest goes to the log only")
		notifiers = append(notifiers, notify.NewLogNotifier(a.log))
	}
	return notify.NewDispatcher(a.log, a.metrics, notifiers...)
}

// orchestrator wires scanner, sinks and notifiers into one daily run
func (a *app) orchestrator(sc *scanner.Scanner, console io.Writer, opts ...pipeline.Option) *pipeline.Orchestrator {
	w, history := a.writer(console)
	base := []pipeline.Option{
		pipeline.WithCache(a.cache),
		pipeline.WithLocation(a.cfg.Location()),
	}
	if history != nil {
		base = append(base, pipeline.WithHistory(history))
	}
	return pipeline.NewOrchestrator(a.source, sc, w, a.dispatcher(), a.log, append(base, opts...)...)
}
