package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"ecocal/internal/alerting"
	"ecocal/internal/calendar"
	"ecocal/internal/config"
	"ecocal/internal/fetcher"
	"ecocal/internal/metrics"
	"ecocal/internal/scheduler"
	"ecocal/internal/service"
	"ecocal/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	// Out receives tables and summaries printed by commands.
	Out io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{
		Config:  cfg,
		Logger:  logger.With().Str("component", "app").Logger(),
		Metrics: metrics.New(),
		Out:     os.Stdout,
	}
}

func (a *App) newFetchers() (*fetcher.Calendar, *fetcher.Details) {
	client := fetcher.NewClient(fetcher.ClientOptions{
		BaseURL:   a.Config.Provider.BaseURL,
		Referer:   a.Config.Provider.Referer,
		UserAgent: a.Config.Provider.UserAgent,
		Timeout:   a.Config.Provider.RequestTimeout,
	}, a.Logger)

	cal := fetcher.NewCalendar(client, fetcher.CalendarOptions{
		IDColumn: a.Config.Provider.IDColumn,
	}, a.Metrics, a.Logger)

	det := fetcher.NewDetails(client, fetcher.DetailOptions{
		BatchSize:         a.Config.Detail.BatchSize,
		MaxConcurrency:    a.Config.Detail.MaxConcurrency,
		DropTrailingBatch: a.Config.Detail.DropTrailingBatch,
		OnMissing:         a.Config.Detail.OnMissing,
	}, a.Metrics, a.Logger)

	return cal, det
}

// newSession builds a calendar session for the given dates. Empty dates
// fall back to the configured defaults.
func (a *App) newSession(ctx context.Context, from, to, exportDir string) (*calendar.Calendar, error) {
	cal, det := a.newFetchers()
	return calendar.New(ctx, calendar.Options{
		Start: from,
		End:   to,
		Defaults: fetcher.Defaults{
			Start: a.Config.Provider.DefaultStart,
			End:   a.Config.Provider.DefaultEnd,
		},
		IDColumn:  a.Config.Provider.IDColumn,
		Calendar:  cal,
		Details:   det,
		ExportDir: a.Config.ResolveExportDir(exportDir),
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Watch executes the long-running refresh service.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched, err := scheduler.New(scheduler.Options{
		Interval:      a.Config.Watch.Interval,
		AlignToBucket: a.Config.Watch.AlignToBucket,
		StartupDelay:  a.Config.Watch.StartupDelay,
		Immediate:     true,
	}, a.Logger)
	if err != nil {
		return err
	}

	stopMetrics := a.serveMetrics()
	defer stopMetrics()

	cal, det := a.newFetchers()
	notifier := a.newNotifier()

	var snapshots storage.SnapshotStore
	if store != nil {
		snapshots = store
	}

	svc := service.New(a.Config, sched, cal, det, snapshots, notifier, a.Logger)

	a.Logger.Info().
		Dur("interval", a.Config.Watch.Interval).
		Int("lookahead_days", a.Config.Watch.LookaheadDays).
		Msg("starting calendar watch")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch terminated with error")
		return err
	}

	a.Logger.Info().Msg("calendar watch stopped")
	return nil
}

// serveMetrics starts the /metrics endpoint when an address is configured
// and returns a func that shuts it down.
func (a *App) serveMetrics() func() {
	addr := a.Config.Metrics.ListenAddr
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.Logger.Info().Str("addr", addr).Msg("serving metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}

// FetchOptions configure the fetch command.
type FetchOptions struct {
	From        string
	To          string
	WithDetails bool
	Limit       int
}

// ExportOptions hold parameters for a one-shot export.
type ExportOptions struct {
	From        string
	To          string
	WithDetails bool
	Dir         string
	PNGPath     string
	Persist     bool
}

// BackfillOptions configure the backfill job.
type BackfillOptions struct {
	From        time.Time
	To          time.Time
	WindowDays  int
	WithDetails bool
	DryRun      bool
}
