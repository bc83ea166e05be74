package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ecocal/internal/alerting"
	"ecocal/internal/calendar"
	"ecocal/internal/config"
	"ecocal/internal/exporter"
	"ecocal/internal/fetcher"
	"ecocal/internal/scheduler"
	"ecocal/internal/storage"
	"ecocal/internal/table"
)

// Columns read from the calendar when building alert messages.
const (
	nameColumn      = "Name"
	countryColumn   = "CountryCode"
	consensusColumn = "Consensus"
	previousColumn  = "Previous"
)

// Service orchestrates the watch loop: fetch, export, persist and alert.
type Service struct {
	scheduler *scheduler.Scheduler
	calendar  fetcher.CalendarFetcher
	details   fetcher.DetailFetcher
	store     storage.SnapshotStore
	locker    storage.AdvisoryLocker
	notifier  alerting.Notifier
	logger    zerolog.Logger

	idColumn     string
	dateColumn   string
	impactColumn string
	lookahead    int
	withDetails  bool
	exportCSV    bool
	exportDir    string
	persist      bool
	lockKey      int64
	alertsOn     bool
	impacts      map[string]struct{}
	impactList   []string
	now          func() time.Time

	mu   sync.Mutex
	seen map[string]struct{}
}

// Result summarises one refresh.
type Result struct {
	Horizon    fetcher.Horizon
	Rows       int
	ExportPath string
	Persisted  int
	NewEvents  []alerting.Event
	Skipped    bool
}

// New constructs the watch service. store and notifier may be nil.
func New(cfg *config.Config, sched *scheduler.Scheduler, cal fetcher.CalendarFetcher, det fetcher.DetailFetcher, store storage.SnapshotStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	impacts := make(map[string]struct{}, len(cfg.Alerting.Impacts))
	impactList := make([]string, 0, len(cfg.Alerting.Impacts))
	for _, level := range cfg.Alerting.Impacts {
		level = strings.ToUpper(strings.TrimSpace(level))
		if level == "" {
			continue
		}
		if _, dup := impacts[level]; !dup {
			impactList = append(impactList, level)
		}
		impacts[level] = struct{}{}
	}

	return &Service{
		scheduler:    sched,
		calendar:     cal,
		details:      det,
		store:        store,
		locker:       locker,
		notifier:     notifier,
		logger:       logger.With().Str("component", "service").Logger(),
		idColumn:     cfg.Provider.IDColumn,
		dateColumn:   cfg.Export.DateColumn,
		impactColumn: cfg.Export.ImpactColumn,
		lookahead:    cfg.Watch.LookaheadDays,
		withDetails:  cfg.Watch.WithDetails,
		exportCSV:    cfg.Watch.ExportCSV,
		exportDir:    cfg.ResolveExportDir(""),
		persist:      cfg.Watch.PersistSnapshot,
		lockKey:      cfg.Watch.AdvisoryLockKey,
		alertsOn:     cfg.Alerting.Enabled,
		impacts:      impacts,
		impactList:   impactList,
		now:          func() time.Time { return time.Now().UTC() },
		seen:         make(map[string]struct{}),
	}
}

// Run begins the refresh loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, func(ctx context.Context, slot time.Time) error {
		_, err := s.Refresh(ctx, slot)
		return err
	})
}

// Refresh 执行单个时间槽的刷新逻辑。
func (s *Service) Refresh(ctx context.Context, slot time.Time) (Result, error) {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return Result{}, err
	}
	if !proceed {
		s.logger.Debug().Time("slot", slot).Msg("skip refresh because advisory lock held elsewhere")
		return Result{Skipped: true}, nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.refresh(ctx, slot)
}

func (s *Service) refresh(ctx context.Context, slot time.Time) (Result, error) {
	start := slot.UTC().Truncate(24 * time.Hour)
	end := start.AddDate(0, 0, s.lookahead)

	session, err := calendar.New(ctx, calendar.Options{
		Start:     start,
		End:       end,
		IDColumn:  s.idColumn,
		Calendar:  s.calendar,
		Details:   s.details,
		ExportDir: s.exportDir,
		Now:       s.now,
	}, s.logger)
	if err != nil {
		return Result{}, err
	}

	tbl, err := session.GetCalendar(ctx, s.withDetails)
	if err != nil {
		return Result{}, fmt.Errorf("refresh calendar: %w", err)
	}

	res := Result{Horizon: session.Horizon(), Rows: tbl.Len()}
	fetchedAt := s.now()

	if s.exportCSV {
		path, err := exporter.WriteCalendarCSV(s.exportDir, tbl, fetchedAt)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to export calendar")
		} else {
			res.ExportPath = path
		}
	}

	if s.persist && s.store != nil {
		written, err := s.store.SaveSnapshot(ctx, storage.Snapshot{
			HorizonStart: res.Horizon.From(),
			HorizonEnd:   res.Horizon.To().Truncate(24 * time.Hour),
			IDColumn:     s.idColumn,
			Table:        tbl,
			FetchedAt:    fetchedAt,
		})
		if err != nil {
			s.logger.Error().Err(err).Str("horizon", res.Horizon.String()).Msg("failed to persist snapshot")
		}
		res.Persisted = written
	}

	s.logger.Info().
		Str("horizon", res.Horizon.String()).
		Int("rows", res.Rows).
		Int("persisted", res.Persisted).
		Msg("calendar refreshed")

	res.NewEvents = s.collectNew(tbl)
	if len(res.NewEvents) > 0 && s.alertsOn && s.notifier != nil {
		note := alerting.Notification{
			HorizonStart: res.Horizon.Start,
			HorizonEnd:   res.Horizon.End,
			Impacts:      s.impactList,
			Events:       res.NewEvents,
		}
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Int("events", len(res.NewEvents)).Msg("failed to dispatch alert")
		}
	}

	return res, nil
}

// collectNew returns events not seen in earlier refreshes whose impact is
// one of the configured levels, and marks every identifier as seen.
func (s *Service) collectNew(tbl *table.Table) []alerting.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []alerting.Event
	for row := range tbl.Rows {
		id := tbl.Value(row, s.idColumn).String()
		if id == "" {
			continue
		}
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}

		impact := strings.ToUpper(tbl.Value(row, s.impactColumn).String())
		if _, ok := s.impacts[impact]; !ok {
			continue
		}
		events = append(events, alerting.Event{
			ID:        id,
			Name:      tbl.Value(row, nameColumn).String(),
			Start:     tbl.Value(row, s.dateColumn).String(),
			Country:   tbl.Value(row, countryColumn).String(),
			Impact:    impact,
			Consensus: tbl.Value(row, consensusColumn).String(),
			Previous:  tbl.Value(row, previousColumn).String(),
		})
	}
	return events
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
