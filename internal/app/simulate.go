package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"ecocal/internal/config"
	"ecocal/internal/fetcher"
	"ecocal/internal/service"
	"ecocal/internal/table"
)

// SimulateAlert 通过一条合成事件模拟一次告警流程。
func (a *App) SimulateAlert(ctx context.Context, name, impact string) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	now := time.Now().UTC()
	cfg := *a.Config
	cfg.Watch.WithDetails = false
	cfg.Watch.ExportCSV = false
	cfg.Watch.PersistSnapshot = false
	cfg.Watch.AdvisoryLockKey = 0

	static := &staticCalendarFetcher{tbl: syntheticEvent(&cfg, name, impact, now)}
	svc := service.New(&cfg, nil, static, noDetails{}, nil, notifier, a.Logger)

	res, err := svc.Refresh(ctx, now)
	if err != nil {
		return err
	}
	if len(res.NewEvents) == 0 {
		return errors.New("合成事件的 impact 不在 alerting.impacts 中")
	}
	return nil
}

func syntheticEvent(cfg *config.Config, name, impact string, at time.Time) *table.Table {
	tbl := table.New(cfg.Provider.IDColumn, cfg.Export.DateColumn, "Name", "CountryCode", cfg.Export.ImpactColumn)
	tbl.Append([]table.Value{
		table.StringValue("simulated-" + at.Format("20060102T150405")),
		table.StringValue(at.Format("01/02/2006 15:04:05")),
		table.StringValue(name),
		table.StringValue("US"),
		table.StringValue(strings.ToUpper(impact)),
	})
	return tbl
}

type staticCalendarFetcher struct {
	tbl *table.Table
}

func (s *staticCalendarFetcher) FetchCalendar(ctx context.Context, horizon fetcher.Horizon) (*table.Table, error) {
	return s.tbl, nil
}

type noDetails struct{}

func (noDetails) FetchDetails(ctx context.Context, ids []string) (fetcher.DetailResult, error) {
	return fetcher.DetailResult{Records: map[string]map[string]any{}}, nil
}

var (
	_ fetcher.CalendarFetcher = (*staticCalendarFetcher)(nil)
	_ fetcher.DetailFetcher   = noDetails{}
)
