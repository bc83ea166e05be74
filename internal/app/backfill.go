package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecocal/internal/calendar"
	"ecocal/internal/fetcher"
	"ecocal/internal/storage"
)

const defaultWindowDays = 7

// window is one inclusive date range of a backfill.
type window struct {
	Start time.Time
	End   time.Time
}

// Backfill 按窗口回填历史日历快照。
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	windows, err := splitWindows(opts.From, opts.To, opts.WindowDays)
	if err != nil {
		return err
	}

	var snapshots storage.SnapshotStore
	if opts.DryRun {
		a.Logger.Warn().Msg("回填 dry-run：不会写入数据库")
	} else {
		store, closeStore, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("database.dsn 未配置，无法回填")
		}
		defer closeStore()
		snapshots = store
	}

	cal, det := a.newFetchers()

	processed := 0
	failed := 0
	for _, w := range windows {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rows, err := a.backfillWindow(ctx, w, cal, det, snapshots, opts.WithDetails)
		if err != nil {
			failed++
			a.Logger.Error().Err(err).Time("start", w.Start).Time("end", w.End).Msg("回填失败")
			continue
		}
		processed++
		fmt.Fprintf(a.Out, "%s..%s\t%d\n", w.Start.Format(time.DateOnly), w.End.Format(time.DateOnly), rows)
	}

	a.Logger.Info().Int("processed", processed).Int("failed", failed).Msg("回填完成")
	if failed > 0 {
		return fmt.Errorf("%d of %d backfill windows failed", failed, len(windows))
	}
	return nil
}

func (a *App) backfillWindow(ctx context.Context, w window, cal fetcher.CalendarFetcher, det fetcher.DetailFetcher, snapshots storage.SnapshotStore, withDetails bool) (int, error) {
	session, err := calendar.New(ctx, calendar.Options{
		Start:    w.Start,
		End:      w.End,
		IDColumn: a.Config.Provider.IDColumn,
		Calendar: cal,
		Details:  det,
	}, a.Logger)
	if err != nil {
		return 0, err
	}

	tbl, err := session.GetCalendar(ctx, withDetails)
	if err != nil {
		return 0, err
	}
	if snapshots == nil {
		return tbl.Len(), nil
	}

	return snapshots.SaveSnapshot(ctx, storage.Snapshot{
		HorizonStart: w.Start,
		HorizonEnd:   w.End,
		IDColumn:     a.Config.Provider.IDColumn,
		Table:        tbl,
		FetchedAt:    time.Now().UTC(),
	})
}

// splitWindows cuts [from, to] into consecutive windows of at most days
// calendar days. Both bounds are truncated to whole days.
func splitWindows(from, to time.Time, days int) ([]window, error) {
	if days <= 0 {
		days = defaultWindowDays
	}
	start := from.UTC().Truncate(24 * time.Hour)
	end := to.UTC().Truncate(24 * time.Hour)
	if end.Before(start) {
		return nil, errors.New("回填范围为空，请检查 --from/--to")
	}

	var out []window
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 0, days) {
		last := cur.AddDate(0, 0, days-1)
		if last.After(end) {
			last = end
		}
		out = append(out, window{Start: cur, End: last})
	}
	return out, nil
}
