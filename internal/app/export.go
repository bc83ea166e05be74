package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecocal/internal/exporter"
	"ecocal/internal/storage"
	"ecocal/internal/table"
)

// Export fetches the calendar and writes it as CSV, with an optional PNG
// impact chart and PostgreSQL snapshot.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	withDetails := opts.WithDetails || a.Config.Export.WithDetails

	var (
		store      *storage.Store
		closeStore func()
		err        error
	)
	if opts.Persist {
		store, closeStore, err = a.openStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("database not configured; cannot persist snapshot")
		}
		defer closeStore()
	}

	session, err := a.newSession(ctx, opts.From, opts.To, opts.Dir)
	if err != nil {
		return err
	}

	var (
		tbl  *table.Table
		path string
	)
	if withDetails {
		tbl, err = session.GetCalendar(ctx, true)
		if err != nil {
			return err
		}
		path, err = exporter.WriteCalendarCSV(a.Config.ResolveExportDir(opts.Dir), tbl, time.Now())
		if err != nil {
			return err
		}
	} else {
		path, err = session.SaveCalendar(ctx)
		if err != nil {
			return err
		}
		tbl, err = session.GetCalendar(ctx, false)
		if err != nil {
			return err
		}
	}

	fmt.Fprintln(a.Out, path)
	a.Logger.Info().
		Str("horizon", session.Horizon().String()).
		Int("rows", tbl.Len()).
		Bool("details", withDetails).
		Str("path", path).
		Msg("calendar exported")

	if opts.PNGPath != "" {
		if err := exporter.WriteImpactChart(opts.PNGPath, tbl, a.Config.Export.ImpactColumn); err != nil {
			return err
		}
		fmt.Fprintln(a.Out, opts.PNGPath)
	}

	if store != nil {
		horizon := session.Horizon()
		written, err := store.SaveSnapshot(ctx, storage.Snapshot{
			HorizonStart: horizon.From(),
			HorizonEnd:   horizon.To().Truncate(24 * time.Hour),
			IDColumn:     a.Config.Provider.IDColumn,
			Table:        tbl,
			FetchedAt:    time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		a.Logger.Info().Int("rows", written).Str("horizon", horizon.String()).Msg("snapshot persisted")
	}

	return nil
}
