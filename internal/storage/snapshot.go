package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ecocal/internal/table"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	createEventsTableSQL = `CREATE TABLE IF NOT EXISTS calendar_events (
        event_id      TEXT        NOT NULL,
        horizon_start DATE        NOT NULL,
        horizon_end   DATE        NOT NULL,
        row           JSONB       NOT NULL,
        fetched_at    TIMESTAMPTZ NOT NULL,
        PRIMARY KEY (event_id, horizon_start, horizon_end)
    );`

	upsertEventSQL = `INSERT INTO calendar_events (
        event_id,
        horizon_start,
        horizon_end,
        row,
        fetched_at
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    ON CONFLICT (event_id, horizon_start, horizon_end) DO UPDATE
    SET
        row        = EXCLUDED.row,
        fetched_at = EXCLUDED.fetched_at;`

	countEventsSQL = `SELECT COUNT(*) FROM calendar_events
    WHERE horizon_start = $1 AND horizon_end = $2;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// Snapshot is one export of a calendar table for a horizon.
type Snapshot struct {
	HorizonStart time.Time
	HorizonEnd   time.Time
	IDColumn     string
	Table        *table.Table
	FetchedAt    time.Time
}

// SnapshotStore persists calendar snapshots.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap Snapshot) (int, error)
	CountEvents(ctx context.Context, horizonStart, horizonEnd time.Time) (int64, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store writes calendar snapshots to PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// EnsureSchema creates the snapshot table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, createEventsTableSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveSnapshot upserts every row of the snapshot table in one batch and
// returns the number of rows written. Rows with an empty identifier are
// skipped.
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) (int, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	if snap.Table == nil {
		return 0, errors.New("save snapshot: no table")
	}

	idIdx := snap.Table.ColumnIndex(snap.IDColumn)
	if idIdx < 0 {
		return 0, fmt.Errorf("save snapshot: %w: %s", table.ErrMissingColumn, snap.IDColumn)
	}

	batch := &pgx.Batch{}
	for i, row := range snap.Table.Rows {
		id := row[idIdx].String()
		if id == "" {
			continue
		}
		payload, err := RowJSON(snap.Table.Columns, row)
		if err != nil {
			return 0, fmt.Errorf("save snapshot: row %d: %w", i, err)
		}
		batch.Queue(upsertEventSQL, id, snap.HorizonStart, snap.HorizonEnd, payload, snap.FetchedAt)
	}
	if batch.Len() == 0 {
		return 0, nil
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("upsert calendar event: %w", err)
		}
	}
	return batch.Len(), nil
}

// CountEvents counts stored events for a horizon.
func (s *Store) CountEvents(ctx context.Context, horizonStart, horizonEnd time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countEventsSQL, horizonStart, horizonEnd).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count events: %w", scanErr)
	}
	return count, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

// RowJSON encodes a row as a JSON object keyed by column. Numbers keep
// their exact decimal text and nulls become JSON null.
func RowJSON(columns []string, row []table.Value) ([]byte, error) {
	obj := make(map[string]any, len(columns))
	for i, col := range columns {
		if i >= len(row) {
			obj[col] = nil
			continue
		}
		v := row[i]
		switch v.Kind {
		case table.KindNumber:
			obj[col] = json.Number(v.Num.String())
		case table.KindString:
			obj[col] = v.Str
		default:
			obj[col] = nil
		}
	}
	return json.Marshal(obj)
}

var (
	_ SnapshotStore  = (*Store)(nil)
	_ AdvisoryLocker = (*Store)(nil)
)
