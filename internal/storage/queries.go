package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX lets the query layer run against either the pool or a transaction.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// Entry is the database row shape. Dates and times of day are stored as the
// same strings the flat-file backend uses, so the two backends stay
// interchangeable.
type Entry struct {
	ID         int64
	EntryDate  string
	EntryTime  string
	Label      string
	Calories   float64
	Protein    float64
	SyncStatus string
	Version    int64
	CreatedAt  time.Time
}

type CreateEntryParams struct {
	EntryDate string
	EntryTime string
	Label     string
	Calories  float64
	Protein   float64
}

const createEntry = `
INSERT INTO entries (entry_date, entry_time, label, calories, protein)
VALUES (?, ?, ?, ?, ?)
RETURNING id, entry_date, entry_time, label, calories, protein, sync_status, version, created_at
`

func (q *Queries) CreateEntry(ctx context.Context, arg CreateEntryParams) (Entry, error) {
	row := q.db.QueryRowContext(ctx, createEntry,
		arg.EntryDate, arg.EntryTime, arg.Label, arg.Calories, arg.Protein)
	var e Entry
	err := row.Scan(&e.ID, &e.EntryDate, &e.EntryTime, &e.Label,
		&e.Calories, &e.Protein, &e.SyncStatus, &e.Version, &e.CreatedAt)
	return e, err
}

const getEntry = `
SELECT id, entry_date, entry_time, label, calories, protein, sync_status, version, created_at
FROM entries
WHERE id = ? AND deleted_at IS NULL
`

func (q *Queries) GetEntry(ctx context.Context, id int64) (Entry, error) {
	row := q.db.QueryRowContext(ctx, getEntry, id)
	var e Entry
	err := row.Scan(&e.ID, &e.EntryDate, &e.EntryTime, &e.Label,
		&e.Calories, &e.Protein, &e.SyncStatus, &e.Version, &e.CreatedAt)
	return e, err
}

const listEntries = `
SELECT id, entry_date, entry_time, label, calories, protein, sync_status, version, created_at
FROM entries
WHERE deleted_at IS NULL
ORDER BY entry_date, entry_time, id
`

func (q *Queries) ListEntries(ctx context.Context) ([]Entry, error) {
	rows, err := q.db.QueryContext(ctx, listEntries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

const listEntriesByDateRange = `
SELECT id, entry_date, entry_time, label, calories, protein, sync_status, version, created_at
FROM entries
WHERE deleted_at IS NULL AND entry_date >= ? AND entry_date <= ?
ORDER BY entry_date, entry_time, id
`

func (q *Queries) ListEntriesByDateRange(ctx context.Context, start, end string) ([]Entry, error) {
	rows, err := q.db.QueryContext(ctx, listEntriesByDateRange, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

type UpdateEntryParams struct {
	ID        int64
	EntryDate string
	EntryTime string
	Label     string
	Calories  float64
	Protein   float64
}

const updateEntry = `
UPDATE entries
SET entry_date = ?, entry_time = ?, label = ?, calories = ?, protein = ?,
    sync_status = 'pending', version = version + 1, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND deleted_at IS NULL
`

func (q *Queries) UpdateEntry(ctx context.Context, arg UpdateEntryParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateEntry,
		arg.EntryDate, arg.EntryTime, arg.Label, arg.Calories, arg.Protein, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const softDeleteEntry = `
UPDATE entries
SET deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND deleted_at IS NULL
`

func (q *Queries) SoftDeleteEntry(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, softDeleteEntry, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getPendingSyncEntries = `
SELECT id, entry_date, entry_time, label, calories, protein, sync_status, version, created_at
FROM entries
WHERE deleted_at IS NULL AND sync_status = 'pending'
ORDER BY id
LIMIT ?
`

func (q *Queries) GetPendingSyncEntries(ctx context.Context, limit int64) ([]Entry, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSyncEntries, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

const markEntrySynced = `
UPDATE entries SET sync_status = 'synced', updated_at = CURRENT_TIMESTAMP WHERE id = ?
`

func (q *Queries) MarkEntrySynced(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markEntrySynced, id)
	return err
}

const markEntrySyncError = `
UPDATE entries SET sync_status = 'error', updated_at = CURRENT_TIMESTAMP WHERE id = ?
`

func (q *Queries) MarkEntrySyncError(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markEntrySyncError, id)
	return err
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.EntryDate, &e.EntryTime, &e.Label,
			&e.Calories, &e.Protein, &e.SyncStatus, &e.Version, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// RecurringEntry is the row shape for standing meal templates.
type RecurringEntry struct {
	ID             int64
	Label          string
	Calories       float64
	Protein        float64
	EntryTime      string
	RepeatInterval string
	StartDate      string
	EndDate        sql.NullString
	LastApplied    sql.NullString
	Active         bool
}

type CreateRecurringEntryParams struct {
	Label          string
	Calories       float64
	Protein        float64
	EntryTime      string
	RepeatInterval string
	StartDate      string
	EndDate        sql.NullString
}

const createRecurringEntry = `
INSERT INTO recurring_entries (label, calories, protein, entry_time, repeat_interval, start_date, end_date)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

func (q *Queries) CreateRecurringEntry(ctx context.Context, arg CreateRecurringEntryParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createRecurringEntry,
		arg.Label, arg.Calories, arg.Protein, arg.EntryTime,
		arg.RepeatInterval, arg.StartDate, arg.EndDate)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const listActiveRecurringEntries = `
SELECT id, label, calories, protein, entry_time, repeat_interval, start_date, end_date, last_applied, active
FROM recurring_entries
WHERE active = 1
ORDER BY id
`

func (q *Queries) ListActiveRecurringEntries(ctx context.Context) ([]RecurringEntry, error) {
	rows, err := q.db.QueryContext(ctx, listActiveRecurringEntries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RecurringEntry
	for rows.Next() {
		var r RecurringEntry
		if err := rows.Scan(&r.ID, &r.Label, &r.Calories, &r.Protein, &r.EntryTime,
			&r.RepeatInterval, &r.StartDate, &r.EndDate, &r.LastApplied, &r.Active); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const markRecurringApplied = `
UPDATE recurring_entries SET last_applied = ? WHERE id = ?
`

func (q *Queries) MarkRecurringApplied(ctx context.Context, id int64, appliedOn string) error {
	_, err := q.db.ExecContext(ctx, markRecurringApplied, appliedOn, id)
	return err
}

const deactivateRecurringEntry = `
UPDATE recurring_entries SET active = 0 WHERE id = ?
`

func (q *Queries) DeactivateRecurringEntry(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deactivateRecurringEntry, id)
	return err
}
