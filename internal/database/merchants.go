package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const merchantColumns = `id, name, feed_url, enabled, last_sync_at, sync_status, last_error, created_at`

func scanMerchant(row pgx.Row) (*Merchant, error) {
	var m Merchant
	err := row.Scan(&m.ID, &m.Name, &m.FeedURL, &m.Enabled, &m.LastSyncAt,
		&m.SyncStatus, &m.LastError, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMerchants returns all merchants ordered by name
func ListMerchants(ctx context.Context) ([]Merchant, error) {
	rows, err := Pool().Query(ctx,
		`SELECT `+merchantColumns+` FROM merchants ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list merchants: %w", err)
	}
	defer rows.Close()

	var merchants []Merchant
	for rows.Next() {
		m, err := scanMerchant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan merchant: %w", err)
		}
		merchants = append(merchants, *m)
	}
	return merchants, rows.Err()
}

// ListEnabledMerchants returns merchants eligible for feed syncing
func ListEnabledMerchants(ctx context.Context) ([]Merchant, error) {
	rows, err := Pool().Query(ctx,
		`SELECT `+merchantColumns+` FROM merchants WHERE enabled ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list enabled merchants: %w", err)
	}
	defer rows.Close()

	var merchants []Merchant
	for rows.Next() {
		m, err := scanMerchant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan merchant: %w", err)
		}
		merchants = append(merchants, *m)
	}
	return merchants, rows.Err()
}

// GetMerchant returns a merchant by id
func GetMerchant(ctx context.Context, id int64) (*Merchant, error) {
	m, err := scanMerchant(Pool().QueryRow(ctx,
		`SELECT `+merchantColumns+` FROM merchants WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get merchant %d: %w", id, err)
	}
	return m, nil
}

// CreateMerchant inserts a new merchant. Duplicate names are rejected.
func CreateMerchant(ctx context.Context, name, feedURL string) (*Merchant, error) {
	m, err := scanMerchant(Pool().QueryRow(ctx, `
		INSERT INTO merchants (name, feed_url)
		VALUES ($1, $2)
		RETURNING `+merchantColumns,
		name, feedURL))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("create merchant: %w", err)
	}
	return m, nil
}

// DeleteMerchant removes a merchant and, via cascade, its products
func DeleteMerchant(ctx context.Context, id int64) error {
	tag, err := Pool().Exec(ctx, `DELETE FROM merchants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete merchant %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkSyncRunning transitions a merchant into the running state
func MarkSyncRunning(ctx context.Context, id int64) error {
	_, err := Pool().Exec(ctx, `
		UPDATE merchants
		SET sync_status = $2, last_error = NULL
		WHERE id = $1`, id, SyncStatusRunning)
	return err
}

// RecordSyncResult persists the outcome of a sync run on the merchant row
func RecordSyncResult(ctx context.Context, id int64, status string, syncErr *string, at time.Time) error {
	_, err := Pool().Exec(ctx, `
		UPDATE merchants
		SET sync_status = $2, last_error = $3, last_sync_at = $4
		WHERE id = $1`, id, status, syncErr, at)
	if err != nil {
		return fmt.Errorf("record sync result for merchant %d: %w", id, err)
	}
	return nil
}

// SweepStaleSyncs marks merchants stuck in 'running' older than cutoff as errored.
// Returns the number of rows repaired.
func SweepStaleSyncs(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := Pool().Exec(ctx, `
		UPDATE merchants
		SET sync_status = $1, last_error = 'sync interrupted'
		WHERE sync_status = $2
		  AND (last_sync_at IS NULL OR last_sync_at < $3)`,
		SyncStatusError, SyncStatusRunning, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep stale syncs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
