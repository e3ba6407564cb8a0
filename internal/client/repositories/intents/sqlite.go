package intents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/snapkeeper/internal/client/models"
	"github.com/dmitrijs2005/snapkeeper/internal/common"
	"github.com/dmitrijs2005/snapkeeper/internal/dbx"
)

type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// Put keeps the original queued_at so a re-decided intent keeps its place.
func (r *SQLiteRepository) Put(ctx context.Context, in models.Intent) error {
	if err := in.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO intents (record_id, guid, direction, include_media, queued_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(record_id, guid) DO UPDATE SET direction = excluded.direction,
			include_media = excluded.include_media`,
		in.RecordID, in.GUID, string(in.Direction), in.IncludeMedia, r.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to upsert intent (%d, %q): %w", in.RecordID, in.GUID, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, key models.IntentKey) (*models.Intent, error) {
	var (
		in        models.Intent
		direction string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT record_id, guid, direction, include_media FROM intents
		WHERE record_id = ? AND guid = ?`, key.RecordID, key.GUID).
		Scan(&in.RecordID, &in.GUID, &direction, &in.IncludeMedia)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get intent (%d, %q): %w", key.RecordID, key.GUID, err)
	}
	in.Direction = models.Direction(direction)
	return &in, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Intent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT record_id, guid, direction, include_media FROM intents
		ORDER BY queued_at, record_id, guid`)
	if err != nil {
		return nil, fmt.Errorf("failed to select intents: %w", err)
	}
	defer rows.Close()

	var result []models.Intent
	for rows.Next() {
		var (
			in        models.Intent
			direction string
		)
		if err := rows.Scan(&in.RecordID, &in.GUID, &direction, &in.IncludeMedia); err != nil {
			return nil, fmt.Errorf("failed to scan intent: %w", err)
		}
		in.Direction = models.Direction(direction)
		result = append(result, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate intents: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, key models.IntentKey) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM intents WHERE record_id = ? AND guid = ?`, key.RecordID, key.GUID)
	if err != nil {
		return fmt.Errorf("failed to remove intent (%d, %q): %w", key.RecordID, key.GUID, err)
	}
	return nil
}

func (r *SQLiteRepository) RemoveByRecord(ctx context.Context, recordID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM intents WHERE record_id = ?`, recordID)
	if err != nil {
		return fmt.Errorf("failed to remove intents of record %d: %w", recordID, err)
	}
	return nil
}
