package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/snapkeeper/internal/client/models"
	"github.com/dmitrijs2005/snapkeeper/internal/common"
	"github.com/dmitrijs2005/snapkeeper/internal/dbx"
)

const selectColumns = `id, guid, original_ref, edited_ref, thumbnail_ref, transform,
	local_image_changes, local_filter_changes, last_sync_version`

// SQLiteRepository implements Repository over a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Save(ctx context.Context, rec *models.Record) (int64, error) {
	transform, err := json.Marshal(rec.Transform)
	if err != nil {
		return 0, fmt.Errorf("failed to encode transform: %w", err)
	}

	if rec.ID == 0 {
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO records (guid, original_ref, edited_ref, thumbnail_ref, transform,
				local_image_changes, local_filter_changes, last_sync_version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.GUID, nullString(rec.OriginalRef), nullString(rec.EditedRef), nullString(rec.ThumbnailRef),
			string(transform), rec.LocalImageChanges, rec.LocalFilterChanges, rec.LastSyncVersion)
		if err != nil {
			return 0, fmt.Errorf("failed to insert record: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to get record id: %w", err)
		}
		return id, nil
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO records (id, guid, original_ref, edited_ref, thumbnail_ref, transform,
			local_image_changes, local_filter_changes, last_sync_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET guid = excluded.guid,
			original_ref = excluded.original_ref,
			edited_ref = excluded.edited_ref,
			thumbnail_ref = excluded.thumbnail_ref,
			transform = excluded.transform,
			local_image_changes = excluded.local_image_changes,
			local_filter_changes = excluded.local_filter_changes,
			last_sync_version = excluded.last_sync_version`,
		rec.ID, rec.GUID, nullString(rec.OriginalRef), nullString(rec.EditedRef), nullString(rec.ThumbnailRef),
		string(transform), rec.LocalImageChanges, rec.LocalFilterChanges, rec.LastSyncVersion)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert record %d: %w", rec.ID, err)
	}
	return rec.ID, nil
}

func (r *SQLiteRepository) UpdateLocal(ctx context.Context, id int64, u models.LocalUpdate) error {
	var (
		sets []string
		args []any
	)
	for _, col := range []struct {
		name string
		ref  *string
	}{
		{"original_ref", u.OriginalRef},
		{"edited_ref", u.EditedRef},
		{"thumbnail_ref", u.ThumbnailRef},
	} {
		if col.ref != nil {
			sets = append(sets, col.name+" = ?")
			args = append(args, nullString(col.ref))
		}
	}
	if u.Transform != nil {
		transform, err := json.Marshal(u.Transform)
		if err != nil {
			return fmt.Errorf("failed to encode transform: %w", err)
		}
		sets = append(sets, "transform = ?")
		args = append(args, string(transform))
	}
	if u.ImageChanged {
		sets = append(sets, "local_image_changes = 1")
	}
	if u.FilterChanged {
		sets = append(sets, "local_filter_changes = 1")
	}
	if len(sets) == 0 {
		sets = append(sets, "id = id")
	}

	res, err := r.db.ExecContext(ctx, `UPDATE records SET `+strings.Join(sets, ", ")+` WHERE id = ?`, append(args, id)...)
	if err != nil {
		return fmt.Errorf("failed to update record %d: %w", id, err)
	}
	return mustAffect(res, id)
}

func (r *SQLiteRepository) SetGUID(ctx context.Context, id int64, guid string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE records SET guid = ? WHERE id = ?`, guid, id)
	if err != nil {
		return fmt.Errorf("failed to link record %d: %w", id, err)
	}
	return mustAffect(res, id)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64, guid string, version int64, sent models.Transform, imageSynced bool) error {
	transform, err := json.Marshal(sent)
	if err != nil {
		return fmt.Errorf("failed to encode transform: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE records SET guid = ?, last_sync_version = ?,
			local_filter_changes = CASE WHEN transform = ? THEN 0 ELSE local_filter_changes END,
			local_image_changes = CASE WHEN ? THEN 0 ELSE local_image_changes END
		WHERE id = ?`,
		guid, version, string(transform), imageSynced, id)
	if err != nil {
		return fmt.Errorf("failed to mark record %d synced: %w", id, err)
	}
	return mustAffect(res, id)
}

func (r *SQLiteRepository) ApplyRemote(ctx context.Context, rec *models.Record) error {
	transform, err := json.Marshal(rec.Transform)
	if err != nil {
		return fmt.Errorf("failed to encode transform: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE records SET guid = ?, original_ref = ?, edited_ref = ?, thumbnail_ref = ?,
			transform = ?, last_sync_version = ?
		WHERE id = ? AND local_image_changes = 0 AND local_filter_changes = 0`,
		rec.GUID, nullString(rec.OriginalRef), nullString(rec.EditedRef), nullString(rec.ThumbnailRef),
		string(transform), rec.LastSyncVersion, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to apply remote state to record %d: %w", rec.ID, err)
	}
	return mustAffect(res, rec.ID)
}

func mustAffect(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update record %d: %w", id, err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %d: %w", id, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) GetByGUID(ctx context.Context, guid string) (*models.Record, error) {
	if guid == "" {
		return nil, common.ErrorNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM records WHERE guid = ? ORDER BY id LIMIT 1`, guid)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record by guid %s: %w", guid, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete record %d: %w", id, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.Record, error) {
	var (
		rec                         models.Record
		original, edited, thumbnail sql.NullString
		transform                   string
	)
	err := s.Scan(&rec.ID, &rec.GUID, &original, &edited, &thumbnail, &transform,
		&rec.LocalImageChanges, &rec.LocalFilterChanges, &rec.LastSyncVersion)
	if err != nil {
		return nil, err
	}

	rec.OriginalRef = refFromNull(original)
	rec.EditedRef = refFromNull(edited)
	rec.ThumbnailRef = refFromNull(thumbnail)

	// Missing keys keep their defaults.
	rec.Transform = models.DefaultTransform()
	if transform != "" {
		if err := json.Unmarshal([]byte(transform), &rec.Transform); err != nil {
			return nil, fmt.Errorf("failed to decode transform: %w", err)
		}
	}
	return &rec, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func refFromNull(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return models.Ref(v.String)
}
