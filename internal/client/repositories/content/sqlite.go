package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/snapkeeper/internal/common"
	"github.com/dmitrijs2005/snapkeeper/internal/cryptox"
	"github.com/dmitrijs2005/snapkeeper/internal/dbx"
)

type SQLiteStore struct {
	db dbx.DBTX
}

func NewSQLiteStore(db dbx.DBTX) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) WithTx(tx dbx.DBTX) Store {
	return &SQLiteStore{db: tx}
}

func (s *SQLiteStore) Put(ctx context.Context, ref string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content (ref, data, checksum, size, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(ref) DO UPDATE SET data = excluded.data,
			checksum = excluded.checksum,
			size = excluded.size,
			updated_at = excluded.updated_at`,
		ref, data, cryptox.Checksum(data), len(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to put content %s: %w", ref, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, ref string) ([]byte, error) {
	var (
		data     []byte
		checksum string
	)
	err := s.db.QueryRowContext(ctx, `SELECT data, checksum FROM content WHERE ref = ?`, ref).Scan(&data, &checksum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content %s: %w", ref, err)
	}
	if err := cryptox.Verify(data, checksum); err != nil {
		return nil, fmt.Errorf("content %s: %w", ref, err)
	}
	return data, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, refs ...string) error {
	for _, ref := range refs {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM content WHERE ref = ?`, ref); err != nil {
			return fmt.Errorf("failed to delete content %s: %w", ref, err)
		}
	}
	return nil
}
