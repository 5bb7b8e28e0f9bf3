package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository membaca audit_logs dari PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository membuat repository audit baru.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

// ListEntries mengambil jejak audit terbaru sesuai filter.
func (r *PGRepository) ListEntries(ctx context.Context, filters Filters, limit, offset int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT actor_id, action, entity, entity_id, meta, occurred_at
		FROM audit_logs
		WHERE ($1 = '' OR actor_id::text = $1)
		  AND ($2 = '' OR action = $2)
		  AND ($3 = '' OR entity = $3)
		ORDER BY occurred_at DESC
		LIMIT $4 OFFSET $5`,
		filters.Actor, filters.Action, filters.Entity, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry Entry
			meta  []byte
		)
		if err := rows.Scan(&entry.ActorID, &entry.Action, &entry.Entity, &entry.EntityID, &meta, &entry.At); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &entry.Meta)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// DeleteEntriesBefore menghapus jejak audit yang lebih tua dari batas waktu.
func (r *PGRepository) DeleteEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
