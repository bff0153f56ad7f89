package provenance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Create(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO provenance (id, activity, agent_display, recorded, detail)
		VALUES ($1,$2,$3,$4,$5)`,
		rec.ID, rec.Activity, rec.AgentDisplay, rec.Recorded, rec.Detail)
	if err != nil {
		return fmt.Errorf("insert provenance: %w", err)
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, activity, agent_display, recorded, detail, created_at
		FROM provenance ORDER BY recorded DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list provenance: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Activity, &rec.AgentDisplay, &rec.Recorded, &rec.Detail, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan provenance: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
