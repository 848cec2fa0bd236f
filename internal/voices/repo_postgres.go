package voices

import (
	"context"
	"database/sql"
	"errors"

	"voicedial-platform/internal/domain"
)

// PostgresRepo persists the voice catalog in the voices table.
//
// Assumed schema:
//
//	CREATE TABLE voices (
//	    id                UUID PRIMARY KEY,
//	    provider_voice_id TEXT NOT NULL UNIQUE,
//	    name              TEXT NOT NULL,
//	    category          TEXT NOT NULL DEFAULT '',
//	    preview_url       TEXT NOT NULL DEFAULT '',
//	    created_at        TIMESTAMPTZ NOT NULL
//	);

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const voiceColumns = `id, provider_voice_id, name, category, preview_url, created_at`

func (r *PostgresRepo) Get(ctx context.Context, id string) (Voice, error) {
	const q = `SELECT ` + voiceColumns + ` FROM voices WHERE id = $1`
	var v Voice
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&v.ID, &v.ProviderVoiceID, &v.Name, &v.Category, &v.PreviewURL, &v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Voice{}, domain.NotFoundf("voice %s", id)
		}
		return Voice{}, err
	}
	return v, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Voice, error) {
	const q = `SELECT ` + voiceColumns + ` FROM voices ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Voice
	for rows.Next() {
		var v Voice
		if err := rows.Scan(&v.ID, &v.ProviderVoiceID, &v.Name, &v.Category, &v.PreviewURL, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Upsert(ctx context.Context, v Voice) error {
	const q = `
INSERT INTO voices (` + voiceColumns + `)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (provider_voice_id)
DO UPDATE SET name = EXCLUDED.name, category = EXCLUDED.category, preview_url = EXCLUDED.preview_url
`
	_, err := r.db.ExecContext(ctx, q, v.ID, v.ProviderVoiceID, v.Name, v.Category, v.PreviewURL, v.CreatedAt)
	return err
}
