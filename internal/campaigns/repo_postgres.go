package campaigns

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"voicedial-platform/internal/domain"
	"voicedial-platform/pkg/utils"
)

// PostgresRepo persists campaigns in the campaigns table.
//
// Assumed schema:
//
//	CREATE TABLE campaigns (
//	    id               UUID PRIMARY KEY,
//	    name             TEXT NOT NULL,
//	    prompt           TEXT NOT NULL DEFAULT '',
//	    voice_id         TEXT NOT NULL DEFAULT '',
//	    status           TEXT NOT NULL,
//	    total_leads      INT NOT NULL DEFAULT 0,
//	    completed_calls  INT NOT NULL DEFAULT 0,
//	    successful_calls INT NOT NULL DEFAULT 0,
//	    failed_calls     INT NOT NULL DEFAULT 0,
//	    created_at       TIMESTAMPTZ NOT NULL,
//	    updated_at       TIMESTAMPTZ NOT NULL
//	);
//
// Leads and call_logs reference campaigns(id) ON DELETE CASCADE, which gives
// the cascade-delete ownership semantics.
//
// Counter increments are single UPDATE statements, so they are linearizable
// per row without an explicit lock; status changes use a compare-and-swap
// WHERE clause inside a transaction.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const campaignColumns = `id, name, prompt, voice_id, status, total_leads, completed_calls, successful_calls, failed_calls, created_at, updated_at`

func scanCampaign(row interface{ Scan(dest ...any) error }) (Campaign, error) {
	var c Campaign
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Prompt,
		&c.VoiceID,
		&c.Status,
		&c.TotalLeads,
		&c.CompletedCalls,
		&c.SuccessfulCalls,
		&c.FailedCalls,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Campaign, error) {
	const q = `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	c, err := scanCampaign(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Campaign{}, domain.NotFoundf("campaign %s", id)
		}
		return Campaign{}, err
	}
	return c, nil
}

func (r *PostgresRepo) Create(ctx context.Context, c Campaign) error {
	const q = `
INSERT INTO campaigns (` + campaignColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`
	_, err := r.db.ExecContext(ctx, q,
		c.ID, c.Name, c.Prompt, c.VoiceID, c.Status,
		c.TotalLeads, c.CompletedCalls, c.SuccessfulCalls, c.FailedCalls,
		c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) List(ctx context.Context) ([]Campaign, error) {
	const q = `SELECT ` + campaignColumns + ` FROM campaigns ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, id string, from, to Status, now time.Time) error {
	return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		// Lock the row to serialize concurrent status changes per campaign.
		const lockQ = `SELECT status FROM campaigns WHERE id = $1 FOR UPDATE`
		var current Status
		if err := tx.QueryRowContext(ctx, lockQ, id).Scan(&current); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.NotFoundf("campaign %s", id)
			}
			return err
		}
		if current != from {
			return domain.ErrConflictingUpdate
		}

		const updQ = `UPDATE campaigns SET status = $1, updated_at = $2 WHERE id = $3`
		_, err := tx.ExecContext(ctx, updQ, to, now, id)
		return err
	})
}

func (r *PostgresRepo) IncrementCounters(ctx context.Context, id string, completed, successful, failed int, now time.Time) error {
	const q = `
UPDATE campaigns
SET completed_calls = completed_calls + $1,
    successful_calls = successful_calls + $2,
    failed_calls = failed_calls + $3,
    updated_at = $4
WHERE id = $5
`
	res, err := r.db.ExecContext(ctx, q, completed, successful, failed, now, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFoundf("campaign %s", id)
	}
	return nil
}

func (r *PostgresRepo) IncrementTotalLeads(ctx context.Context, id string, n int, now time.Time) error {
	const q = `UPDATE campaigns SET total_leads = total_leads + $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, q, n, now, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.NotFoundf("campaign %s", id)
	}
	return nil
}
