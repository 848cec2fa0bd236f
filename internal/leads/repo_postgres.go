package leads

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"voicedial-platform/internal/domain"
	"voicedial-platform/pkg/utils"
)

// PostgresRepo persists leads in the leads table.
//
// Assumed schema:
//
//	CREATE TABLE leads (
//	    id            UUID PRIMARY KEY,
//	    campaign_id   UUID NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
//	    phone_number  TEXT NOT NULL,
//	    first_name    TEXT NOT NULL DEFAULT '',
//	    last_name     TEXT NOT NULL DEFAULT '',
//	    status        TEXT NOT NULL,
//	    call_duration INT,
//	    created_at    TIMESTAMPTZ NOT NULL,
//	    updated_at    TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX leads_campaign_idx ON leads (campaign_id, status);

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const leadColumns = `id, campaign_id, phone_number, first_name, last_name, status, call_duration, created_at, updated_at`

func scanLead(row interface{ Scan(dest ...any) error }) (Lead, error) {
	var l Lead
	var dur sql.NullInt64
	err := row.Scan(
		&l.ID,
		&l.CampaignID,
		&l.PhoneNumber,
		&l.FirstName,
		&l.LastName,
		&l.Status,
		&dur,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return Lead{}, err
	}
	if dur.Valid {
		d := int(dur.Int64)
		l.CallDurationSeconds = &d
	}
	return l, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Lead, error) {
	const q = `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	l, err := scanLead(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lead{}, domain.NotFoundf("lead %s", id)
		}
		return Lead{}, err
	}
	return l, nil
}

func (r *PostgresRepo) CreateBatch(ctx context.Context, batch []Lead) error {
	return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const q = `
INSERT INTO leads (` + leadColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
		for _, l := range batch {
			var dur sql.NullInt64
			if l.CallDurationSeconds != nil {
				dur = sql.NullInt64{Int64: int64(*l.CallDurationSeconds), Valid: true}
			}
			if _, err := tx.ExecContext(ctx, q,
				l.ID, l.CampaignID, l.PhoneNumber, l.FirstName, l.LastName,
				l.Status, dur, l.CreatedAt, l.UpdatedAt,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresRepo) ListByCampaign(ctx context.Context, campaignID string) ([]Lead, error) {
	const q = `SELECT ` + leadColumns + ` FROM leads WHERE campaign_id = $1 ORDER BY created_at`
	return r.list(ctx, q, campaignID)
}

func (r *PostgresRepo) ListPending(ctx context.Context, campaignID string) ([]Lead, error) {
	const q = `SELECT ` + leadColumns + ` FROM leads WHERE campaign_id = $1 AND status = 'pending' ORDER BY created_at`
	return r.list(ctx, q, campaignID)
}

func (r *PostgresRepo) list(ctx context.Context, q string, args ...any) ([]Lead, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, id string, from, to Status, callDuration *int, now time.Time) error {
	var dur sql.NullInt64
	if callDuration != nil {
		dur = sql.NullInt64{Int64: int64(*callDuration), Valid: true}
	}
	const q = `
UPDATE leads
SET status = $1,
    call_duration = COALESCE($2, call_duration),
    updated_at = $3
WHERE id = $4 AND status = $5
`
	res, err := r.db.ExecContext(ctx, q, to, dur, now, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish missing row from stale status.
		if _, gerr := r.Get(ctx, id); gerr != nil {
			return gerr
		}
		return domain.ErrConflictingUpdate
	}
	return nil
}
