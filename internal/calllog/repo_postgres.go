package calllog

import (
	"context"
	"database/sql"
	"errors"

	"voicedial-platform/internal/domain"
)

// PostgresRepo persists call logs in the call_logs table.
//
// Assumed schema:
//
//	CREATE TABLE call_logs (
//	    id               UUID PRIMARY KEY,
//	    campaign_id      UUID REFERENCES campaigns(id) ON DELETE CASCADE,
//	    lead_id          UUID,
//	    phone_number     TEXT NOT NULL,
//	    status           TEXT NOT NULL,
//	    duration         INT,
//	    provider_call_id TEXT NOT NULL DEFAULT '',
//	    conversation_id  TEXT NOT NULL DEFAULT '',
//	    created_at       TIMESTAMPTZ NOT NULL,
//	    updated_at       TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX call_logs_campaign_idx ON call_logs (campaign_id, created_at);
//	CREATE INDEX call_logs_provider_idx ON call_logs (provider_call_id);
//
// campaign_id/lead_id are nullable in storage and mapped to empty strings
// here; lead_id deliberately has no FK so a deleted lead leaves the ledger
// intact (the classification query treats it as a test call).

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const callLogColumns = `id, campaign_id, lead_id, phone_number, status, duration, provider_call_id, conversation_id, created_at, updated_at`

func scanCallLog(row interface{ Scan(dest ...any) error }) (CallLog, error) {
	var cl CallLog
	var campaignID, leadID sql.NullString
	var dur sql.NullInt64
	err := row.Scan(
		&cl.ID,
		&campaignID,
		&leadID,
		&cl.PhoneNumber,
		&cl.Status,
		&dur,
		&cl.ProviderCallID,
		&cl.ConversationID,
		&cl.CreatedAt,
		&cl.UpdatedAt,
	)
	if err != nil {
		return CallLog{}, err
	}
	cl.CampaignID = campaignID.String
	cl.LeadID = leadID.String
	if dur.Valid {
		d := int(dur.Int64)
		cl.DurationSeconds = &d
	}
	return cl, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (CallLog, error) {
	const q = `SELECT ` + callLogColumns + ` FROM call_logs WHERE id = $1`
	cl, err := scanCallLog(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallLog{}, domain.NotFoundf("call log %s", id)
		}
		return CallLog{}, err
	}
	return cl, nil
}

func (r *PostgresRepo) GetByProviderCallID(ctx context.Context, providerCallID string) (CallLog, error) {
	const q = `SELECT ` + callLogColumns + ` FROM call_logs WHERE provider_call_id = $1 LIMIT 1`
	cl, err := scanCallLog(r.db.QueryRowContext(ctx, q, providerCallID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallLog{}, domain.NotFoundf("call log with provider id %s", providerCallID)
		}
		return CallLog{}, err
	}
	return cl, nil
}

func (r *PostgresRepo) Create(ctx context.Context, cl CallLog) error {
	const q = `
INSERT INTO call_logs (` + callLogColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`
	var dur sql.NullInt64
	if cl.DurationSeconds != nil {
		dur = sql.NullInt64{Int64: int64(*cl.DurationSeconds), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q,
		cl.ID, nullIfEmpty(cl.CampaignID), nullIfEmpty(cl.LeadID), cl.PhoneNumber,
		cl.Status, dur, cl.ProviderCallID, cl.ConversationID,
		cl.CreatedAt, cl.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) Update(ctx context.Context, cl CallLog, from Status) error {
	const q = `
UPDATE call_logs
SET status = $1, duration = $2, conversation_id = $3, updated_at = $4
WHERE id = $5 AND status = $6
`
	var dur sql.NullInt64
	if cl.DurationSeconds != nil {
		dur = sql.NullInt64{Int64: int64(*cl.DurationSeconds), Valid: true}
	}
	res, err := r.db.ExecContext(ctx, q, cl.Status, dur, cl.ConversationID, cl.UpdatedAt, cl.ID, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, gerr := r.Get(ctx, cl.ID); gerr != nil {
			return gerr
		}
		return domain.ErrConflictingUpdate
	}
	return nil
}

func (r *PostgresRepo) ListByCampaign(ctx context.Context, campaignID string) ([]CallLog, error) {
	const q = `SELECT ` + callLogColumns + ` FROM call_logs WHERE campaign_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallLog
	for rows.Next() {
		cl, err := scanCallLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cl)
	}
	return out, rows.Err()
}
