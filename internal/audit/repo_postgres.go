package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo persists audit events.
//
// Schema:
//
//	CREATE TABLE audit_events (
//	    id            UUID PRIMARY KEY,
//	    type          TEXT NOT NULL,
//	    actor_user_id TEXT NOT NULL DEFAULT '',
//	    campaign_id   TEXT NOT NULL DEFAULT '',
//	    lead_id       TEXT NOT NULL DEFAULT '',
//	    call_log_id   TEXT NOT NULL DEFAULT '',
//	    message       TEXT NOT NULL DEFAULT '',
//	    metadata      TEXT NOT NULL DEFAULT '',
//	    created_at    TIMESTAMPTZ NOT NULL
//	);
//
// INSERT-only; no UPDATE or DELETE statements exist against this table.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
		INSERT INTO audit_events
			(id, type, actor_user_id, campaign_id, lead_id, call_log_id, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, string(e.Type), e.ActorUserID, e.CampaignID, e.LeadID, e.CallLogID, e.Message, e.Metadata, e.CreatedAt,
	)
	return err
}
