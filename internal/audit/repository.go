package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fundshare/fundshare/internal/platform/db"
)

const entryColumns = `id, account_id, actor_user_id, action, details, origin, client_agent, created_at`

// PGStore provides PostgreSQL backed persistence for the audit log.
type PGStore struct {
	q db.Querier
}

// NewPGStore constructs a store over a pool or an open transaction.
func NewPGStore(q db.Querier) *PGStore {
	return &PGStore{q: q}
}

// Insert appends e inside a savepoint so a failure never poisons an enclosing
// transaction.
func (s *PGStore) Insert(ctx context.Context, e Entry) error {
	return db.WithSavepoint(ctx, s.q, func(tx pgx.Tx) error {
		var details []byte
		if e.Details != nil {
			details = e.Details
		}
		_, err := tx.Exec(ctx, `INSERT INTO audit_log (`+entryColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			pgtype.UUID{Bytes: e.ID, Valid: true}, e.AccountID, e.ActorUserID, string(e.Action),
			details, optionalText(e.Origin), optionalText(e.ClientAgent), e.CreatedAt)
		if err != nil {
			return fmt.Errorf("audit: insert: %w", err)
		}
		return nil
	})
}

// List returns entries matching filter, newest first.
func (s *PGStore) List(ctx context.Context, filter Filter) ([]Entry, error) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.AccountID > 0 {
		add("account_id = $%d", filter.AccountID)
	}
	if filter.ActorUserID > 0 {
		add("actor_user_id = $%d", filter.ActorUserID)
	}
	if filter.Action != "" {
		add("action = $%d", string(filter.Action))
	}
	if !filter.From.IsZero() {
		add("created_at >= $%d", toPgTime(filter.From))
	}
	if !filter.To.IsZero() {
		add("created_at < $%d", toPgTime(filter.To))
	}
	query := `SELECT ` + entryColumns + ` FROM audit_log`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	page := filter.Page.Normalize()
	args = append(args, page.Limit(), page.Offset())
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e           Entry
			id          pgtype.UUID
			action      string
			details     []byte
			origin      pgtype.Text
			clientAgent pgtype.Text
		)
		if err := rows.Scan(&id, &e.AccountID, &e.ActorUserID, &action, &details, &origin, &clientAgent, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		e.ID = uuid.UUID(id.Bytes)
		e.Action = ActionType(action)
		if details != nil {
			e.Details = details
		}
		e.Origin = origin.String
		e.ClientAgent = clientAgent.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	return out, nil
}

// PurgeBefore deletes entries older than cutoff.
func (s *PGStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.q.Exec(ctx, `DELETE FROM audit_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit: purge: %w", err)
	}
	return tag.RowsAffected(), nil
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}
