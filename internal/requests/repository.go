package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fundshare/fundshare/internal/permissions"
	"github.com/fundshare/fundshare/internal/platform/db"
	"github.com/fundshare/fundshare/internal/shared"
)

const (
	requestColumns = `r.id, r.account_id, r.requester_id, r.requested_level, r.current_level, r.message,
r.status, r.reviewer_id, r.review_message, r.created_at, r.reviewed_at`
	// onePendingIndex is the partial unique index on (account_id, requester_id) WHERE status = 'PENDING'.
	onePendingIndex = "permission_requests_one_pending"
)

// PGStore provides PostgreSQL backed persistence for requests.
type PGStore struct {
	q db.Querier
}

// NewPGStore constructs a store over a pool or an open transaction.
func NewPGStore(q db.Querier) *PGStore {
	return &PGStore{q: q}
}

// Get returns the request by ID.
func (s *PGStore) Get(ctx context.Context, id int64) (Request, error) {
	return scanRequest(s.q.QueryRow(ctx, `SELECT `+requestColumns+` FROM permission_requests r WHERE r.id = $1`, id))
}

// GetForUpdate returns the request and holds a row lock on it.
func (s *PGStore) GetForUpdate(ctx context.Context, id int64) (Request, error) {
	return scanRequest(s.q.QueryRow(ctx, `SELECT `+requestColumns+` FROM permission_requests r WHERE r.id = $1 FOR UPDATE`, id))
}

// FindPending returns the pending request for the pair.
func (s *PGStore) FindPending(ctx context.Context, accountID, requesterID int64) (Request, error) {
	return scanRequest(s.q.QueryRow(ctx, `SELECT `+requestColumns+` FROM permission_requests r
WHERE r.account_id = $1 AND r.requester_id = $2 AND r.status = 'PENDING'`, accountID, requesterID))
}

// Insert creates a pending request.
func (s *PGStore) Insert(ctx context.Context, r Request) (Request, error) {
	row := s.q.QueryRow(ctx, `INSERT INTO permission_requests AS r
	(account_id, requester_id, requested_level, current_level, message, status)
VALUES ($1, $2, $3, $4, $5, 'PENDING')
RETURNING `+requestColumns,
		r.AccountID, r.RequesterID, int16(r.RequestedLevel), int16(r.CurrentLevel), optionalText(r.Message))
	created, err := scanRequest(row)
	if err != nil {
		if db.IsUniqueViolation(err, onePendingIndex) {
			return Request{}, fmt.Errorf("requests: insert account %d requester %d: %w", r.AccountID, r.RequesterID, shared.ErrDuplicateRequest)
		}
		return Request{}, err
	}
	return created, nil
}

// Update writes the reviewed fields. The status guard makes a second transition a no-op
// that surfaces as shared.ErrInvalidState.
func (s *PGStore) Update(ctx context.Context, r Request) error {
	var reviewer pgtype.Int8
	if r.ReviewerID != nil {
		reviewer = pgtype.Int8{Int64: *r.ReviewerID, Valid: true}
	}
	tag, err := s.q.Exec(ctx, `UPDATE permission_requests
SET status = $2, reviewer_id = $3, review_message = $4, reviewed_at = $5
WHERE id = $1 AND status = 'PENDING'`,
		r.ID, string(r.Status), reviewer, optionalText(r.ReviewMessage), toPgTime(r.ReviewedAt))
	if err != nil {
		return fmt.Errorf("requests: update %d: %w", r.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("requests: update %d: %w", r.ID, shared.ErrInvalidState)
	}
	return nil
}

// List returns requests matching filter, newest first.
func (s *PGStore) List(ctx context.Context, filter ListFilter) ([]Request, error) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	from := `permission_requests r`
	if filter.OwnerID > 0 {
		from += ` JOIN accounts a ON a.id = r.account_id`
		add("a.owner_id = $%d", filter.OwnerID)
	}
	if filter.AccountID > 0 {
		add("r.account_id = $%d", filter.AccountID)
	}
	if filter.RequesterID > 0 {
		add("r.requester_id = $%d", filter.RequesterID)
	}
	if filter.ReviewerID > 0 {
		add("r.reviewer_id = $%d", filter.ReviewerID)
	}
	if filter.Status != "" {
		add("r.status = $%d", string(filter.Status))
	}
	if !filter.From.IsZero() {
		add("r.created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("r.created_at < $%d", filter.To)
	}
	query := `SELECT ` + requestColumns + ` FROM ` + from
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	page := filter.Page.Normalize()
	args = append(args, page.Limit(), page.Offset())
	query += fmt.Sprintf(` ORDER BY r.created_at DESC, r.id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("requests: list: %w", err)
	}
	defer rows.Close()
	var out []Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("requests: list: %w", err)
	}
	return out, nil
}

func scanRequest(row pgx.Row) (Request, error) {
	var (
		r             Request
		requested     int16
		current       int16
		message       pgtype.Text
		status        string
		reviewer      pgtype.Int8
		reviewMessage pgtype.Text
		reviewedAt    pgtype.Timestamptz
	)
	err := row.Scan(&r.ID, &r.AccountID, &r.RequesterID, &requested, &current, &message,
		&status, &reviewer, &reviewMessage, &r.CreatedAt, &reviewedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, shared.ErrNotFound
		}
		return Request{}, err
	}
	r.RequestedLevel = permissions.Level(requested)
	r.CurrentLevel = permissions.Level(current)
	r.Message = message.String
	r.Status = Status(status)
	if reviewer.Valid {
		id := reviewer.Int64
		r.ReviewerID = &id
	}
	r.ReviewMessage = reviewMessage.String
	if reviewedAt.Valid {
		ts := reviewedAt.Time
		r.ReviewedAt = &ts
	}
	return r, nil
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}

func toPgTime(t *time.Time) pgtype.Timestamptz {
	if t == nil || t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}
