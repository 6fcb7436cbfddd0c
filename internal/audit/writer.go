package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fundshare/fundshare/internal/shared"
)

// Degradation reasons.
const (
	ReasonPayloadEncoding = "payload_encoding"
	ReasonPayloadDropped  = "payload_dropped"
	ReasonNotPersisted    = "not_persisted"
)

// Write outcomes reported to metrics.
const (
	OutcomeWritten   = "written"
	OutcomeDegraded  = "degraded"
	OutcomeNotStored = "not_persisted"
)

// DegradedError reports an entry written without its payload, or not at all.
// It matches shared.ErrAuditWriteDegraded with errors.Is.
type DegradedError struct {
	Reason    string
	Action    ActionType
	AccountID int64
	Err       error
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("audit: %s entry for account %d degraded (%s): %v", e.Action, e.AccountID, e.Reason, e.Err)
}

// Is matches shared.ErrAuditWriteDegraded.
func (e *DegradedError) Is(target error) bool {
	return target == shared.ErrAuditWriteDegraded
}

func (e *DegradedError) Unwrap() error {
	return e.Err
}

// Persisted reports whether an entry reached the store.
func (e *DegradedError) Persisted() bool {
	return e.Reason != ReasonNotPersisted
}

// OutcomeRecorder receives one outcome per append.
type OutcomeRecorder interface {
	ObserveAuditWrite(action, outcome string)
}

// Writer appends audit entries. It never fails the operation it records: the only
// error it returns is *DegradedError.
type Writer struct {
	store   Store
	logger  *slog.Logger
	metrics OutcomeRecorder
	now     func() time.Time
	newID   func() (uuid.UUID, error)
}

// NewWriter constructs a writer over store.
func NewWriter(store Store, logger *slog.Logger, metrics OutcomeRecorder) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		store:   store,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
		newID:   uuid.NewV7,
	}
}

// In returns a copy of the writer bound to store, typically the audit store of an
// open unit of work.
func (w *Writer) In(store Store) *Writer {
	clone := *w
	clone.store = store
	return &clone
}

// WithClock overrides the time source.
func (w *Writer) WithClock(now func() time.Time) *Writer {
	clone := *w
	clone.now = now
	return &clone
}

// Append writes rec. A payload that cannot be encoded is replaced with a null
// payload; a failed insert is retried once without the payload.
func (w *Writer) Append(ctx context.Context, rec Record) error {
	entry, degraded := w.buildEntry(rec)

	err := w.store.Insert(ctx, entry)
	if err != nil && entry.Details != nil {
		w.logger.Warn("audit insert failed, retrying without payload",
			slog.String("action", string(rec.Action)),
			slog.Int64("account_id", rec.AccountID),
			slog.Any("error", err))
		firstErr := err
		entry.Details = nil
		if err = w.store.Insert(ctx, entry); err == nil {
			degraded = &DegradedError{Reason: ReasonPayloadDropped, Action: rec.Action, AccountID: rec.AccountID, Err: firstErr}
		}
	}
	if err != nil {
		w.logger.Error("audit entry not persisted",
			slog.String("action", string(rec.Action)),
			slog.Int64("account_id", rec.AccountID),
			slog.Int64("actor_user_id", rec.ActorUserID),
			slog.Any("error", err))
		w.observe(rec.Action, OutcomeNotStored)
		return &DegradedError{Reason: ReasonNotPersisted, Action: rec.Action, AccountID: rec.AccountID, Err: err}
	}
	if degraded != nil {
		w.logger.Warn("audit entry written without payload",
			slog.String("action", string(rec.Action)),
			slog.Int64("account_id", rec.AccountID),
			slog.Int64("actor_user_id", rec.ActorUserID),
			slog.String("reason", degraded.Reason),
			slog.Any("error", degraded.Err))
		w.observe(rec.Action, OutcomeDegraded)
		return degraded
	}
	w.observe(rec.Action, OutcomeWritten)
	return nil
}

func (w *Writer) buildEntry(rec Record) (Entry, *DegradedError) {
	id, err := w.newID()
	if err != nil {
		id = uuid.New()
	}
	entry := Entry{
		ID:          id,
		AccountID:   rec.AccountID,
		ActorUserID: rec.ActorUserID,
		Action:      rec.Action,
		Origin:      rec.Origin,
		ClientAgent: rec.ClientAgent,
		CreatedAt:   w.now().UTC(),
	}
	details := rec.Details
	if details == nil {
		details = map[string]any{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return entry, &DegradedError{Reason: ReasonPayloadEncoding, Action: rec.Action, AccountID: rec.AccountID, Err: err}
	}
	entry.Details = payload
	return entry, nil
}

func (w *Writer) observe(action ActionType, outcome string) {
	if w.metrics != nil {
		w.metrics.ObserveAuditWrite(string(action), outcome)
	}
}
