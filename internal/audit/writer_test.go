package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundshare/fundshare/internal/shared"
)

type recordingStore struct {
	inserted []Entry
	attempts int
	fail     func(attempt int, e Entry) error
}

func (s *recordingStore) Insert(_ context.Context, e Entry) error {
	s.attempts++
	if s.fail != nil {
		if err := s.fail(s.attempts, e); err != nil {
			return err
		}
	}
	s.inserted = append(s.inserted, e)
	return nil
}

func (s *recordingStore) List(context.Context, Filter) ([]Entry, error) {
	return s.inserted, nil
}

func (s *recordingStore) PurgeBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type outcomeCounter map[string]int

func (c outcomeCounter) ObserveAuditWrite(action, outcome string) {
	c[action+"/"+outcome]++
}

func newTestWriter(store Store, metrics OutcomeRecorder) *Writer {
	at := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	return NewWriter(store, nil, metrics).WithClock(func() time.Time { return at })
}

func TestAppendWritesEncodedDetails(t *testing.T) {
	store := &recordingStore{}
	metrics := outcomeCounter{}
	w := newTestWriter(store, metrics)

	err := w.Append(context.Background(), Record{
		AccountID:   7,
		ActorUserID: 1,
		Action:      ActionPermissionGranted,
		Details:     map[string]any{"user_id": 2, "level": "VIEW_ONLY"},
		Origin:      "203.0.113.9",
		ClientAgent: "curl/8.0",
	})
	require.NoError(t, err)
	require.Len(t, store.inserted, 1)

	entry := store.inserted[0]
	assert.Equal(t, int64(7), entry.AccountID)
	assert.Equal(t, ActionPermissionGranted, entry.Action)
	assert.JSONEq(t, `{"user_id":2,"level":"VIEW_ONLY"}`, string(entry.Details))
	assert.Equal(t, "203.0.113.9", entry.Origin)
	assert.Equal(t, "curl/8.0", entry.ClientAgent)
	assert.Equal(t, time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC), entry.CreatedAt)
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, 1, metrics["PERMISSION_GRANTED/"+OutcomeWritten])
}

func TestAppendEncodesNilDetailsAsEmptyObject(t *testing.T) {
	store := &recordingStore{}
	require.NoError(t, newTestWriter(store, nil).Append(context.Background(), Record{
		AccountID: 1, ActorUserID: 1, Action: ActionAccountViewed,
	}))
	require.Len(t, store.inserted, 1)
	assert.JSONEq(t, `{}`, string(store.inserted[0].Details))
}

func TestAppendDegradesUnencodablePayload(t *testing.T) {
	store := &recordingStore{}
	metrics := outcomeCounter{}

	err := newTestWriter(store, metrics).Append(context.Background(), Record{
		AccountID:   3,
		ActorUserID: 1,
		Action:      ActionAccountModified,
		Details:     map[string]any{"callback": func() {}},
	})

	var degraded *DegradedError
	require.ErrorAs(t, err, &degraded)
	assert.Equal(t, ReasonPayloadEncoding, degraded.Reason)
	assert.True(t, degraded.Persisted())
	assert.ErrorIs(t, err, shared.ErrAuditWriteDegraded)

	require.Len(t, store.inserted, 1)
	assert.Nil(t, store.inserted[0].Details)
	assert.Equal(t, 1, metrics["ACCOUNT_MODIFIED/"+OutcomeDegraded])
}

func TestAppendRetriesWithoutPayload(t *testing.T) {
	store := &recordingStore{fail: func(attempt int, e Entry) error {
		if e.Details != nil {
			return errors.New("jsonb rejected")
		}
		return nil
	}}
	metrics := outcomeCounter{}

	err := newTestWriter(store, metrics).Append(context.Background(), Record{
		AccountID:   3,
		ActorUserID: 1,
		Action:      ActionPermissionRevoked,
		Details:     map[string]any{"user_id": 4},
	})

	var degraded *DegradedError
	require.ErrorAs(t, err, &degraded)
	assert.Equal(t, ReasonPayloadDropped, degraded.Reason)
	assert.True(t, degraded.Persisted())
	assert.Equal(t, 2, store.attempts)
	require.Len(t, store.inserted, 1)
	assert.Nil(t, store.inserted[0].Details)
	assert.Equal(t, 1, metrics["PERMISSION_REVOKED/"+OutcomeDegraded])
}

func TestAppendReportsNotPersisted(t *testing.T) {
	storeErr := errors.New("connection reset")
	store := &recordingStore{fail: func(int, Entry) error { return storeErr }}
	metrics := outcomeCounter{}

	err := newTestWriter(store, metrics).Append(context.Background(), Record{
		AccountID:   3,
		ActorUserID: 1,
		Action:      ActionPermissionRequested,
		Details:     map[string]any{"level": "FULL_ACCESS"},
	})

	var degraded *DegradedError
	require.ErrorAs(t, err, &degraded)
	assert.Equal(t, ReasonNotPersisted, degraded.Reason)
	assert.False(t, degraded.Persisted())
	assert.ErrorIs(t, err, storeErr)
	assert.Empty(t, store.inserted)
	assert.Equal(t, 1, metrics["PERMISSION_REQUESTED/"+OutcomeNotStored])
}

func TestInBindsAnotherStore(t *testing.T) {
	base := &recordingStore{}
	scoped := &recordingStore{}
	w := newTestWriter(base, nil)

	require.NoError(t, w.In(scoped).Append(context.Background(), Record{AccountID: 1, ActorUserID: 1, Action: ActionAccountViewed}))
	assert.Empty(t, base.inserted)
	assert.Len(t, scoped.inserted, 1)
}
