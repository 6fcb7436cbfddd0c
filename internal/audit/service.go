package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fundshare/fundshare/internal/shared"
)

// MinRetention is the shortest retention the purge sweep accepts.
const MinRetention = 24 * time.Hour

// Result wraps a page of entries with paging information.
type Result struct {
	Entries []Entry       `json:"entries"`
	Paging  shared.Paging `json:"paging"`
}

// Service coordinates audit queries and the retention sweep.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds an audit query service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// List returns one page of entries, newest first.
func (s *Service) List(ctx context.Context, filter Filter) (Result, error) {
	if s.store == nil {
		return Result{}, fmt.Errorf("audit: store not configured")
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.From.After(filter.To) {
		return Result{}, fmt.Errorf("from must not be after to: %w", shared.ErrInvalidRequest)
	}
	filter.Page = filter.Page.Normalize()
	rows, err := s.store.List(ctx, filter)
	if err != nil {
		return Result{}, err
	}
	entries, paging := shared.Paginate(rows, filter.Page)
	if entries == nil {
		entries = []Entry{}
	}
	return Result{Entries: entries, Paging: paging}, nil
}

// Purge deletes entries older than olderThan. It is the only deletion path for the log.
func (s *Service) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan < MinRetention {
		return 0, fmt.Errorf("retention %s is below the %s minimum: %w", olderThan, MinRetention, shared.ErrInvalidRequest)
	}
	cutoff := s.now().UTC().Add(-olderThan)
	removed, err := s.store.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.Info("audit retention sweep", slog.Time("cutoff", cutoff), slog.Int64("removed", removed))
	return removed, nil
}
