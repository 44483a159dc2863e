package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zmuhls/cloze-reader/backend/internal/board"
	"github.com/zmuhls/cloze-reader/backend/internal/hub"
	"go.uber.org/zap"
)

var (
	errMissingStore = errors.New("document store is required")
	// ErrReadOnly indicates a write was requested while no credential is configured.
	ErrReadOnly = errors.New("leaderboard: service is in read-only mode")
	noOpLogger  = zap.NewNop()
)

// ServiceError carries an operation/reason code alongside the underlying cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew = "leaderboard.service.new"
	opRead       = "leaderboard.read"
	opAdd        = "leaderboard.add"
	opReplace    = "leaderboard.replace"
	opClear      = "leaderboard.clear"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// Status classifies the outcome of a write operation.
type Status string

const (
	// StatusOK means the mutation was committed to the store.
	StatusOK Status = "ok"
	// StatusRejected means no write credential is configured; nothing was attempted.
	StatusRejected Status = "rejected"
	// StatusFailed means the fetch or commit against the store failed.
	StatusFailed Status = "failed"
)

// Outcome is the ternary result of a write operation. Err is set for
// rejected and failed outcomes so callers can log or surface the reason.
type Outcome struct {
	Status Status
	Err    error
}

func okOutcome() Outcome {
	return Outcome{Status: StatusOK}
}

func rejectedOutcome() Outcome {
	return Outcome{Status: StatusRejected, Err: ErrReadOnly}
}

func failedOutcome(err error) Outcome {
	return Outcome{Status: StatusFailed, Err: err}
}

// ServiceConfig describes the dependencies required by the sync service.
type ServiceConfig struct {
	Store  hub.Store
	Key    string
	Clock  func() time.Time
	Logger *zap.Logger
}

// Service mediates every read and write of the shared leaderboard document.
// Each operation is a fresh fetch-mutate-commit cycle; no state is retained
// between calls.
//
// The store offers no compare-and-swap, so two concurrent writes can both
// start from the same base document and the later commit silently overwrites
// the earlier one's effect. That last-writer-wins behavior is deliberate; do
// not add in-process locking, which the shared backend cannot honor anyway.
type Service struct {
	store  hub.Store
	key    string
	clock  func() time.Time
	logger *zap.Logger
}

// NewService constructs the sync service from explicit configuration.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, newServiceError(opServiceNew, "missing_store", errMissingStore)
	}

	key := cfg.Key
	if key == "" {
		key = "leaderboard.json"
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		store:  cfg.Store,
		key:    key,
		clock:  clock,
		logger: logger,
	}, nil
}

// Read returns the current ranked records. Any failure — missing document,
// unreachable store, malformed content — degrades to an empty slice. The
// cause is logged for operators; callers never see an error.
func (s *Service) Read(ctx context.Context) []board.Record {
	return s.currentTable(ctx, opRead).Records()
}

// Add merges one record into the remote leaderboard. Requires a write
// credential; without one the call is rejected before any store access.
// See the Service comment for the concurrent-write caveat.
func (s *Service) Add(ctx context.Context, record board.Record) Outcome {
	if !s.store.CanWrite() {
		s.logger.Info("add rejected, read-only mode", zap.String("operation", opAdd))
		return rejectedOutcome()
	}

	updated := s.currentTable(ctx, opAdd).Insert(record)
	outcome := s.commitTable(ctx, opAdd, updated)
	if outcome.Status == StatusOK {
		s.logger.Info("leaderboard entry added",
			zap.String("initials", record.Initials),
			zap.Int("level", record.Level))
	}
	return outcome
}

// Replace overwrites the remote leaderboard with the supplied candidate set.
// The existing remote content is ignored entirely; this is a bulk import,
// not a merge.
func (s *Service) Replace(ctx context.Context, records []board.Record) Outcome {
	if !s.store.CanWrite() {
		s.logger.Info("replace rejected, read-only mode", zap.String("operation", opReplace))
		return rejectedOutcome()
	}

	return s.commitTable(ctx, opReplace, board.NewRankedTable(records))
}

// Clear commits an empty leaderboard. No backup is taken; the previous
// contents survive only in the store's revision history.
func (s *Service) Clear(ctx context.Context) Outcome {
	if !s.store.CanWrite() {
		s.logger.Info("clear rejected, read-only mode", zap.String("operation", opClear))
		return rejectedOutcome()
	}

	outcome := s.commitTable(ctx, opClear, board.NewRankedTable(nil))
	if outcome.Status == StatusOK {
		s.logger.Info("leaderboard cleared")
	}
	return outcome
}

// currentTable fetches and decodes the remote document, degrading to an
// empty table on any failure.
func (s *Service) currentTable(ctx context.Context, operation string) board.RankedTable {
	raw, err := s.store.Fetch(ctx, s.key)
	if errors.Is(err, hub.ErrNotFound) {
		s.logger.Debug("no leaderboard document yet, starting empty",
			zap.String("operation", operation), zap.String("key", s.key))
		return board.NewRankedTable(nil)
	}
	if err != nil {
		s.logger.Warn("leaderboard fetch failed, treating as empty",
			zap.String("operation", operation), zap.String("key", s.key), zap.Error(err))
		return board.NewRankedTable(nil)
	}

	var document board.Document
	if err := json.Unmarshal(raw, &document); err != nil {
		s.logger.Warn("leaderboard document malformed, treating as empty",
			zap.String("operation", operation), zap.String("key", s.key), zap.Error(err))
		return board.NewRankedTable(nil)
	}

	return board.NewRankedTable(document.Leaderboard)
}

func (s *Service) commitTable(ctx context.Context, operation string, table board.RankedTable) Outcome {
	now := s.clock().UTC()
	document := board.Document{
		Leaderboard: table.Records(),
		LastUpdated: now.Format(time.RFC3339),
		Version:     board.DocumentVersion,
	}

	payload, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		s.logError(operation, "encode_failed", err)
		return failedOutcome(newServiceError(operation, "encode_failed", err))
	}

	message := fmt.Sprintf("update leaderboard - %s utc", now.Format("2006-01-02 15:04:05"))
	if err := s.store.Commit(ctx, s.key, payload, message); err != nil {
		s.logError(operation, "commit_failed", err)
		return failedOutcome(newServiceError(operation, "commit_failed", err))
	}

	return okOutcome()
}

func (s *Service) logError(operation, reason string, err error) {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	s.logger.Error("leaderboard service error", fields...)
}
