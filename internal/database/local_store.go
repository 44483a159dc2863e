package database

import (
	"context"
	"errors"
	"time"

	"github.com/zmuhls/cloze-reader/backend/internal/hub"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StoredDocument is one whole object kept by the local development store,
// keyed the same way the hosted repository keys files.
type StoredDocument struct {
	Key       string    `gorm:"column:key;primaryKey;size:190;not null"`
	Content   []byte    `gorm:"column:content;not null"`
	Message   string    `gorm:"column:message;type:text;not null;default:''"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (StoredDocument) TableName() string {
	return "documents"
}

// LocalStore implements the object-store boundary against a local SQLite
// file so the game can run without the hosted hub. It mirrors the hub's
// semantics: whole-document reads and last-writer-wins replaces.
type LocalStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewLocalStore wraps an open database handle as a document store.
func NewLocalStore(db *gorm.DB, logger *zap.Logger) (*LocalStore, error) {
	if db == nil {
		return nil, errors.New("database: connection required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalStore{db: db, logger: logger}, nil
}

// Fetch returns the content stored under key, or hub.ErrNotFound.
func (s *LocalStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	var document StoredDocument
	err := s.db.WithContext(ctx).Where("key = ?", key).Take(&document).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, hub.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return document.Content, nil
}

// Commit replaces the content stored under key in one upsert.
func (s *LocalStore) Commit(ctx context.Context, key string, content []byte, message string) error {
	document := StoredDocument{
		Key:     key,
		Content: content,
		Message: message,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&document).Error
	if err != nil {
		return err
	}
	s.logger.Info("document committed", zap.String("key", key), zap.String("backend", "local"))
	return nil
}

// CanWrite always holds for the local store; there is no credential to miss.
func (s *LocalStore) CanWrite() bool {
	return true
}
