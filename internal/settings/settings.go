// Package settings manages the console's global key/value configuration
// (limits, toggles, contact info). Settings live next to the ledger
// collections but are plain key/value pairs with no relationship to
// actors or transactions.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ledgerdesk/internal/log"
)

// Setting is one key/value pair. Values are always strings; callers
// interpret booleans and numbers themselves.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

var ErrEmptyKey = errors.New("setting key cannot be empty")

// Store is the persistence port for settings.
type Store interface {
	AllSettings(ctx context.Context) ([]Setting, error)
	PutSetting(ctx context.Context, s Setting) error
	DeleteSetting(ctx context.Context, key string) error
}

// Service validates and forwards setting operations.
type Service struct {
	store  Store
	logger *log.Logger
}

func NewService(store Store, logger *log.Logger) *Service {
	return &Service{store: store, logger: logger.WithComponent(log.ComponentSettings)}
}

// All returns every setting, sorted by key.
func (s *Service) All(ctx context.Context) ([]Setting, error) {
	out, err := s.store.AllSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return out, nil
}

// Put upserts a setting. Keys are trimmed; empty keys are refused.
func (s *Service) Put(ctx context.Context, st Setting) error {
	st.Key = strings.TrimSpace(st.Key)
	if st.Key == "" {
		return ErrEmptyKey
	}
	if err := s.store.PutSetting(ctx, st); err != nil {
		return fmt.Errorf("put setting %q: %w", st.Key, err)
	}
	s.logger.InfoContext(ctx, "Setting saved", "key", st.Key)
	return nil
}

// Delete removes a setting. Deleting a missing key is not an error.
func (s *Service) Delete(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	if err := s.store.DeleteSetting(ctx, key); err != nil {
		return fmt.Errorf("delete setting %q: %w", key, err)
	}
	s.logger.InfoContext(ctx, "Setting deleted", "key", key)
	return nil
}
