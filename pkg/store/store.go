// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/rapidaai/streamrt/internal/logging"
)

// Store persists and advances SessionRecord rows through their lifecycle
// (pending -> claimed -> completed or failed).
// A session row is never deleted mid-lifecycle, since
// telemetry/alert consumers may still need to resolve a session id after
// the session itself has ended.
type Store interface {
	// Create inserts a new SessionRecord in StatusPending.
	Create(ctx context.Context, id, manifestName, manifestVersion string) error

	// Get retrieves a session record regardless of status.
	Get(ctx context.Context, id string) (*SessionRecord, error)

	// Claim atomically transitions a session from "pending" to "claimed".
	// Only one
	// caller wins when multiple scheduler instances race to pick up the
	// same session id.
	Claim(ctx context.Context, id string) (*SessionRecord, error)

	// Complete marks a session as completed.
	Complete(ctx context.Context, id string) error

	// Fail marks a session as failed, recording reason.
	Fail(ctx context.Context, id, reason string) error

	// Delete removes a session row; intended for TTL-based garbage
	// collection, not for use during an active session.
	Delete(ctx context.Context, id string) error
}

type gormStore struct {
	db     *gorm.DB
	logger logging.Logger
}

// NewStore returns a Store backed by db (Postgres or SQLite — both
// drivers are wired via gorm.io/driver/postgres and gorm.io/driver/sqlite).
func NewStore(db *gorm.DB, logger logging.Logger) Store {
	return &gormStore{db: db, logger: logger}
}

func (s *gormStore) Create(ctx context.Context, id, manifestName, manifestVersion string) error {
	record := &SessionRecord{
		ID:              id,
		ManifestName:    manifestName,
		ManifestVersion: manifestVersion,
		Status:          StatusPending,
		CreatedAt:       time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create session record %s: %w", id, err)
	}
	s.logger.Debugf("created session record: id=%s manifest=%s", id, manifestName)
	return nil
}

func (s *gormStore) Get(ctx context.Context, id string) (*SessionRecord, error) {
	var record SessionRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return nil, fmt.Errorf("session record not found: %s: %w", id, err)
	}
	return &record, nil
}

func (s *gormStore) Claim(ctx context.Context, id string) (*SessionRecord, error) {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&SessionRecord{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]interface{}{
			"status":     StatusClaimed,
			"claimed_at": now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to claim session record %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("session record %s not found or already claimed", id)
	}
	return s.Get(ctx, id)
}

func (s *gormStore) Complete(ctx context.Context, id string) error {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&SessionRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":   StatusCompleted,
			"ended_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to complete session record %s: %w", id, result.Error)
	}
	s.logger.Debugf("completed session record: id=%s", id)
	return nil
}

func (s *gormStore) Fail(ctx context.Context, id, reason string) error {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&SessionRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            StatusFailed,
			"ended_at":          now,
			"termination_error": reason,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to fail session record %s: %w", id, result.Error)
	}
	s.logger.Warnf("session record failed: id=%s reason=%s", id, reason)
	return nil
}

func (s *gormStore) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&SessionRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete session record %s: %w", id, err)
	}
	return nil
}
