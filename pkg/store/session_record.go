// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package store persists session bookkeeping metadata — never stream
// payload data. One row tracks one streaming session's lifecycle from
// creation through termination via a claim/complete pattern.
package store

import "time"

// Status mirrors the lifecycle callcontext.Store tracks for a call
// context, applied here to a streaming session instead.
type Status string

const (
	StatusPending   Status = "pending"
	StatusClaimed   Status = "claimed"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// SessionRecord is one row: a session's manifest identity and lifecycle
// timestamps. TableName pins the table to "session_records".
type SessionRecord struct {
	ID               string `gorm:"primaryKey;column:id"`
	ManifestName     string `gorm:"column:manifest_name;index"`
	ManifestVersion  string `gorm:"column:manifest_version"`
	Status           Status `gorm:"column:status;index"`
	TerminationError string `gorm:"column:termination_error"`
	CreatedAt        time.Time
	ClaimedAt        *time.Time
	EndedAt          *time.Time
}

func (SessionRecord) TableName() string { return "session_records" }
