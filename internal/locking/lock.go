// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package locking

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Lease is a named, expiring lock shared by every process using the database
type Lease struct {
	Name      string    `gorm:"primaryKey" json:"name"`
	Version   int64     `gorm:"not null;default:1" json:"version"`
	LockedBy  string    `gorm:"not null" json:"locked_by"`
	LockedAt  time.Time `gorm:"not null" json:"locked_at"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
}

// TableName specifies the table name for Lease
func (Lease) TableName() string {
	return "journal_locks"
}

// MigrateLocks runs migrations for the journal_locks table
func MigrateLocks(db *gorm.DB) error {
	return db.AutoMigrate(&Lease{})
}

// IsExpired returns true if the lease has expired
func (l *Lease) IsExpired() bool {
	return l.expiredAt(time.Now())
}

func (l *Lease) expiredAt(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// ConflictError represents a version conflict during update
type ConflictError struct {
	Table           string
	Key             string
	ExpectedVersion int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict on %s %q: expected version %d", e.Table, e.Key, e.ExpectedVersion)
}

// LockError represents a locking failure
type LockError struct {
	Name     string
	LockedBy string
	Message  string
}

func (e *LockError) Error() string {
	if e.LockedBy != "" {
		return fmt.Sprintf("%s: %s (held by %s)", e.Message, e.Name, e.LockedBy)
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Name)
}
