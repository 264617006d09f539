// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package locking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DefaultLockTTL is the default time-to-live for leases
const DefaultLockTTL = 5 * time.Minute

// Locker hands out named leases stored in the journal database
type Locker struct {
	db      *gorm.DB
	lockTTL time.Duration
}

// NewLocker creates a new locker instance
func NewLocker(db *gorm.DB) *Locker {
	return &Locker{
		db:      db,
		lockTTL: DefaultLockTTL,
	}
}

// WithTTL sets a custom TTL for leases
func (l *Locker) WithTTL(ttl time.Duration) *Locker {
	l.lockTTL = ttl
	return l
}

// Acquire attempts to take the named lease for holder.
// Returns false without error when another holder owns an unexpired lease.
func (l *Locker) Acquire(ctx context.Context, name, holder string) (bool, error) {
	db := l.db.WithContext(ctx)
	now := time.Now()
	expiresAt := now.Add(l.lockTTL)

	var existing Lease
	err := db.Where("name = ?", name).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		lease := Lease{
			Name:      name,
			Version:   1,
			LockedBy:  holder,
			LockedAt:  now,
			ExpiresAt: expiresAt,
		}
		if err := db.Create(&lease).Error; err != nil {
			// Lost the insert race
			var count int64
			if cerr := db.Model(&Lease{}).Where("name = ?", name).Count(&count).Error; cerr == nil && count > 0 {
				return false, nil
			}
			return false, fmt.Errorf("failed to create lease: %w", err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read lease: %w", err)
	}

	if existing.LockedBy != holder && !existing.expiredAt(now) {
		return false, nil
	}

	err = UpdateWithVersion(db, existing.TableName(), "name", name, existing.Version, map[string]interface{}{
		"locked_by":  holder,
		"locked_at":  now,
		"expires_at": expiresAt,
	})
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Release releases a lease held by holder
func (l *Locker) Release(ctx context.Context, name, holder string) error {
	return l.db.WithContext(ctx).
		Where("name = ? AND locked_by = ?", name, holder).
		Delete(&Lease{}).Error
}

// IsLocked reports whether the named lease is held and by whom
func (l *Locker) IsLocked(ctx context.Context, name string) (bool, string, error) {
	var lease Lease
	err := l.db.WithContext(ctx).Where("name = ?", name).First(&lease).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}
	if lease.IsExpired() {
		return false, "", nil
	}
	return true, lease.LockedBy, nil
}

// Extend pushes the expiry of a lease held by holder
func (l *Locker) Extend(ctx context.Context, name, holder string) error {
	result := l.db.WithContext(ctx).Model(&Lease{}).
		Where("name = ? AND locked_by = ?", name, holder).
		Update("expires_at", time.Now().Add(l.lockTTL))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &LockError{Name: name, LockedBy: holder, Message: "lease not found or owned by another holder"}
	}
	return nil
}

// CleanupExpired removes all expired leases
func (l *Locker) CleanupExpired(ctx context.Context) (int64, error) {
	result := l.db.WithContext(ctx).Where("expires_at < ?", time.Now()).Delete(&Lease{})
	return result.RowsAffected, result.Error
}

// WithLock runs fn while holding the named lease
func (l *Locker) WithLock(ctx context.Context, name, holder string, fn func() error) error {
	acquired, err := l.Acquire(ctx, name, holder)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		_, owner, _ := l.IsLocked(ctx, name)
		return &LockError{Name: name, LockedBy: owner, Message: "lock is held"}
	}

	defer l.Release(context.WithoutCancel(ctx), name, holder) //nolint:errcheck

	return fn()
}
