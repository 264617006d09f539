// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package locking

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// MaxRetries is the default number of attempts for optimistic updates
const MaxRetries = 3

// RetryDelay is the initial delay between attempts
const RetryDelay = 100 * time.Millisecond

// ErrRowNotFound is returned by UpdateWithVersion when no row has the key
var ErrRowNotFound = errors.New("row not found")

// UpdateWithVersion updates the row whose keyColumn equals key only if its version is still
// currentVersion, bumping the version. Returns ConflictError if the version moved.
func UpdateWithVersion(db *gorm.DB, table, keyColumn, key string, currentVersion int64, updates map[string]interface{}) error {
	updates["version"] = gorm.Expr("version + 1")

	result := db.Table(table).
		Where(keyColumn+" = ? AND version = ?", key, currentVersion).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := db.Table(table).Where(keyColumn+" = ?", key).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &ConflictError{Table: table, Key: key, ExpectedVersion: currentVersion}
		}
		return fmt.Errorf("%w: %s %q", ErrRowNotFound, table, key)
	}

	return nil
}

// RetryWithBackoff retries fn on ConflictError with exponential backoff
func RetryWithBackoff(maxRetries int, initialDelay time.Duration, fn func() error) error {
	var lastErr error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		var conflict *ConflictError
		if !errors.As(err, &conflict) {
			return err
		}
		if i < maxRetries-1 {
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
