// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/tejzpr/dreamscape-mcp/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.LoggingConfig
		enabled     zapcore.Level
		disabled    zapcore.Level
		expectError bool
	}{
		{name: "production info", cfg: config.LoggingConfig{Level: "info"}, enabled: zapcore.InfoLevel, disabled: zapcore.DebugLevel},
		{name: "development debug", cfg: config.LoggingConfig{Level: "debug", Development: true}, enabled: zapcore.DebugLevel, disabled: zapcore.DebugLevel - 1},
		{name: "warn", cfg: config.LoggingConfig{Level: "warn"}, enabled: zapcore.ErrorLevel, disabled: zapcore.InfoLevel},
		{name: "bad level", cfg: config.LoggingConfig{Level: "loud"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.enabled))
			assert.False(t, logger.Core().Enabled(tt.disabled))
		})
	}
}
