// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package connector

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// reconnect backoff schedule: 200 ms, 600 ms, 1.5 s, capped at 5 s,
// at most reconnectMaxAttempts attempts.
var reconnectDelays = []time.Duration{
	200 * time.Millisecond,
	600 * time.Millisecond,
	1500 * time.Millisecond,
}

const (
	reconnectDelayCap    = 5 * time.Second
	reconnectMaxAttempts = 3
)

// Reconnect runs open, and on a connection-kind error retries with the
// standard backoff schedule. The first attempt runs immediately; errors
// of any other kind (auth, syntax, permission) return at once since a
// retry cannot fix them. Returns the last classified error when every
// attempt fails, or nil once open succeeds.
func Reconnect(ctx context.Context, logger *zap.Logger, open func(context.Context) error) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr error
	for attempt := 0; attempt < reconnectMaxAttempts; attempt++ {
		if attempt > 0 {
			delay := reconnectDelayCap
			if attempt-1 < len(reconnectDelays) {
				delay = reconnectDelays[attempt-1]
			}
			select {
			case <-ctx.Done():
				return NewError(KindTimeout, "cancelled during reconnect", ctx.Err())
			case <-time.After(delay):
			}
		}

		err := open(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info("reconnected after retries", zap.Int("attempts", attempt+1))
			}
			return nil
		}
		lastErr = Classify(err)
		if KindOf(lastErr) != KindConnection {
			return lastErr
		}
		logger.Warn("reconnect attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", reconnectMaxAttempts),
			zap.Error(lastErr),
		)
	}
	return lastErr
}
