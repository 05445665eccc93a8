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
package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// retryDelays is the backoff schedule between attempts.
var retryDelays = []time.Duration{1 * time.Second, 3 * time.Second, 9 * time.Second}

const maxAttempts = 3

// CompleteWithRetry calls the provider, retrying retryable failures with
// exponential backoff. Auth, bad request, and quota errors surface
// immediately. Cancellation aborts the wait, not just the call.
func CompleteWithRetry(ctx context.Context, p Provider, req Request, logger *zap.Logger) (*Response, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := retryDelays[attempt-1]
			logger.Warn("retrying llm call",
				zap.String("provider", p.Name()),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, NewError(KindTimeout, "cancelled while waiting to retry: %v", ctx.Err())
			case <-time.After(delay):
			}
		}

		resp, err := p.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var lerr *Error
		if !errors.As(err, &lerr) || !lerr.Retryable() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, NewError(KindTimeout, "cancelled: %v", ctx.Err())
		}
	}
	return nil, lastErr
}
