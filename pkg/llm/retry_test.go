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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider scripts one error per attempt, then succeeds.
type fakeProvider struct {
	errs  []error
	calls int
}

func (f *fakeProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	f.calls++
	if f.calls <= len(f.errs) {
		return nil, f.errs[f.calls-1]
	}
	return &Response{Text: "assessment"}, nil
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-1" }

func fastRetries(t *testing.T) {
	t.Helper()
	saved := retryDelays
	retryDelays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	t.Cleanup(func() { retryDelays = saved })
}

func TestCompleteWithRetry_SucceedsAfterRetryable(t *testing.T) {
	fastRetries(t)
	p := &fakeProvider{errs: []error{
		NewError(KindRateLimit, "slow down"),
		NewError(KindNetwork, "conn reset"),
	}}

	resp, err := CompleteWithRetry(context.Background(), p, Request{Prompt: "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "assessment", resp.Text)
	assert.Equal(t, 3, p.calls)
}

func TestCompleteWithRetry_NonRetryableSurfacesImmediately(t *testing.T) {
	fastRetries(t)
	for _, kind := range []ErrorKind{KindAuth, KindBadInput, KindQuota} {
		p := &fakeProvider{errs: []error{NewError(kind, "nope")}}
		_, err := CompleteWithRetry(context.Background(), p, Request{}, nil)
		require.Error(t, err, "kind %s", kind)
		assert.Equal(t, 1, p.calls, "kind %s should not retry", kind)
	}
}

func TestCompleteWithRetry_RetryableKinds(t *testing.T) {
	fastRetries(t)
	for _, kind := range []ErrorKind{KindRateLimit, KindNetwork, KindTimeout, KindProvider} {
		p := &fakeProvider{errs: []error{NewError(kind, "transient")}}
		resp, err := CompleteWithRetry(context.Background(), p, Request{}, nil)
		require.NoError(t, err, "kind %s", kind)
		assert.Equal(t, "assessment", resp.Text)
		assert.Equal(t, 2, p.calls, "kind %s retries once", kind)
	}
}

func TestCompleteWithRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	fastRetries(t)
	p := &fakeProvider{errs: []error{
		NewError(KindNetwork, "1"),
		NewError(KindNetwork, "2"),
		NewError(KindNetwork, "3"),
	}}

	_, err := CompleteWithRetry(context.Background(), p, Request{}, nil)
	require.Error(t, err)
	assert.Equal(t, maxAttempts, p.calls)
}

func TestCompleteWithRetry_CancellationAbortsWait(t *testing.T) {
	saved := retryDelays
	retryDelays = []time.Duration{time.Hour, time.Hour, time.Hour}
	t.Cleanup(func() { retryDelays = saved })

	ctx, cancel := context.WithCancel(context.Background())
	p := &fakeProvider{errs: []error{NewError(KindNetwork, "transient")}}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := CompleteWithRetry(ctx, p, Request{}, nil)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second, "cancel must abort the backoff wait")

	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, KindTimeout, lerr.Kind)
}

func TestError_Retryable(t *testing.T) {
	assert.True(t, NewError(KindRateLimit, "").Retryable())
	assert.True(t, NewError(KindProvider, "").Retryable())
	assert.False(t, NewError(KindAuth, "").Retryable())
	assert.False(t, NewError(KindBadInput, "").Retryable())
	assert.False(t, NewError(KindQuota, "").Retryable())
}
