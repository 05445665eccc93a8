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
// Package llm defines the provider adapter contract. The engine hands a
// provider a prompt and a deadline and gets back text plus usage, or a
// classified error. Provider wire formats stay inside the adapter
// packages.
package llm

import (
	"context"
	"fmt"
	"time"
)

// ErrorKind is the closed classification of provider failures.
type ErrorKind string

const (
	KindAuth      ErrorKind = "auth"
	KindRateLimit ErrorKind = "rate_limit"
	KindTimeout   ErrorKind = "timeout"
	KindQuota     ErrorKind = "quota"
	KindBadInput  ErrorKind = "bad_request"
	KindNetwork   ErrorKind = "network"
	KindProvider  ErrorKind = "provider_error"
)

// Error is a classified provider failure.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %s", e.Kind, e.Message)
}

// Retryable reports whether the failure may succeed on retry. Auth, bad
// request, and quota failures never do.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindRateLimit, KindNetwork, KindTimeout, KindProvider:
		return true
	}
	return false
}

// NewError builds a classified error.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Request is what the engine supplies for one completion.
type Request struct {
	Prompt          string
	MaxOutputTokens int
	Temperature     float64
}

// Response is what the engine gets back. Token counts are the provider's
// own report and may be absent (zero).
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
	WallTime     time.Duration
}

// Provider is one LLM backend. Implementations are stateless across
// calls and must honor the context deadline.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Name() string
	Model() string
}
