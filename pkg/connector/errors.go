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
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorKind is the closed classification of connector failures. Checks see
// these kinds, never raw driver errors.
type ErrorKind string

const (
	KindConnection   ErrorKind = "connection"
	KindAuth         ErrorKind = "auth"
	KindTimeout      ErrorKind = "timeout"
	KindSyntax       ErrorKind = "syntax"
	KindPermission   ErrorKind = "permission"
	KindUnavailable  ErrorKind = "unavailable"
	KindNotSupported ErrorKind = "not_supported"
	KindOther        ErrorKind = "other"
)

// Error is a classified connector failure.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

// NewError wraps cause with a classification. Message falls back to the
// cause's text when empty.
func NewError(kind ErrorKind, message string, cause error) *Error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &Error{Kind: kind, Message: message, cause: cause}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf extracts the classification from err. Unclassified errors map to
// KindOther; context errors map to KindTimeout.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindOther
}

// IsFatal reports whether err should abort remaining checks on this
// connector (persistent connection loss or bad credentials).
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindConnection, KindAuth:
		return true
	}
	return false
}

// Classify wraps an arbitrary driver error into a classified *Error using
// generic signals: context errors, net errors, and common message
// substrings. Driver packages refine this with their own error codes before
// falling back here.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindTimeout, "", err)
	}
	if errors.Is(err, context.Canceled) {
		return NewError(KindTimeout, "cancelled", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return NewError(KindTimeout, "", err)
		}
		return NewError(KindConnection, "", err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "broken pipe"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "eof"):
		return NewError(KindConnection, "", err)
	case strings.Contains(msg, "authentication"),
		strings.Contains(msg, "password"),
		strings.Contains(msg, "access denied"):
		return NewError(KindAuth, "", err)
	case strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "not authorized"),
		strings.Contains(msg, "unauthorized"):
		return NewError(KindPermission, "", err)
	case strings.Contains(msg, "syntax"):
		return NewError(KindSyntax, "", err)
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return NewError(KindTimeout, "", err)
	case strings.Contains(msg, "unavailable"), strings.Contains(msg, "too many connections"):
		return NewError(KindUnavailable, "", err)
	}
	return NewError(KindOther, "", err)
}

// ErrNotSupported builds the classified error for an unsupported query
// form, e.g. SQL text sent to a key/value backend.
func ErrNotSupported(what string) *Error {
	return NewError(KindNotSupported, what, nil)
}
