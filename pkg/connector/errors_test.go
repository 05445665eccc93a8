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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil-safe deadline", context.DeadlineExceeded, KindTimeout},
		{"cancelled", context.Canceled, KindTimeout},
		{"connection refused", errors.New("dial tcp 10.0.0.1:5432: connection refused"), KindConnection},
		{"broken pipe", errors.New("write: broken pipe"), KindConnection},
		{"unexpected eof", errors.New("unexpected EOF"), KindConnection},
		{"password auth", errors.New("pq: password authentication failed for user \"pulse\""), KindAuth},
		{"access denied", errors.New("Error 1045: Access denied for user"), KindAuth},
		{"permission denied", errors.New("permission denied for table pg_stat_activity"), KindPermission},
		{"not authorized", errors.New("user is not authorized to perform describeCluster"), KindPermission},
		{"syntax", errors.New("syntax error at or near \"SELCT\""), KindSyntax},
		{"timed out", errors.New("operation timed out"), KindTimeout},
		{"too many connections", errors.New("FATAL: too many connections"), KindUnavailable},
		{"unclassified", errors.New("something odd"), KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := Classify(tt.err)
			require.NotNil(t, ce)
			assert.Equal(t, tt.want, ce.Kind)
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}

func TestClassify_PreservesExistingClassification(t *testing.T) {
	orig := NewError(KindAuth, "bad credentials", nil)
	wrapped := fmt.Errorf("opening session: %w", orig)

	ce := Classify(wrapped)
	assert.Equal(t, KindAuth, ce.Kind)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindAuth, KindOf(NewError(KindAuth, "", errors.New("x"))))
	assert.Equal(t, KindTimeout, KindOf(context.DeadlineExceeded))
	assert.Equal(t, KindOther, KindOf(errors.New("plain")))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(NewError(KindConnection, "", nil)))
	assert.True(t, IsFatal(NewError(KindAuth, "", nil)))
	assert.False(t, IsFatal(NewError(KindTimeout, "", nil)))
	assert.False(t, IsFatal(NewError(KindSyntax, "", nil)))
	assert.False(t, IsFatal(NewError(KindPermission, "", nil)))
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	ce := NewError(KindOther, "wrapped", cause)
	assert.True(t, errors.Is(ce, cause))
	assert.Equal(t, "root cause", NewError(KindOther, "", cause).Message)
}
