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

package rules

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in            string
		wantBytes     int64
		wantOK        bool
		wantMalformed bool
	}{
		{"123 MB", 123 << 20, true, false},
		{"1 KB", 1 << 10, true, false},
		{"2GB", 2 << 30, true, false},
		{"512MB", 512 << 20, true, false},
		{"10kb", 10 << 10, true, false},
		{"1 TB", 1 << 40, true, false},
		{"100 B", 100, true, false},
		{"5 mb", 5 << 20, true, false},
		{"  7 GB  ", 7 << 30, true, false},
		{"hello", 0, false, false},
		{"12 XB", 0, false, false},
		{"", 0, false, false},
		{"postgres", 0, false, false},
		{"1.2.3 MB", 0, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			bytes, ok, malformed := ParseSize(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantMalformed, malformed)
			if ok && !malformed {
				assert.True(t, bytes.Equal(decimal.NewFromInt(tt.wantBytes)),
					"got %s, want %d", bytes, tt.wantBytes)
			}
		})
	}
}

func TestParseSize_Fractional(t *testing.T) {
	bytes, ok, malformed := ParseSize("1.5 KB")
	assert.True(t, ok)
	assert.False(t, malformed)
	assert.True(t, bytes.Equal(decimal.NewFromInt(1536)))
}
