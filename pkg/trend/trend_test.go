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

package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teradata-labs/pulse/pkg/finding"
)

func TestHealthScore(t *testing.T) {
	tests := []struct {
		name                   string
		critical, high, medium int
		want                   int
	}{
		{"clean run", 0, 0, 0, 100},
		{"one critical", 1, 0, 0, 80},
		{"one of each", 1, 1, 1, 65},
		{"floor at zero", 5, 2, 1, 0},
		{"exactly zero", 4, 2, 0, 0},
		{"mediums only", 0, 0, 3, 85},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HealthScore(tt.critical, tt.high, tt.medium))
		})
	}
}

func TestScoreRun(t *testing.T) {
	triggered := []finding.TriggeredRule{
		{Severity: "critical"},
		{Severity: "high"},
		{Severity: "high"},
		{Severity: "medium"},
		{Severity: "low"},
		{Severity: "info"},
	}
	// 100 - 20 - 2*10 - 5; low and info do not count.
	assert.Equal(t, 55, ScoreRun(triggered))
	assert.Equal(t, 100, ScoreRun(nil))
}
