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

package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTarget() Target {
	return Target{
		Technology: TechPostgres,
		Endpoints:  []Endpoint{{Host: "db1.example.com", Port: 5432}},
		CompanyID:  "acme",
	}
}

func TestTarget_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Target)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Target) {},
		},
		{
			name:    "unknown technology",
			mutate:  func(tg *Target) { tg.Technology = "oracle" },
			wantErr: "unknown technology",
		},
		{
			name:    "no endpoints",
			mutate:  func(tg *Target) { tg.Endpoints = nil },
			wantErr: "at least one endpoint",
		},
		{
			name:    "empty host",
			mutate:  func(tg *Target) { tg.Endpoints = []Endpoint{{Port: 5432}} },
			wantErr: "empty host",
		},
		{
			name:    "no company",
			mutate:  func(tg *Target) { tg.CompanyID = "" },
			wantErr: "company identifier",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg := validTarget()
			tt.mutate(&tg)
			err := tg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTechnology_Valid(t *testing.T) {
	for _, tech := range Technologies {
		assert.True(t, tech.Valid(), "technology %s", tech)
	}
	assert.False(t, Technology("oracle").Valid())
	assert.False(t, Technology("").Valid())
}

func TestTarget_PrimaryAndSSH(t *testing.T) {
	tg := validTarget()
	tg.Endpoints = append(tg.Endpoints, Endpoint{Host: "db2.example.com", Port: 5432})

	assert.Equal(t, "db1.example.com", tg.Primary().Host)
	assert.False(t, tg.HasSSH())

	tg.SSH = []SSHHost{{Host: "db1.example.com", User: "pulse"}}
	assert.True(t, tg.HasSSH())
}

func TestEndpoint_String(t *testing.T) {
	assert.Equal(t, "db1:5432", Endpoint{Host: "db1", Port: 5432}.String())
	assert.Equal(t, "db1", Endpoint{Host: "db1"}.String())
}
