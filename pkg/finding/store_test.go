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

package finding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_InsertionOrder(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, s.Put(&Finding{CheckID: id, Status: StatusOK}))
	}

	var got []string
	for _, f := range s.All() {
		got = append(got, f.CheckID)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, got)
	assert.Equal(t, 3, s.Len())
}

func TestStore_DuplicateRejected(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Put(&Finding{CheckID: "c", Status: StatusOK}))

	err := s.Put(&Finding{CheckID: "c", Status: StatusError})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
	// Original survives.
	assert.Equal(t, StatusOK, s.Get("c").Status)
}

func TestStore_Replay(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Put(&Finding{CheckID: "a", Status: StatusOK}))
	require.NoError(t, s.Put(&Finding{CheckID: "b", Status: StatusOK}))

	require.NoError(t, s.Replay(&Finding{CheckID: "a", Status: StatusWarning}))

	assert.Equal(t, StatusWarning, s.Get("a").Status)
	// Replay keeps the original position.
	assert.Equal(t, "a", s.All()[0].CheckID)
}

func TestStore_Freeze(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Put(&Finding{CheckID: "a", Status: StatusOK}))
	s.Freeze()

	assert.True(t, s.Frozen())
	assert.Error(t, s.Put(&Finding{CheckID: "b", Status: StatusOK}))
	assert.Error(t, s.Replay(&Finding{CheckID: "a", Status: StatusError}))
}

func TestStore_RejectsAnonymousFinding(t *testing.T) {
	s := NewStore()
	assert.Error(t, s.Put(&Finding{Status: StatusOK}))
	assert.Error(t, s.Put(nil))
}

func TestFinding_Section(t *testing.T) {
	f := &Finding{
		CheckID: "c",
		Sections: []Section{
			{Name: "first"},
			{Name: "second"},
		},
	}
	require.NotNil(t, f.Section("second"))
	assert.Equal(t, "second", f.Section("second").Name)
	assert.Nil(t, f.Section("missing"))
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range Statuses {
		assert.True(t, s.Valid())
	}
	assert.False(t, Status("running").Valid())
	assert.False(t, Status("").Valid())
}
