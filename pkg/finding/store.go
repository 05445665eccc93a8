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
	"fmt"
)

// Store is the keyed aggregate of all Findings in a run. Insertion order
// is preserved. The store is written by the single worker that owns the
// target; Freeze makes it immutable before readers observe it.
type Store struct {
	order  []string
	byID   map[string]*Finding
	frozen bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{byID: map[string]*Finding{}}
}

// Put inserts a Finding. One Finding per check_id; a second Put for the
// same id is an error unless replay is requested explicitly.
func (s *Store) Put(f *Finding) error {
	return s.put(f, false)
}

// Replay overwrites an existing Finding for the same check_id.
func (s *Store) Replay(f *Finding) error {
	return s.put(f, true)
}

func (s *Store) put(f *Finding, replay bool) error {
	if s.frozen {
		return fmt.Errorf("findings store is frozen")
	}
	if f == nil || f.CheckID == "" {
		return fmt.Errorf("finding has no check_id")
	}
	if _, exists := s.byID[f.CheckID]; exists {
		if !replay {
			return fmt.Errorf("duplicate finding for check %q", f.CheckID)
		}
		s.byID[f.CheckID] = f
		return nil
	}
	s.order = append(s.order, f.CheckID)
	s.byID[f.CheckID] = f
	return nil
}

// Get returns the Finding for a check id, or nil.
func (s *Store) Get(checkID string) *Finding {
	return s.byID[checkID]
}

// All returns findings in insertion order.
func (s *Store) All() []*Finding {
	out := make([]*Finding, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Len returns the number of findings.
func (s *Store) Len() int { return len(s.order) }

// Freeze makes the store read-only. Called at the end of the check phase.
func (s *Store) Freeze() { s.frozen = true }

// Frozen reports whether the store is read-only.
func (s *Store) Frozen() bool { return s.frozen }
