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
package prompt

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer estimates the token count of a text. The assembler treats
// the estimate as exact for budget decisions, so an estimator must be
// deterministic.
type Tokenizer interface {
	Estimate(text string) int
	Name() string
}

// Chars4 is the default estimator: characters divided by four, rounded
// up. Deterministic and provider-independent.
type Chars4 struct{}

func (Chars4) Estimate(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

func (Chars4) Name() string { return "chars/4" }

// Tiktoken counts with the cl100k_base encoding, a good approximation
// for current chat models. Falls back to chars/4 when the encoding
// tables cannot be loaded.
type Tiktoken struct {
	encoder *tiktoken.Tiktoken
	mu      sync.Mutex
}

// NewTiktoken loads the cl100k_base encoder. Never fails hard; a load
// error yields a tokenizer that estimates with chars/4.
func NewTiktoken() *Tiktoken {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return &Tiktoken{}
	}
	return &Tiktoken{encoder: enc}
}

func (t *Tiktoken) Estimate(text string) int {
	if t.encoder == nil {
		return Chars4{}.Estimate(text)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.encoder.Encode(text, nil, nil))
}

func (t *Tiktoken) Name() string {
	if t.encoder == nil {
		return "chars/4"
	}
	return "cl100k_base"
}
