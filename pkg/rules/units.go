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
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Canonical unit table for size strings. Base-2 scale, case-insensitive
// suffix.
var unitScale = map[string]int64{
	"B":  1,
	"KB": 1 << 10,
	"MB": 1 << 20,
	"GB": 1 << 30,
	"TB": 1 << 40,
}

var sizeRe = regexp.MustCompile(`^\s*([0-9.eE+-]+)\s*([A-Za-z]+)\s*$`)

// ParseSize normalizes a size string ("123 MB", "1.2 GB") to bytes.
// ok is false when s is not shaped like a size string at all; a
// size-shaped string with an unparseable number normalizes to zero with
// malformed set so the caller can log it.
func ParseSize(s string) (bytes decimal.Decimal, ok, malformed bool) {
	m := sizeRe.FindStringSubmatch(s)
	if m == nil {
		return decimal.Zero, false, false
	}
	scale, known := unitScale[strings.ToUpper(m[2])]
	if !known {
		return decimal.Zero, false, false
	}
	n, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Zero, true, true
	}
	return n.Mul(decimal.NewFromInt(scale)), true, false
}
