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
// Package sqlutil holds the shared database/sql plumbing for SQL-family
// connectors (PostgreSQL, MySQL, ClickHouse). Each driver package opens
// its own *sql.DB and delegates row scanning and version parsing here.
package sqlutil

import (
	"context"
	"database/sql"
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/teradata-labs/pulse/pkg/connector"
)

// RunQuery executes stmt and converts the rows into the uniform result
// shape. Column names are preserved verbatim. Numeric driver values are
// converted to decimal.Decimal so precision survives until serialization;
// []byte values become strings.
func RunQuery(ctx context.Context, db *sql.DB, stmt string) (*connector.Result, error) {
	rows, err := db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &connector.Result{Columns: columns}
	for rows.Next() {
		raw := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out := make([]interface{}, len(raw))
		for i, v := range raw {
			out[i] = NormalizeValue(v)
		}
		result.Rows = append(result.Rows, out)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// NormalizeValue maps a driver value into the shapes the engine works
// with: decimal.Decimal for numerics, string for byte slices, and the
// value itself otherwise.
func NormalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		s := string(val)
		if d, err := decimal.NewFromString(s); err == nil && looksNumeric(s) {
			return d
		}
		return s
	case int64:
		return decimal.NewFromInt(val)
	case int32:
		return decimal.NewFromInt(int64(val))
	case int:
		return decimal.NewFromInt(int64(val))
	case uint64:
		return decimal.NewFromUint64(val)
	case float64:
		return decimal.NewFromFloat(val)
	case float32:
		return decimal.NewFromFloat32(val)
	default:
		return v
	}
}

var numericRe = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

func looksNumeric(s string) bool {
	return numericRe.MatchString(s)
}

var versionRe = regexp.MustCompile(`(\d+)\.(\d+)`)

// ParseVersion extracts major.minor from a server version string.
// Returns zeros when no version-like token is present.
func ParseVersion(version string) (major, minor int) {
	m := versionRe.FindStringSubmatch(version)
	if m == nil {
		return 0, 0
	}
	major, _ = strconv.Atoi(m[1])
	minor, _ = strconv.Atoi(m[2])
	return major, minor
}
