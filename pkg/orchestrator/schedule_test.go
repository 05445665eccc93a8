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

package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchedule_ValidatesSpec(t *testing.T) {
	o, err := New(Config{Registry: testRegistry(t)})
	require.NoError(t, err)

	_, err = o.NewSchedule("not a cron line", nil)
	require.Error(t, err)

	_, err = o.NewSchedule("*/5 * * * *", nil)
	assert.NoError(t, err)

	_, err = o.NewSchedule("@hourly", nil)
	assert.NoError(t, err)
}
