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
	"fmt"
	"regexp"
	"strings"
)

// Templates are pure substitution: {{.variable}} placeholders replaced
// by values from a fixed record, no code execution. Unknown placeholders
// are left in place so a bad template is visible in the output instead
// of silently eaten.

var templateRe = regexp.MustCompile(`\{\{\.(\w+)\}\}`)

// Render substitutes placeholders in template from vars.
func Render(template string, vars map[string]interface{}) string {
	if vars == nil {
		return template
	}
	return templateRe.ReplaceAllStringFunc(template, func(match string) string {
		name := strings.TrimPrefix(strings.TrimSuffix(match, "}}"), "{{.")
		value, ok := vars[name]
		if !ok {
			return match
		}
		switch v := value.(type) {
		case string:
			return v
		case []string:
			return strings.Join(v, ", ")
		default:
			return fmt.Sprintf("%v", v)
		}
	})
}

// DefaultTemplate is the built-in DBA report prompt. Template inputs are
// exactly: version_metadata, target, environment, findings_full,
// findings_summary, triggered_by_severity, generation_time.
const DefaultTemplate = `You are a senior database reliability engineer reviewing a health check.

Target: {{.target}}
Server: {{.version_metadata}}
Environment: {{.environment}}
Generated: {{.generation_time}}

Triggered rules by severity:
{{.triggered_by_severity}}

Full findings for checks with critical or high severity triggers:
{{.findings_full}}

Summaries of the remaining checks:
{{.findings_summary}}

Write a concise health assessment. Lead with the most severe issues,
explain their operational impact, and give concrete remediation steps.
If nothing is wrong, say so briefly.`
