package routinestore

import (
	"regexp"
	"strings"

	"github.com/runoshun/decree/internal/domain"
)

// paramAssignRE matches a shell-style parameter declaration at the head of
// a routine script: a lowercase identifier followed by "=".
var paramAssignRE = regexp.MustCompile(`^([a-z_][a-z0-9_]*)=(.*)$`)

// parseShell extracts a shell routine's description (the contiguous
// comment block after an optional shebang) and its declared custom
// parameters (assignment lines at the head of the file, stopping at the
// first line that is neither a comment, blank, nor an assignment).
func parseShell(content []byte) (description string, params map[string]string) {
	lines := strings.Split(string(content), "\n")
	params = map[string]string{}

	i := 0
	if i < len(lines) && strings.HasPrefix(lines[i], "#!") {
		i++
	}

	var descLines []string
	for ; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(trimmed, "#") {
			break
		}
		descLines = append(descLines, strings.TrimSpace(strings.TrimPrefix(trimmed, "#")))
	}
	description = strings.TrimSpace(strings.Join(descLines, "\n"))

	// Re-scan from after the shebang for parameter declarations; comments
	// and blank lines may be interspersed with assignments.
	start := 0
	if len(lines) > 0 && strings.HasPrefix(lines[0], "#!") {
		start = 1
	}
	for j := start; j < len(lines); j++ {
		trimmed := strings.TrimSpace(lines[j])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		m := paramAssignRE.FindStringSubmatch(trimmed)
		if m == nil {
			break
		}
		name := m[1]
		if domain.IsStandardParam(name) {
			continue
		}
		params[name] = unquote(m[2])
	}

	return description, params
}

// unquote strips a single layer of matching single or double quotes from
// a shell assignment's value, if present.
func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
