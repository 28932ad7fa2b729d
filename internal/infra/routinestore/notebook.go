package routinestore

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/runoshun/decree/internal/domain"
)

// parametersTag is the cell-tag convention (shared with papermill) marking
// a code cell as the routine's parameter declarations.
const parametersTag = "parameters"

// notebookDoc is the subset of the Jupyter notebook format decree reads.
type notebookDoc struct {
	Cells []notebookCell `json:"cells"`
}

type notebookCell struct {
	CellType string          `json:"cell_type"`
	Metadata notebookCellMD  `json:"metadata"`
	Source   notebookSource  `json:"source"`
}

type notebookCellMD struct {
	Tags []string `json:"tags"`
}

// notebookSource accepts both wire shapes a notebook cell's "source" field
// can take: a single string, or a list of lines.
type notebookSource []string

func (s *notebookSource) UnmarshalJSON(data []byte) error {
	var lines []string
	if err := json.Unmarshal(data, &lines); err == nil {
		*s = lines
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*s = strings.SplitAfter(single, "\n")
	return nil
}

func (c notebookCell) hasTag(tag string) bool {
	for _, t := range c.Metadata.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (c notebookCell) text() string {
	return strings.Join([]string(c.Source), "")
}

// parseNotebook extracts a notebook routine's description (its first
// markdown/documentation cell) and declared custom parameters (assignment
// lines within the cell tagged "parameters").
func parseNotebook(content []byte) (description string, params map[string]string, err error) {
	var doc notebookDoc
	if err := json.Unmarshal(content, &doc); err != nil {
		return "", nil, fmt.Errorf("decode notebook: %w", err)
	}

	params = map[string]string{}
	for _, cell := range doc.Cells {
		if cell.CellType == "markdown" && description == "" {
			description = strings.TrimSpace(cell.text())
		}
		if cell.CellType == "code" && cell.hasTag(parametersTag) {
			for _, line := range strings.Split(cell.text(), "\n") {
				trimmed := strings.TrimSpace(line)
				if trimmed == "" || strings.HasPrefix(trimmed, "#") {
					continue
				}
				m := paramAssignRE.FindStringSubmatch(trimmed)
				if m == nil {
					continue
				}
				name := m[1]
				if domain.IsStandardParam(name) {
					continue
				}
				params[name] = unquote(m[2])
			}
		}
	}

	return description, params, nil
}
