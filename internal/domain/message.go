package domain

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// MessageType distinguishes a spec-derived message from an ad-hoc task.
type MessageType string

// Valid message types.
const (
	MessageTypeSpec MessageType = "spec"
	MessageTypeTask MessageType = "task"
)

// headerDelimiter brackets the structured header block in a message file.
const headerDelimiter = "---"

// Message is a unit of work in the pipeline.
// Fields are ordered to minimize memory padding.
type Message struct {
	Chain      ChainID           `yaml:"chain,omitempty"`
	Type       MessageType       `yaml:"type,omitempty"`
	InputFile  string            `yaml:"input_file,omitempty"`
	Routine    string            `yaml:"routine,omitempty"`
	RouterUsed bool              `yaml:"-"`
	Extra      map[string]string `yaml:",inline"`
	Body       string            `yaml:"-"`
	SourcePath string            `yaml:"-"`
	Seq        int               `yaml:"seq"`
}

// ID returns the canonical "<chain>-<seq>" identifier for m.
func (m *Message) ID() string {
	return MessageID(m.Chain, m.Seq)
}

// messageHeader is the wire shape of the structured header block.
// It exists separately from Message so that yaml's inline-map handling
// doesn't have to fight Message's non-string fields.
type messageHeader struct {
	Extra     map[string]string `yaml:",inline"`
	Chain     string            `yaml:"chain,omitempty"`
	Type      string            `yaml:"type,omitempty"`
	InputFile string            `yaml:"input_file,omitempty"`
	Routine   string            `yaml:"routine,omitempty"`
	Seq       *int              `yaml:"seq,omitempty"`
}

// ParseMessage splits raw message file content into its structured header
// (if present) and free-form body. A header is present when the content
// begins with a line matching headerDelimiter; it is terminated by a
// second such line. Absence of a header yields an all-defaults Message
// whose Body is the entire content.
func ParseMessage(content string) (*Message, error) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != headerDelimiter {
		return &Message{Extra: map[string]string{}, Body: content}, nil
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == headerDelimiter {
			end = i
			break
		}
	}
	if end == -1 {
		return nil, fmt.Errorf("message header: missing closing %q delimiter", headerDelimiter)
	}

	headerText := strings.Join(lines[1:end], "\n")
	body := strings.Join(lines[end+1:], "\n")
	body = strings.TrimPrefix(body, "\n")

	var h messageHeader
	if strings.TrimSpace(headerText) != "" {
		if err := yaml.Unmarshal([]byte(headerText), &h); err != nil {
			return nil, fmt.Errorf("message header: %w", err)
		}
	}

	msg := &Message{
		Type:      MessageType(h.Type),
		InputFile: h.InputFile,
		Routine:   h.Routine,
		Extra:     h.Extra,
		Body:      body,
	}
	if h.Chain != "" {
		msg.Chain = ChainID(h.Chain)
	}
	if h.Seq != nil {
		msg.Seq = *h.Seq
	}
	if msg.Extra == nil {
		msg.Extra = map[string]string{}
	}
	// yaml's inline map also captures the known fields under their keys;
	// strip them back out so Extra only holds genuinely custom fields.
	for _, known := range []string{"chain", "type", "input_file", "routine", "seq"} {
		delete(msg.Extra, known)
	}
	return msg, nil
}

// Serialize renders m back into message file content: header block (always
// emitted, since seq is always written) followed by the body verbatim.
func (m *Message) Serialize() (string, error) {
	h := messageHeader{
		Chain:     string(m.Chain),
		Type:      string(m.Type),
		InputFile: m.InputFile,
		Routine:   m.Routine,
		Extra:     m.Extra,
	}
	seq := m.Seq
	h.Seq = &seq

	headerBytes, err := yaml.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("serialize message header: %w", err)
	}

	var b strings.Builder
	b.WriteString(headerDelimiter)
	b.WriteString("\n")
	b.Write(headerBytes)
	b.WriteString(headerDelimiter)
	b.WriteString("\n\n")
	b.WriteString(m.Body)
	return b.String(), nil
}
