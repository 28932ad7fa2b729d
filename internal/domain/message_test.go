package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage_NoHeader(t *testing.T) {
	msg, err := ParseMessage("just a plain task body\nwith two lines")
	require.NoError(t, err)
	assert.Equal(t, "just a plain task body\nwith two lines", msg.Body)
	assert.Empty(t, msg.Chain)
	assert.Empty(t, msg.Type)
}

func TestParseMessage_WithHeader(t *testing.T) {
	content := "---\n" +
		"chain: \"2026080215304500\"\n" +
		"type: task\n" +
		"routine: fix-bug\n" +
		"seq: 2\n" +
		"priority: high\n" +
		"---\n" +
		"\n" +
		"do the thing\n"

	msg, err := ParseMessage(content)
	require.NoError(t, err)
	assert.Equal(t, ChainID("2026080215304500"), msg.Chain)
	assert.Equal(t, MessageTypeTask, msg.Type)
	assert.Equal(t, "fix-bug", msg.Routine)
	assert.Equal(t, 2, msg.Seq)
	assert.Equal(t, "do the thing\n", msg.Body)
	assert.Equal(t, "high", msg.Extra["priority"])
	// known header keys never leak into Extra
	_, ok := msg.Extra["chain"]
	assert.False(t, ok)
}

func TestParseMessage_MissingClosingDelimiter(t *testing.T) {
	_, err := ParseMessage("---\nchain: x\n")
	assert.Error(t, err)
}

func TestMessage_SerializeRoundTrip(t *testing.T) {
	msg := &Message{
		Chain:   ChainID("2026080215304500"),
		Type:    MessageTypeSpec,
		Routine: "deploy",
		Seq:     1,
		Extra:   map[string]string{"env": "prod"},
		Body:    "ship it\n",
	}
	rendered, err := msg.Serialize()
	require.NoError(t, err)

	parsed, err := ParseMessage(rendered)
	require.NoError(t, err)
	assert.Equal(t, msg.Chain, parsed.Chain)
	assert.Equal(t, msg.Type, parsed.Type)
	assert.Equal(t, msg.Routine, parsed.Routine)
	assert.Equal(t, msg.Seq, parsed.Seq)
	assert.Equal(t, msg.Body, parsed.Body)
	assert.Equal(t, "prod", parsed.Extra["env"])
}

func TestMessage_ID(t *testing.T) {
	msg := &Message{Chain: ChainID("2026080215304500"), Seq: 4}
	assert.Equal(t, "2026080215304500-4", msg.ID())
}
