package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnifiedDiff_Sort(t *testing.T) {
	d := UnifiedDiff{Hunks: []Hunk{{Path: "z.txt"}, {Path: "a.txt"}, {Path: "m.txt"}}}
	d.Sort()
	assert.Equal(t, []string{"a.txt", "m.txt", "z.txt"}, []string{d.Hunks[0].Path, d.Hunks[1].Path, d.Hunks[2].Path})
}

func TestUnifiedDiff_IsEmpty(t *testing.T) {
	assert.True(t, UnifiedDiff{}.IsEmpty())
	assert.False(t, UnifiedDiff{Hunks: []Hunk{{Path: "a.txt"}}}.IsEmpty())
}

func TestUnifiedDiff_StringParseRoundTrip_Modify(t *testing.T) {
	d := UnifiedDiff{Hunks: []Hunk{
		{Path: "a.txt", Kind: HunkModify, Text: "@@ -1 +1 @@\n-old\n+new"},
	}}
	rendered := d.String()

	parsed, err := ParseUnifiedDiff(rendered)
	require.NoError(t, err)
	require.Len(t, parsed.Hunks, 1)
	assert.Equal(t, "a.txt", parsed.Hunks[0].Path)
	assert.Equal(t, HunkModify, parsed.Hunks[0].Kind)
	assert.Equal(t, uint32(0), parsed.Hunks[0].Mode)
}

func TestUnifiedDiff_StringParseRoundTrip_CreateCarriesMode(t *testing.T) {
	d := UnifiedDiff{Hunks: []Hunk{
		{Path: "new.txt", Kind: HunkCreate, Mode: 0o644, Text: "@@ -0,0 +1 @@\n+hello"},
	}}
	rendered := d.String()
	assert.Contains(t, rendered, "new file mode 000644")

	parsed, err := ParseUnifiedDiff(rendered)
	require.NoError(t, err)
	require.Len(t, parsed.Hunks, 1)
	assert.Equal(t, HunkCreate, parsed.Hunks[0].Kind)
	assert.Equal(t, "new.txt", parsed.Hunks[0].Path)
	assert.Equal(t, uint32(0o644), parsed.Hunks[0].Mode)
}

func TestUnifiedDiff_StringParseRoundTrip_Delete(t *testing.T) {
	d := UnifiedDiff{Hunks: []Hunk{
		{Path: "gone.txt", Kind: HunkDelete, Mode: 0o644, Text: "@@ -1 +0,0 @@\n-bye"},
	}}
	rendered := d.String()
	assert.Contains(t, rendered, "deleted file mode 000644")

	parsed, err := ParseUnifiedDiff(rendered)
	require.NoError(t, err)
	require.Len(t, parsed.Hunks, 1)
	assert.Equal(t, HunkDelete, parsed.Hunks[0].Kind)
	assert.Equal(t, "gone.txt", parsed.Hunks[0].Path)
}

func TestUnifiedDiff_MultipleHunksPreserveOrder(t *testing.T) {
	d := UnifiedDiff{Hunks: []Hunk{
		{Path: "a.txt", Kind: HunkModify, Text: "@@ -1 +1 @@\n-a\n+A"},
		{Path: "b.txt", Kind: HunkCreate, Mode: 0o644, Text: "@@ -0,0 +1 @@\n+b"},
	}}
	rendered := d.String()

	parsed, err := ParseUnifiedDiff(rendered)
	require.NoError(t, err)
	require.Len(t, parsed.Hunks, 2)
	assert.Equal(t, "a.txt", parsed.Hunks[0].Path)
	assert.Equal(t, "b.txt", parsed.Hunks[1].Path)
}
