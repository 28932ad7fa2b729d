package checkpoint

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/runoshun/decree/internal/domain"
)

// sniffWindow is how much of a file's head is inspected to classify it
// as text or binary.
const sniffWindow = 8192

// looksBinary applies spec.md's null-byte-in-first-8KiB heuristic.
func looksBinary(content []byte) bool {
	n := len(content)
	if n > sniffWindow {
		n = sniffWindow
	}
	return bytes.IndexByte(content[:n], 0) >= 0
}

// renderBinaryHunk encodes a binary path's pre- and post-image (either
// may be nil, denoting absence for a create or delete hunk) into a hunk
// body under a fixed two-section marker format.
func renderBinaryHunk(pre, post []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", domain.BinaryPreMarker)
	if pre != nil {
		b.WriteString(base64.StdEncoding.EncodeToString(pre))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%s\n", domain.BinaryPostMarker)
	if post != nil {
		b.WriteString(base64.StdEncoding.EncodeToString(post))
		b.WriteString("\n")
	}
	return b.String()
}

// parseBinaryHunk decodes a hunk body rendered by renderBinaryHunk,
// reporting nil for whichever side was absent.
func parseBinaryHunk(text string) (pre, post []byte, err error) {
	preIdx := strings.Index(text, domain.BinaryPreMarker)
	postIdx := strings.Index(text, domain.BinaryPostMarker)
	if preIdx < 0 || postIdx < 0 || postIdx < preIdx {
		return nil, nil, fmt.Errorf("malformed binary hunk")
	}
	preBlock := strings.TrimSpace(text[preIdx+len(domain.BinaryPreMarker) : postIdx])
	postBlock := strings.TrimSpace(text[postIdx+len(domain.BinaryPostMarker):])

	if preBlock != "" {
		pre, err = base64.StdEncoding.DecodeString(preBlock)
		if err != nil {
			return nil, nil, fmt.Errorf("decode pre-image: %w", err)
		}
	}
	if postBlock != "" {
		post, err = base64.StdEncoding.DecodeString(postBlock)
		if err != nil {
			return nil, nil, fmt.Errorf("decode post-image: %w", err)
		}
	}
	return pre, post, nil
}
