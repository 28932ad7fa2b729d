package domain

import (
	"io/fs"
	"sort"
)

// ManifestEntry describes a single file as captured by a checkpoint.
type ManifestEntry struct {
	ContentHash string      `json:"hash"` // hex-encoded SHA-256 of the raw file bytes
	Size        int64       `json:"size"` // file size in bytes
	Mode        fs.FileMode `json:"mode"` // file mode bits
}

// Manifest maps repo-relative paths to their captured state. It covers
// exactly the set of files visible to the ignore-aware walker at
// snapshot time.
type Manifest map[string]ManifestEntry

// Paths returns the manifest's keys in lexicographic order.
func (m Manifest) Paths() []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Equal reports whether m and other describe identical path sets and hashes.
func (m Manifest) Equal(other Manifest) bool {
	if len(m) != len(other) {
		return false
	}
	for path, entry := range m {
		o, ok := other[path]
		if !ok || o.ContentHash != entry.ContentHash {
			return false
		}
	}
	return true
}

// Diff returns paths present only in m, only in other, and in both with
// differing hashes.
func (m Manifest) Diff(other Manifest) (onlyM, onlyOther, changed []string) {
	for path, entry := range m {
		o, ok := other[path]
		switch {
		case !ok:
			onlyM = append(onlyM, path)
		case o.ContentHash != entry.ContentHash:
			changed = append(changed, path)
		}
	}
	for path := range other {
		if _, ok := m[path]; !ok {
			onlyOther = append(onlyOther, path)
		}
	}
	sort.Strings(onlyM)
	sort.Strings(onlyOther)
	sort.Strings(changed)
	return onlyM, onlyOther, changed
}
