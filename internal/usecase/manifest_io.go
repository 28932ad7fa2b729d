package usecase

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/runoshun/decree/internal/domain"
)

func writeManifest(path string, m domain.Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // run directory is decree-managed
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func readManifest(path string) (domain.Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is built from a run directory under .decree/runs
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m domain.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}
