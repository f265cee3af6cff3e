package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/role-import/modules/access/domain/entities/assignment"
)

type importManifestV1 struct {
	Version    int       `json:"version"`
	RunID      uuid.UUID `json:"run_id"`
	Status     string    `json:"status"`
	Driver     string    `json:"driver"`
	Table      string    `json:"table"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Input      struct {
		Path   string `json:"path"`
		Format string `json:"format"`
		Sheet  string `json:"sheet"`
	} `json:"input"`
	Inserted []assignment.Pair `json:"inserted"`
	Summary  map[string]int    `json:"summary"`
}

func manifestPath(dir string, manifest *importManifestV1) string {
	ts := manifest.FinishedAt.UTC().Format("20060102T150405Z")
	return filepath.Join(dir, fmt.Sprintf("import_manifest_%s_%s.json", ts, manifest.RunID.String()))
}

func writeManifest(dir string, manifest *importManifestV1) (string, error) {
	path := manifestPath(dir, manifest)
	if err := writeJSONFile(path, manifest); err != nil {
		return "", err
	}
	return path, nil
}

func readManifest(path string) (*importManifestV1, error) {
	var m importManifestV1
	if err := readJSONFile(path, &m); err != nil {
		return nil, err
	}
	if m.Version != 1 {
		return nil, withCode(exitValidation, fmt.Errorf("unsupported manifest version: %d", m.Version))
	}
	if m.RunID == uuid.Nil {
		return nil, withCode(exitValidation, fmt.Errorf("manifest run_id is required"))
	}
	return &m, nil
}
