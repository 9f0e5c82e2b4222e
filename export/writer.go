// Package export writes FHIR bundles to the output directory
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/giygas/rxnorm-fhir/fhir"
	"github.com/giygas/rxnorm-fhir/logging"
)

// Output file names
const (
	SubstanceFile           = "RxNorm-Substance.json"
	MedicationFile          = "RxNorm-Medication.json"
	MedicationKnowledgeFile = "RxNorm-MedicationKnowledge.json"
)

// Artifact is one bundle and the file it goes to
type Artifact struct {
	Name   string
	Bundle *fhir.Bundle
}

// WriteBundles writes every artifact into dir. All bundles are written to
// temp files first and only renamed once all of them succeeded. The bundles
// of the previous run are moved aside meanwhile and put back if any rename
// fails, so dir never mixes two runs.
func WriteBundles(dir string, artifacts []Artifact) ([]string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	temps := make([]string, 0, len(artifacts))
	cleanup := func() {
		for _, tmp := range temps {
			if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
				logging.Warn("Failed to remove temp file", "file", tmp, "error", err)
			}
		}
	}

	for _, a := range artifacts {
		tmp, err := writeTemp(dir, a)
		if tmp != "" {
			temps = append(temps, tmp)
		}
		if err != nil {
			cleanup()
			return nil, err
		}
	}

	targets := make([]string, len(artifacts))
	for i, a := range artifacts {
		targets[i] = filepath.Join(dir, a.Name)
	}

	moved, err := moveAside(targets)
	if err != nil {
		restore(moved)
		cleanup()
		return nil, err
	}

	paths := make([]string, 0, len(artifacts))
	for i, a := range artifacts {
		if err := os.Rename(temps[i], targets[i]); err != nil {
			for _, placed := range paths {
				if rerr := os.Remove(placed); rerr != nil {
					logging.Warn("Failed to remove partial bundle", "file", placed, "error", rerr)
				}
			}
			restore(moved)
			cleanup()
			return nil, fmt.Errorf("failed to move %s into place: %w", a.Name, err)
		}
		paths = append(paths, targets[i])
	}

	for _, previous := range moved {
		if err := os.Remove(backupPath(previous)); err != nil {
			logging.Warn("Failed to remove previous bundle", "file", backupPath(previous), "error", err)
		}
	}
	for i, a := range artifacts {
		logging.Info("Bundle written", "file", paths[i], "entries", len(a.Bundle.Entry))
	}

	return paths, nil
}

// backupPath is where the bundle of a previous run waits while the new one is moved in
func backupPath(target string) string {
	return filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".previous")
}

// moveAside renames the existing targets to their backup path.
// It returns the targets moved so far, also on error.
func moveAside(targets []string) ([]string, error) {
	var moved []string
	for _, target := range targets {
		if _, err := os.Lstat(target); os.IsNotExist(err) {
			continue
		}
		if err := os.Rename(target, backupPath(target)); err != nil {
			return moved, fmt.Errorf("failed to move previous %s aside: %w", filepath.Base(target), err)
		}
		moved = append(moved, target)
	}
	return moved, nil
}

// restore puts the previous bundles back in place
func restore(moved []string) {
	for _, target := range moved {
		if err := os.Rename(backupPath(target), target); err != nil {
			logging.Error("Failed to restore previous bundle", "file", target, "error", err)
		}
	}
}

// writeTemp encodes a bundle with a 2 space indent next to its final path
func writeTemp(dir string, a Artifact) (string, error) {
	f, err := os.CreateTemp(dir, "."+a.Name+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file for %s: %w", a.Name, err)
	}

	w := bufio.NewWriterSize(f, 1<<20)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(a.Bundle); err != nil {
		_ = f.Close()
		return f.Name(), fmt.Errorf("failed to encode %s: %w", a.Name, err)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return f.Name(), fmt.Errorf("failed to write %s: %w", a.Name, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return f.Name(), fmt.Errorf("failed to sync %s: %w", a.Name, err)
	}
	if err := f.Close(); err != nil {
		return f.Name(), fmt.Errorf("failed to close %s: %w", a.Name, err)
	}
	return f.Name(), nil
}
