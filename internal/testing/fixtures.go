// Package testing holds fixtures shared by citykit's package tests.
package testing

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

// WriteCity writes a project's city document as city.json, or gzipped as
// city.json.gz, and returns its path.
func WriteCity(t *testing.T, dir string, compressed bool, content string) string {
	t.Helper()
	if !compressed {
		return WriteFile(t, filepath.Join(dir, "city.json"), content)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to gzip city: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to gzip city: %v", err)
	}
	return WriteFile(t, filepath.Join(dir, "city.json.gz"), buf.String())
}

// WriteCore lays out core name under coresDir with a settings.json and one
// migrations/<file> per script. It returns the core directory.
func WriteCore(t *testing.T, coresDir, name, settings string, scripts map[string]string) string {
	t.Helper()
	dir := filepath.Join(coresDir, name)
	WriteFile(t, filepath.Join(dir, "settings.json"), settings)
	for file, src := range scripts {
		WriteFile(t, filepath.Join(dir, "migrations", file), src)
	}
	return dir
}
