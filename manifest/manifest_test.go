package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tarn.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing tarn.toml: %v", err)
	}
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeManifest(t, `
[project]
name = "demo"
version = "0.1.0"

[heap]
initial-gc-threshold = 4096
growth-factor = 1.5
stress-gc = true
log-stats = true

[image]
output = "demo.image"

[store]
path = "demo.db"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Project.Name != "demo" || m.Project.Version != "0.1.0" {
		t.Errorf("project = %+v", m.Project)
	}
	if m.Heap.InitialGCThreshold != 4096 || m.Heap.GrowthFactor != 1.5 {
		t.Errorf("heap = %+v", m.Heap)
	}
	if !m.Heap.StressGC || !m.Heap.LogStats {
		t.Error("heap booleans should parse")
	}
	if m.Image.Output != "demo.image" || m.Store.Path != "demo.db" {
		t.Errorf("image = %+v, store = %+v", m.Image, m.Store)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := writeManifest(t, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Heap.InitialGCThreshold != 1<<20 {
		t.Errorf("InitialGCThreshold = %d, want default 1<<20", m.Heap.InitialGCThreshold)
	}
	if m.Heap.GrowthFactor != 2.0 {
		t.Errorf("GrowthFactor = %v, want default 2.0", m.Heap.GrowthFactor)
	}
	if m.Image.Output != "tarn.image" || m.Store.Path != "tarn-snapshots.db" {
		t.Errorf("defaults not applied: image = %q, store = %q", m.Image.Output, m.Store.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load should fail without tarn.toml")
	}
}

func TestLoadParseError(t *testing.T) {
	dir := writeManifest(t, "not [valid toml")
	if _, err := Load(dir); err == nil {
		t.Error("Load should surface TOML parse errors")
	}
}

func TestDefault(t *testing.T) {
	m := Default()
	if m.Heap.InitialGCThreshold != 1<<20 || m.Heap.GrowthFactor != 2.0 {
		t.Errorf("Default heap = %+v", m.Heap)
	}
	if m.Dir != "" {
		t.Errorf("Default Dir = %q, want empty", m.Dir)
	}
}

func TestPathResolution(t *testing.T) {
	dir := writeManifest(t, `
[image]
output = "out/app.image"
`)
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := filepath.Join(m.Dir, "out", "app.image")
	if m.ImagePath() != want {
		t.Errorf("ImagePath() = %q, want %q", m.ImagePath(), want)
	}
	if m.StorePath() != filepath.Join(m.Dir, "tarn-snapshots.db") {
		t.Errorf("StorePath() = %q", m.StorePath())
	}

	// Absolute paths pass through untouched.
	m.Image.Output = "/abs/app.image"
	if m.ImagePath() != "/abs/app.image" {
		t.Errorf("absolute ImagePath() = %q", m.ImagePath())
	}

	// Without a directory (defaults), paths stay relative.
	d := Default()
	if d.StorePath() != "tarn-snapshots.db" {
		t.Errorf("default StorePath() = %q", d.StorePath())
	}
}
