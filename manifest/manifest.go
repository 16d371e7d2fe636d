// Package manifest handles tarn.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a tarn.toml configuration file.
type Manifest struct {
	Project Project     `toml:"project"`
	Heap    HeapConfig  `toml:"heap"`
	Image   ImageConfig `toml:"image"`
	Store   StoreConfig `toml:"store"`

	// Dir is the directory containing the tarn.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// HeapConfig tunes the runtime heap and collector.
type HeapConfig struct {
	InitialGCThreshold int64   `toml:"initial-gc-threshold"`
	GrowthFactor       float64 `toml:"growth-factor"`
	StressGC           bool    `toml:"stress-gc"`
	LogStats           bool    `toml:"log-stats"`
}

// ImageConfig configures heap image output.
type ImageConfig struct {
	Output string `toml:"output"`
}

// StoreConfig configures the snapshot store.
type StoreConfig struct {
	Path string `toml:"path"`
}

// Load parses a tarn.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "tarn.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	return &m, nil
}

// Default returns a manifest with default settings, used when no tarn.toml
// is present.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Heap.InitialGCThreshold <= 0 {
		m.Heap.InitialGCThreshold = 1 << 20
	}
	if m.Heap.GrowthFactor <= 1 {
		m.Heap.GrowthFactor = 2.0
	}
	if m.Image.Output == "" {
		m.Image.Output = "tarn.image"
	}
	if m.Store.Path == "" {
		m.Store.Path = "tarn-snapshots.db"
	}
}

// ImagePath returns the image output path resolved against the manifest
// directory.
func (m *Manifest) ImagePath() string {
	return m.resolve(m.Image.Output)
}

// StorePath returns the snapshot store path resolved against the manifest
// directory.
func (m *Manifest) StorePath() string {
	return m.resolve(m.Store.Path)
}

func (m *Manifest) resolve(path string) string {
	if filepath.IsAbs(path) || m.Dir == "" {
		return path
	}
	return filepath.Join(m.Dir, path)
}
