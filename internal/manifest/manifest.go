package manifest

import (
	"io"

	"github.com/Totto16/msys2-install-packages-pinned/internal/resolver"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Manifest records one resolved run: which artifact every requested
// package resolved to, batch by batch.
type Manifest struct {
	Environment string  `yaml:"environment"`
	Repository  string  `yaml:"repository"`
	Batches     []Batch `yaml:"batches"`
}

// Batch mirrors one specification line.
type Batch struct {
	Packages []Package `yaml:"packages"`
}

// Package is one resolved unit of a batch.
type Package struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version,omitempty"`
	URL     string `yaml:"url,omitempty"`
	File    string `yaml:"file,omitempty"`
	Virtual bool   `yaml:"virtual,omitempty"`
}

// New builds the manifest for a resolved run.
func New(environment, repository string, resolved [][]resolver.Package) *Manifest {
	m := &Manifest{
		Environment: environment,
		Repository:  repository,
		Batches:     make([]Batch, 0, len(resolved)),
	}
	for _, batch := range resolved {
		b := Batch{Packages: make([]Package, 0, len(batch))}
		for _, pkg := range batch {
			if pkg.Virtual {
				b.Packages = append(b.Packages, Package{Name: pkg.Name, Virtual: true})
				continue
			}
			b.Packages = append(b.Packages, Package{
				Name:    pkg.Name,
				Version: pkg.Version.String(),
				URL:     pkg.URL,
				File:    pkg.File,
			})
		}
		m.Batches = append(m.Batches, b)
	}
	return m
}

// Write emits the manifest as YAML.
func (m *Manifest) Write(w io.Writer) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return zerr.Wrap(err, "marshaling manifest")
	}
	if _, err := w.Write(data); err != nil {
		return zerr.Wrap(err, "writing manifest")
	}
	return nil
}

// Read parses a manifest written by Write.
func Read(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, zerr.Wrap(err, "reading manifest")
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, zerr.Wrap(err, "parsing manifest")
	}
	return &m, nil
}
