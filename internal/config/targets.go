package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	errs "github.com/alexjbarnes/asset-sync/internal/errors"
)

// Target is one named sync job: a glob of local files kept in step with a
// remote collection through a manifest.
type Target struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"`
	Pattern  string `yaml:"pattern"`
	Manifest string `yaml:"manifest"`
	// IDPattern is a regexp whose first group is the stable ID. Empty means
	// the last [...] group of the file name.
	IDPattern string `yaml:"id_pattern,omitempty"`
}

type targetsFile struct {
	Targets []Target `yaml:"targets"`
}

// LoadTargets reads a YAML targets file:
//
//	targets:
//	  - name: images
//	    kind: images
//	    pattern: assets/images/**/*.png
//	    manifest: assets/images.json
//
// Relative pattern and manifest paths are resolved against the file's
// directory.
func LoadTargets(path string) ([]Target, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is operator supplied
	if err != nil {
		return nil, fmt.Errorf("%w: reading targets file: %w", errs.ErrConfig, err)
	}

	var f targetsFile

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: parsing targets file %s: %w", errs.ErrConfig, path, err)
	}

	base := filepath.Dir(path)
	seen := make(map[string]struct{}, len(f.Targets))

	for i := range f.Targets {
		t := &f.Targets[i]
		t.Kind = strings.ToLower(strings.TrimSpace(t.Kind))

		if err := t.validate(); err != nil {
			return nil, fmt.Errorf("%w: target %d: %w", errs.ErrConfig, i+1, err)
		}

		if _, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate target name %q", errs.ErrConfig, t.Name)
		}

		seen[t.Name] = struct{}{}

		if !filepath.IsAbs(t.Pattern) {
			t.Pattern = filepath.Join(base, t.Pattern)
		}

		if !filepath.IsAbs(t.Manifest) {
			t.Manifest = filepath.Join(base, t.Manifest)
		}
	}

	return f.Targets, nil
}

func (t *Target) validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("name is required")
	}

	if t.Kind != "images" && t.Kind != "sounds" {
		return fmt.Errorf("%s: kind must be images or sounds, got %q", t.Name, t.Kind)
	}

	if strings.TrimSpace(t.Pattern) == "" {
		return fmt.Errorf("%s: pattern is required", t.Name)
	}

	if strings.TrimSpace(t.Manifest) == "" {
		return fmt.Errorf("%s: manifest is required", t.Name)
	}

	return nil
}

// FindTarget returns the target called name.
func FindTarget(targets []Target, name string) (Target, error) {
	for _, t := range targets {
		if t.Name == name {
			return t, nil
		}
	}

	return Target{}, fmt.Errorf("%w: no target named %q", errs.ErrConfig, name)
}
