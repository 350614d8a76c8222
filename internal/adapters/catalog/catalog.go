// Package catalog loads experiment definitions from a YAML file so they can
// be created at startup or checked in CI.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/PabloGalante/farum-insights/internal/app/experiments"
	"github.com/PabloGalante/farum-insights/internal/domain"
)

type file struct {
	Experiments []domain.ExperimentConfig `yaml:"experiments"`
}

// Load reads and validates the catalog at path.
func Load(path string) ([]domain.ExperimentConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening experiment catalog: %w", err)
	}
	defer f.Close()

	cfgs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfgs, nil
}

// Parse decodes a catalog and runs every entry through the same checks
// CreateTest applies. Unknown keys are rejected. All invalid entries are
// reported together.
func Parse(r io.Reader) ([]domain.ExperimentConfig, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc file
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding experiment catalog: %w", err)
	}

	var errs []error
	for i, cfg := range doc.Experiments {
		if err := experiments.ValidateConfig(cfg); err != nil {
			errs = append(errs, fmt.Errorf("experiment %d (%q): %w", i, cfg.Name, err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return doc.Experiments, nil
}
