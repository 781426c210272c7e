package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/qnetworks/qnet/sim"
)

// SettingsFile is the YAML run configuration: the runner's settings plus
// the seed strategy choice.
type SettingsFile struct {
	sim.RunSettings `yaml:",inline"`

	Seed         int64 `yaml:"seed"`
	EntropySeeds bool  `yaml:"entropy_seeds"`
}

// SeedStrategy returns the strategy the file selects.
func (f *SettingsFile) SeedStrategy() sim.SeedStrategy {
	if f.EntropySeeds {
		return sim.EntropySeeds{}
	}
	base := f.Seed
	if base == 0 {
		base = sim.DefaultSeed
	}
	return sim.FixedSeeds{Base: base}
}

// LoadSettings reads and parses a YAML run settings file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadSettings(path string) (*SettingsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run settings: %w", err)
	}
	file := &SettingsFile{}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(file); err != nil {
		return nil, fmt.Errorf("parsing run settings: %w", err)
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return file, nil
}
