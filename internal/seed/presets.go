package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var builtinPresets []byte

// Preset describes the size and shape of a seeded dataset.
type Preset struct {
	Name            string  `yaml:"name"`
	Users           int     `yaml:"users"`
	Staff           int     `yaml:"staff"`
	PostsPerUser    int     `yaml:"posts_per_user"`
	CommentsPerPost int     `yaml:"comments_per_post"`
	Tags            int     `yaml:"tags"`
	DraftRatio      float64 `yaml:"draft_ratio"`
	ApprovedRatio   float64 `yaml:"approved_ratio"`
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// Validate checks counts and ratios.
func (p Preset) Validate() error {
	switch {
	case p.Name == "":
		return errors.New("preset name is required")
	case p.Users < 1:
		return fmt.Errorf("preset %s: users must be at least 1", p.Name)
	case p.Staff < 0 || p.Staff > p.Users:
		return fmt.Errorf("preset %s: staff must be between 0 and users", p.Name)
	case p.PostsPerUser < 0 || p.CommentsPerPost < 0 || p.Tags < 0:
		return fmt.Errorf("preset %s: counts must not be negative", p.Name)
	case p.DraftRatio < 0 || p.DraftRatio > 1:
		return fmt.Errorf("preset %s: draft_ratio must be within [0, 1]", p.Name)
	case p.ApprovedRatio < 0 || p.ApprovedRatio > 1:
		return fmt.Errorf("preset %s: approved_ratio must be within [0, 1]", p.Name)
	}
	return nil
}

// ParsePresets decodes a presets document keyed by name.
func ParsePresets(data []byte) (map[string]Preset, error) {
	var doc presetFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	out := make(map[string]Preset, len(doc.Presets))
	for _, p := range doc.Presets {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := out[p.Name]; dup {
			return nil, fmt.Errorf("preset %s defined twice", p.Name)
		}
		out[p.Name] = p
	}
	return out, nil
}

// LoadPresets returns the built-in presets overlaid with those in path, if set.
func LoadPresets(path string) (map[string]Preset, error) {
	presets, err := ParsePresets(builtinPresets)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return presets, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	extra, err := ParsePresets(data)
	if err != nil {
		return nil, err
	}
	for name, p := range extra {
		presets[name] = p
	}
	return presets, nil
}
