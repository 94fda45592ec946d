package seed

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/digitalmaniak/sidewidth/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var builtinPresets []byte

// Coordinate is a point on the map.
type Coordinate struct {
	Lat  float64 `yaml:"lat"`
	Long float64 `yaml:"long"`
}

// Range is an inclusive integer range.
type Range struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// VoteMix weights the shape of each post's vote distribution. Weights need
// not sum to one.
type VoteMix struct {
	Consensus float64 `yaml:"consensus"`
	Divided   float64 `yaml:"divided"`
	Random    float64 `yaml:"random"`
}

// Preset describes one seeded dataset.
type Preset struct {
	Name         string     `yaml:"-"`
	Center       Coordinate `yaml:"center"`
	SpreadKm     float64    `yaml:"spread_km"`
	Profiles     int        `yaml:"profiles"`
	Posts        int        `yaml:"posts"`
	LocatedShare float64    `yaml:"located_share"`
	MaxAgeHours  int        `yaml:"max_age_hours"`
	VotesPerPost Range      `yaml:"votes_per_post"`
	Mix          VoteMix    `yaml:"mix"`
	// Categories restricts generated posts; empty means every category.
	Categories []string `yaml:"categories"`
}

// Validate checks that the preset can be generated.
func (p Preset) Validate() error {
	switch {
	case p.Profiles <= 0:
		return errors.New("profiles must be positive")
	case p.Posts < 0:
		return errors.New("posts must not be negative")
	case p.LocatedShare < 0 || p.LocatedShare > 1:
		return errors.New("located_share must be between 0 and 1")
	case p.SpreadKm < 0:
		return errors.New("spread_km must not be negative")
	case p.Center.Lat < -90 || p.Center.Lat > 90 || p.Center.Long < -180 || p.Center.Long > 180:
		return errors.New("center is out of range")
	case p.VotesPerPost.Min < 0 || p.VotesPerPost.Max < p.VotesPerPost.Min:
		return errors.New("votes_per_post must satisfy 0 <= min <= max")
	case p.VotesPerPost.Max > p.Profiles:
		return fmt.Errorf("votes_per_post.max %d exceeds profiles %d", p.VotesPerPost.Max, p.Profiles)
	case p.Mix.Consensus < 0 || p.Mix.Divided < 0 || p.Mix.Random < 0:
		return errors.New("mix weights must not be negative")
	}
	for _, name := range p.Categories {
		if _, ok := models.ParseCategory(name); !ok {
			return fmt.Errorf("unknown category %q", name)
		}
	}
	return nil
}

func (p Preset) categories() []models.Category {
	if len(p.Categories) == 0 {
		return models.Categories
	}
	out := make([]models.Category, len(p.Categories))
	for i, name := range p.Categories {
		out[i], _ = models.ParseCategory(name)
	}
	return out
}

// LoadPresets decodes a YAML document mapping preset names to presets.
func LoadPresets(r io.Reader) (map[string]Preset, error) {
	var raw map[string]Preset
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode presets: %w", err)
	}
	for name, p := range raw {
		p.Name = name
		if p.MaxAgeHours <= 0 {
			p.MaxAgeHours = 168
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
		raw[name] = p
	}
	return raw, nil
}

// DefaultPresets returns the presets shipped with the seeder.
func DefaultPresets() map[string]Preset {
	presets, err := LoadPresets(bytes.NewReader(builtinPresets))
	if err != nil {
		panic(err)
	}
	return presets
}

// PresetNames lists preset names in sorted order.
func PresetNames(presets map[string]Preset) []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
