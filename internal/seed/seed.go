// Package seed loads sample finished-race reports for populating an empty graph.
package seed

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/racegraph/internal/domain/race"
)

//go:embed races.yaml
var defaultRaces []byte

type yamlSeedFile struct {
	Races []yamlRace `yaml:"races"`
}

type yamlRace struct {
	Mode    string       `yaml:"mode"`
	Track   string       `yaml:"track"`
	Players []yamlPlayer `yaml:"players"`
}

type yamlPlayer struct {
	ID        string    `yaml:"id"`
	Name      string    `yaml:"name"`
	Character string    `yaml:"character"`
	Kart      string    `yaml:"kart"`
	Wheel     string    `yaml:"wheel"`
	Glider    string    `yaml:"glider"`
	Stats     yamlStats `yaml:"stats"`
}

type yamlStats struct {
	WeightTotal int `yaml:"weight_total"`
	SpeedTotal  int `yaml:"speed_total"`
	AccelTotal  int `yaml:"accel_total"`
}

// Default returns the embedded sample races.
func Default() ([]race.Report, error) {
	return Parse(defaultRaces)
}

// Load reads reports from path, or the embedded races when path is empty.
func Load(path string) ([]race.Report, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a seed document. Validation is left to the race store so seeded reports
// go through the same checks as submitted ones.
func Parse(raw []byte) ([]race.Report, error) {
	var doc yamlSeedFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode seed yaml: %w", err)
	}
	if len(doc.Races) == 0 {
		return nil, fmt.Errorf("seed yaml: no races")
	}
	out := make([]race.Report, 0, len(doc.Races))
	for _, r := range doc.Races {
		report := race.Report{
			Mode:    race.Mode(r.Mode),
			Track:   race.NamedRef{Name: r.Track},
			Players: make([]race.PlayerResult, 0, len(r.Players)),
		}
		for i, p := range r.Players {
			report.Players = append(report.Players, race.PlayerResult{
				ID:        p.ID,
				Name:      p.Name,
				Character: race.NamedRef{Name: p.Character},
				Kart:      race.NamedRef{Name: p.Kart},
				Wheel:     race.NamedRef{Name: p.Wheel},
				Glider:    race.NamedRef{Name: p.Glider},
				Position:  i + 1,
				Stats: race.Stats{
					WeightTotal: p.Stats.WeightTotal,
					SpeedTotal:  p.Stats.SpeedTotal,
					AccelTotal:  p.Stats.AccelTotal,
				},
			})
		}
		out = append(out, report)
	}
	return out, nil
}
