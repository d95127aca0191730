// Package playbill parses the YAML scenario files the demo runner performs:
// named acts, exchanges, and curtain calls.
package playbill

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Playbill is one runnable scenario.
type Playbill struct {
	Title        string        `yaml:"title"`
	Acts         []Act         `yaml:"acts"`
	Exchanges    []Exchange    `yaml:"exchanges"`
	CurtainCalls []CurtainCall `yaml:"curtain_calls"`
}

// Act names a scene to perform and its parameters.
type Act struct {
	Name   string         `yaml:"name"`
	Kind   string         `yaml:"kind"`
	Params map[string]any `yaml:"params"`
}

// Exchange declares a bounded buffer available to acts.
type Exchange struct {
	Name     string `yaml:"name"`
	Capacity int    `yaml:"capacity"`
}

// CurtainCall schedules an act on a cron expression.
type CurtainCall struct {
	Title   string `yaml:"title"`
	Cron    string `yaml:"cron"`
	Act     string `yaml:"act"`
	MaxRuns int    `yaml:"max_runs"`
}

// Load reads and validates a playbill file.
func Load(path string) (*Playbill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read playbill: %w", err)
	}
	return Parse(data)
}

// Parse unmarshals and validates playbill YAML.
func Parse(data []byte) (*Playbill, error) {
	var pb Playbill
	if err := yaml.Unmarshal(data, &pb); err != nil {
		return nil, fmt.Errorf("unmarshal playbill: %w", err)
	}
	if err := pb.validate(); err != nil {
		return nil, err
	}
	return &pb, nil
}

func (pb *Playbill) validate() error {
	if len(pb.Acts) == 0 {
		return fmt.Errorf("playbill %q has no acts", pb.Title)
	}
	acts := make(map[string]bool, len(pb.Acts))
	for _, act := range pb.Acts {
		if act.Name == "" {
			return fmt.Errorf("playbill %q has an unnamed act", pb.Title)
		}
		if act.Kind == "" {
			return fmt.Errorf("act %q has no kind", act.Name)
		}
		if acts[act.Name] {
			return fmt.Errorf("duplicate act name %q", act.Name)
		}
		acts[act.Name] = true
	}
	names := make(map[string]bool, len(pb.Exchanges))
	for _, x := range pb.Exchanges {
		if x.Name == "" {
			return fmt.Errorf("playbill %q has an unnamed exchange", pb.Title)
		}
		if x.Capacity < 0 {
			return fmt.Errorf("exchange %q has negative capacity", x.Name)
		}
		if names[x.Name] {
			return fmt.Errorf("duplicate exchange name %q", x.Name)
		}
		names[x.Name] = true
	}
	for _, cc := range pb.CurtainCalls {
		if cc.Cron == "" {
			return fmt.Errorf("curtain call %q has no cron", cc.Title)
		}
		if !acts[cc.Act] {
			return fmt.Errorf("curtain call %q references unknown act %q", cc.Title, cc.Act)
		}
	}
	return nil
}

// ActByName returns the named act.
func (pb *Playbill) ActByName(name string) (Act, bool) {
	for _, act := range pb.Acts {
		if act.Name == name {
			return act, true
		}
	}
	return Act{}, false
}
