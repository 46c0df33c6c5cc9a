// Package descriptor reads the dataset descriptor handed to the training
// framework. The file is owned by the framework; this package only inspects
// it so drift from the expected class list can be reported early.
package descriptor

import (
	"fmt"
	"slices"
	"sort"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

// Descriptor is the subset of the YOLO dataset YAML this tool looks at.
type Descriptor struct {
	Root  string `yaml:"path,omitempty"`
	Train string `yaml:"train,omitempty"`
	Val   string `yaml:"val,omitempty"`
	NC    int    `yaml:"nc,omitempty"`
	Names Names  `yaml:"names,omitempty"`
}

// Names accepts both forms the framework understands: a plain list, or a map
// from class index to name.
type Names []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *Names) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var list []string
	if err := unmarshal(&list); err == nil {
		*n = list
		return nil
	}

	var indexed map[int]string
	if err := unmarshal(&indexed); err != nil {
		return fmt.Errorf("names must be a list or an index map: %w", err)
	}
	keys := make([]int, 0, len(indexed))
	for k := range indexed {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]string, 0, len(keys))
	for i, k := range keys {
		if k != i {
			return fmt.Errorf("names index map is not contiguous from 0: missing %d", i)
		}
		out = append(out, indexed[k])
	}
	*n = out
	return nil
}

// Load parses the descriptor at path.
func Load(fs afero.Fs, path string) (*Descriptor, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor %s: %w", path, err)
	}
	return &d, nil
}

// Drift lists every way the descriptor disagrees with the expected classes.
// Fields the descriptor leaves out are not compared.
func (d *Descriptor) Drift(expected []string) []string {
	var drift []string
	if d.NC != 0 && d.NC != len(expected) {
		drift = append(drift, fmt.Sprintf("nc is %d, expected %d", d.NC, len(expected)))
	}
	if len(d.Names) > 0 && !slices.Equal(d.Names, expected) {
		drift = append(drift, fmt.Sprintf("names are %q, expected %q", []string(d.Names), expected))
	}
	return drift
}
