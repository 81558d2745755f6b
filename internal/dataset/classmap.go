package dataset

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Ignore is the remap target for categories that are dropped from the labels.
const Ignore = "None"

// ClassMap remaps raw nuImages category names onto the detector's class names.
type ClassMap map[string]string

// DefaultClassMap collapses the nuImages taxonomy into the classes used for training.
// The ego vehicle is removed from the labels.
func DefaultClassMap() ClassMap {
	return ClassMap{
		"animal":                               "animal",
		"human.pedestrian.adult":               "person",
		"human.pedestrian.child":               "person",
		"human.pedestrian.construction_worker": "person",
		"human.pedestrian.personal_mobility":   "person",
		"human.pedestrian.police_officer":      "person",
		"human.pedestrian.stroller":            "person",
		"human.pedestrian.wheelchair":          "person",
		"movable_object.barrier":               "barrier",
		"movable_object.debris":                "debris",
		"movable_object.pushable_pullable":     "object_pushable_pullable",
		"movable_object.trafficcone":           "traffic cone",
		"static_object.bicycle_rack":           "bicycle rack",
		"vehicle.bicycle":                      "bicycle",
		"vehicle.bus.bendy":                    "bus",
		"vehicle.bus.rigid":                    "bus",
		"vehicle.car":                          "car",
		"vehicle.construction":                 "construction vechicle", // sic, trained models carry this name
		"vehicle.emergency.ambulance":          "truck",
		"vehicle.emergency.police":             "car",
		"vehicle.motorcycle":                   "motorcycle",
		"vehicle.trailer":                      "trailer",
		"vehicle.truck":                        "truck",
		"vehicle.ego":                          Ignore,
	}
}

// LoadClassMap reads a YAML file of "raw category: class name" pairs.
func LoadClassMap(filename string) (ClassMap, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	m := ClassMap{}
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse class map %v: %w", filename, err)
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("class map %v is empty", filename)
	}
	return m, nil
}

// Classes returns the sorted, de-duplicated class names, without Ignore.
func (m ClassMap) Classes() []string {
	seen := map[string]bool{}
	classes := []string{}
	for _, c := range m {
		if c == Ignore || seen[c] {
			continue
		}
		seen[c] = true
		classes = append(classes, c)
	}
	sort.Strings(classes)
	return classes
}

// Index maps every raw category name that is not ignored onto its position in Classes().
func (m ClassMap) Index() map[string]int {
	classes := m.Classes()
	pos := make(map[string]int, len(classes))
	for i, c := range classes {
		pos[c] = i
	}
	index := map[string]int{}
	for raw, c := range m {
		if c != Ignore {
			index[raw] = pos[c]
		}
	}
	return index
}

// Resolver answers category lookups against a precomputed index.
type Resolver struct {
	classMap ClassMap
	index    map[string]int
	classes  []string
}

func NewResolver(m ClassMap) *Resolver {
	return &Resolver{
		classMap: m,
		index:    m.Index(),
		classes:  m.Classes(),
	}
}

type LookupResult int

const (
	LookupOK      LookupResult = iota
	LookupIgnored              // Category maps to Ignore
	LookupUnknown              // Category is not in the class map
)

// Lookup returns the class index of a raw category name.
func (r *Resolver) Lookup(raw string) (int, LookupResult) {
	target, ok := r.classMap[raw]
	if !ok {
		return -1, LookupUnknown
	}
	if target == Ignore {
		return -1, LookupIgnored
	}
	return r.index[raw], LookupOK
}

func (r *Resolver) Classes() []string {
	return r.classes
}
