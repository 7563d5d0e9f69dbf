package diff

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math/big"
	"reflect"
	"slices"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/five82/hostdiff/internal/snapshot"
)

// ErrMalformedSnapshot reports a snapshot that repeats a service identity.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// Result is the structured difference between snapshot A and snapshot B.
type Result struct {
	Added    []snapshot.Service `json:"services_added"`
	Removed  []snapshot.Service `json:"services_removed"`
	Modified []Modification     `json:"services_modified"`
}

// Modification describes a service present in both snapshots whose fields differ.
type Modification struct {
	Port     int                    `json:"port"`
	Protocol string                 `json:"protocol"`
	Changes  map[string]FieldChange `json:"changes"`
}

// Key returns the identity of the modified service.
func (m Modification) Key() snapshot.ServiceKey {
	return snapshot.ServiceKey{Port: m.Port, Protocol: m.Protocol}
}

// Fields returns the changed field names in ascending order.
func (m Modification) Fields() []string {
	return slices.Sorted(maps.Keys(m.Changes))
}

// Summary counts the entries of a Result.
type Summary struct {
	Added    int
	Removed  int
	Modified int
}

// Summary returns the entry counts.
func (r Result) Summary() Summary {
	return Summary{Added: len(r.Added), Removed: len(r.Removed), Modified: len(r.Modified)}
}

// Empty reports whether nothing changed.
func (r Result) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Modified) == 0
}

// equalOpts define field equality: deep and structural, with no coercion
// between types. NaN equals NaN so a snapshot always equals itself. JSON
// numbers compare by value, so 200 and 200.0 are equal.
var equalOpts = []cmp.Option{
	cmpopts.EquateNaNs(),
	cmp.Comparer(numbersEqual),
	cmp.Exporter(func(reflect.Type) bool { return true }),
}

// numbersEqual compares two JSON number literals exactly. Literals that do
// not parse as numbers fall back to text equality.
func numbersEqual(x, y json.Number) bool {
	if x == y {
		return true
	}
	var rx, ry big.Rat
	if _, ok := rx.SetString(string(x)); !ok {
		return false
	}
	if _, ok := ry.SetString(string(y)); !ok {
		return false
	}
	return rx.Cmp(&ry) == 0
}

// Compare computes the difference from a to b. All three result lists are
// sorted ascending by port, then protocol. It fails with ErrMalformedSnapshot
// when either snapshot repeats a (port, protocol) identity.
func Compare(a, b snapshot.Snapshot) (Result, error) {
	indexA, err := index(a, "A")
	if err != nil {
		return Result{}, err
	}
	indexB, err := index(b, "B")
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Added:    []snapshot.Service{},
		Removed:  []snapshot.Service{},
		Modified: []Modification{},
	}

	for _, key := range sortedKeys(indexB) {
		if _, ok := indexA[key]; !ok {
			res.Added = append(res.Added, indexB[key])
		}
	}

	for _, key := range sortedKeys(indexA) {
		before := indexA[key]
		after, ok := indexB[key]
		if !ok {
			res.Removed = append(res.Removed, before)
			continue
		}
		changes := diffFields(before.Fields, after.Fields)
		if len(changes) == 0 {
			continue
		}
		res.Modified = append(res.Modified, Modification{
			Port:     key.Port,
			Protocol: key.Protocol,
			Changes:  changes,
		})
	}

	return res, nil
}

func index(s snapshot.Snapshot, side string) (map[snapshot.ServiceKey]snapshot.Service, error) {
	out := make(map[snapshot.ServiceKey]snapshot.Service, len(s.Services))
	for _, svc := range s.Services {
		key := svc.Key()
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("%w: snapshot %s (%s @ %s) has duplicate service %s",
				ErrMalformedSnapshot, side, s.Host, s.Timestamp, key)
		}
		out[key] = svc
	}
	return out, nil
}

func sortedKeys(idx map[snapshot.ServiceKey]snapshot.Service) []snapshot.ServiceKey {
	return slices.SortedFunc(maps.Keys(idx), snapshot.ServiceKey.Compare)
}

func diffFields(before, after map[string]any) map[string]FieldChange {
	changes := make(map[string]FieldChange)
	for name, oldValue := range before {
		newValue, ok := after[name]
		if !ok {
			changes[name] = FieldChange{Before: ValueOf(oldValue), After: Absent}
			continue
		}
		if !cmp.Equal(oldValue, newValue, equalOpts...) {
			changes[name] = FieldChange{Before: ValueOf(oldValue), After: ValueOf(newValue)}
		}
	}
	for name, newValue := range after {
		if _, ok := before[name]; !ok {
			changes[name] = FieldChange{Before: Absent, After: ValueOf(newValue)}
		}
	}
	return changes
}
