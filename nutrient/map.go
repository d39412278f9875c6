package nutrient

import (
	"math"
	"sort"
)

// Map holds nutrient amounts keyed by canonical key, in each key's declared unit.
// A missing key means 0.
type Map map[Key]float64

// Zero returns a map holding every canonical key with value 0.
func Zero() Map {
	m := make(Map, len(schema))
	for _, info := range schema {
		m[info.Key] = 0
	}
	return m
}

// Get returns the amount for k, 0 when absent.
func (m Map) Get(k Key) float64 {
	return m[k]
}

// Clone returns a copy of m.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Complete returns a copy of m holding every canonical key. Non-canonical keys are dropped.
func (m Map) Complete() Map {
	out := Zero()
	for k, v := range m {
		if IsCanonical(k) {
			out[k] = v
		}
	}
	return out
}

// Values converts m to plain string keys, for wire formats and prompts.
func (m Map) Values() map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

// Clamp returns v as a usable amount: negatives, NaN and infinities become 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// FromRaw resolves the keys of an oracle-produced map onto canonical keys and clamps the
// values. Names that resolve to nothing are returned in sorted order and are not part of
// the result. When several names in raw resolve to the same key, the canonical spelling
// wins, otherwise the first name in sorted order.
func FromRaw(raw map[string]float64) (Map, []string) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(Map, len(raw))
	exact := make(map[Key]bool, len(raw))
	var unknown []string
	for _, name := range names {
		k, ok := Resolve(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		isExact := name == string(k)
		if _, seen := out[k]; seen && (exact[k] || !isExact) {
			continue
		}
		out[k] = Clamp(raw[name])
		exact[k] = isExact
	}
	return out, unknown
}

// Accumulate adds raw into totals, resolving names with FromRaw. It returns the names
// that could not be resolved.
func Accumulate(totals Map, raw map[string]float64) []string {
	resolved, unknown := FromRaw(raw)
	for _, k := range sortedKeys(resolved) {
		totals[k] += resolved[k]
	}
	return unknown
}

// Sum adds maps in the order given into a complete map.
func Sum(maps ...Map) Map {
	totals := Zero()
	for _, m := range maps {
		for _, k := range sortedKeys(m) {
			if !IsCanonical(k) {
				continue
			}
			totals[k] += Clamp(m[k])
		}
	}
	return totals
}

func sortedKeys(m Map) []Key {
	keys := make([]Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
