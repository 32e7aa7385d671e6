// Package presets orders saved filter and cinema presets for display and keeps the
// user's chosen order in device storage.
package presets

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
)

// Preset is implemented by internal.FilterPreset and internal.CinemaPreset.
type Preset interface {
	PresetID() int
	PresetName() string
	Favorite() bool
	Default() bool
}

// SortByOrder returns a sorted copy of presets. Default presets come first, then presets
// in the position given by orderedIDs. Presets missing from orderedIDs sink to the end,
// favorites first. Remaining ties are broken by name and then id.
func SortByOrder[P Preset](presets []P, orderedIDs []int) []P {
	pos := make(map[int]int, len(orderedIDs))
	for i, id := range SanitizeOrderIDs(orderedIDs) {
		pos[id] = i
	}
	out := slices.Clone(presets)
	slices.SortStableFunc(out, func(a, b P) int {
		if a.Default() != b.Default() {
			if a.Default() {
				return -1
			}
			return 1
		}
		pa, aOrdered := pos[a.PresetID()]
		pb, bOrdered := pos[b.PresetID()]
		switch {
		case aOrdered && bOrdered:
			if c := cmp.Compare(pa, pb); c != 0 {
				return c
			}
		case aOrdered:
			return -1
		case bOrdered:
			return 1
		default:
			if a.Favorite() != b.Favorite() {
				if a.Favorite() {
					return -1
				}
				return 1
			}
		}
		if c := CompareNames(a.PresetName(), b.PresetName()); c != 0 {
			return c
		}
		return cmp.Compare(a.PresetID(), b.PresetID())
	})
	return out
}

// SanitizeOrderIDs removes duplicate ids, keeping the first occurrence.
func SanitizeOrderIDs(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Reconcile drops ids that are no longer live and appends live ids the order has not
// seen yet, in live order. changed reports whether the result differs from order.
func Reconcile(order, liveIDs []int) (reconciled []int, changed bool) {
	kept, changed := prune(order, liveIDs)
	inOrder := make(map[int]struct{}, len(kept))
	for _, id := range kept {
		inOrder[id] = struct{}{}
	}
	for _, id := range liveIDs {
		if _, ok := inOrder[id]; ok {
			continue
		}
		inOrder[id] = struct{}{}
		kept = append(kept, id)
		changed = true
	}
	return kept, changed
}

// prune keeps the live ids of order, de-duplicated.
func prune(order, liveIDs []int) ([]int, bool) {
	live := make(map[int]struct{}, len(liveIDs))
	for _, id := range liveIDs {
		live[id] = struct{}{}
	}
	clean := SanitizeOrderIDs(order)
	changed := len(clean) != len(order)
	kept := make([]int, 0, len(clean))
	for _, id := range clean {
		if _, ok := live[id]; !ok {
			changed = true
			continue
		}
		kept = append(kept, id)
	}
	return kept, changed
}

// CompareNames compares case-insensitively, treating runs of digits as numbers so that
// "Week 2" sorts before "Week 10".
func CompareNames(a, b string) int {
	ar, br := []rune(strings.ToLower(a)), []rune(strings.ToLower(b))
	i, j := 0, 0
	for i < len(ar) && j < len(br) {
		if unicode.IsDigit(ar[i]) && unicode.IsDigit(br[j]) {
			si := i
			for i < len(ar) && unicode.IsDigit(ar[i]) {
				i++
			}
			sj := j
			for j < len(br) && unicode.IsDigit(br[j]) {
				j++
			}
			if c := compareDigits(ar[si:i], br[sj:j]); c != 0 {
				return c
			}
			continue
		}
		if c := cmp.Compare(ar[i], br[j]); c != 0 {
			return c
		}
		i++
		j++
	}
	return cmp.Compare(len(ar)-i, len(br)-j)
}

func compareDigits(a, b []rune) int {
	a = trimZeros(a)
	b = trimZeros(b)
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	return slices.Compare(a, b)
}

func trimZeros(r []rune) []rune {
	for len(r) > 1 && r[0] == '0' {
		r = r[1:]
	}
	return r
}
