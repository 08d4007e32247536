package storage

import "fmt"

// Resolution is the outcome of ResolveIndexName.
type Resolution struct {
	Name   string // index to use
	Create bool   // Name does not exist yet
	Reason string // human-readable explanation, for logs
}

// SuffixedName returns the per-dimension index name "{base}-{dimension}".
func SuffixedName(base string, dimension int) string {
	return fmt.Sprintf("%s-%d", base, dimension)
}

// ResolveIndexName decides which index holds vectors of the given dimension.
//
//   - base exists with the same (or an unreported) dimension: use base
//   - base exists with a different dimension: use "{base}-{dimension}"
//   - base does not exist: use "{base}-{dimension}"
//
// The function has no side effects; existing is the set of indexes the
// backend currently reports.
func ResolveIndexName(base string, dimension int, existing []IndexDescription) Resolution {
	byName := make(map[string]IndexDescription, len(existing))
	for _, d := range existing {
		byName[d.Name] = d
	}

	suffixed := SuffixedName(base, dimension)
	res := Resolution{Name: suffixed}

	if desc, ok := byName[base]; ok {
		if desc.Dimension == 0 || desc.Dimension == dimension {
			return Resolution{Name: base, Reason: "base index matches dimension"}
		}
		res.Reason = fmt.Sprintf("base index has dimension %d, need %d", desc.Dimension, dimension)
	} else {
		res.Reason = "base index does not exist"
	}

	_, exists := byName[suffixed]
	res.Create = !exists
	return res
}
