package taskreg

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Fingerprint computes a deterministic 16-character digest of task
// parameters, used to detect logically duplicate submissions. The
// digest is a pure function of the canonicalized params: map keys are
// sorted and list-valued parameters are order-insensitive, so permuting
// a list's elements leaves the fingerprint unchanged. Fingerprints are
// internal identifiers with no stability requirement across processes.
func Fingerprint(params map[string]any) string {
	sum := md5.Sum([]byte(canonicalMap(params)))
	return hex.EncodeToString(sum[:])[:16]
}

func canonicalMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+":"+canonicalValue(m[key]))
	}
	return strings.Join(parts, "|")
}

// canonicalValue renders a parameter value deterministically.
// Collections are sorted by their rendered form; nested maps are
// canonicalized recursively.
func canonicalValue(v any) string {
	switch val := v.(type) {
	case map[string]any:
		return "{" + canonicalMap(val) + "}"
	case []any:
		rendered := make([]string, len(val))
		for i, item := range val {
			rendered[i] = canonicalValue(item)
		}
		sort.Strings(rendered)
		return "[" + strings.Join(rendered, ",") + "]"
	case []string:
		rendered := slices.Clone(val)
		sort.Strings(rendered)
		return "[" + strings.Join(rendered, ",") + "]"
	case []int:
		rendered := make([]string, len(val))
		for i, item := range val {
			rendered[i] = fmt.Sprintf("%d", item)
		}
		sort.Strings(rendered)
		return "[" + strings.Join(rendered, ",") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}
