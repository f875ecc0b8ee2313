package condition

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// parsedConstraint is one `op version` pair from a generatorVersion leaf,
// e.g. ">=8.0.0" or "~>1.2".
type parsedConstraint struct {
	op      string
	version string
}

var constraintOps = []string{">=", "<=", "~>", ">", "<", "^"}

// parseConstraint splits a constraint string into its operator and version,
// per the syntax in spec.md §6:
// ^\s*(>=|>|<=|<|~>|\^)\s*\d+\.\d+(\.\d+)?([-+][\w.-]+)*$
func parseConstraint(raw string) (parsedConstraint, bool) {
	s := strings.TrimSpace(raw)
	for _, op := range constraintOps {
		if strings.HasPrefix(s, op) {
			return parsedConstraint{op: op, version: strings.TrimSpace(s[len(op):])}, true
		}
	}
	return parsedConstraint{}, false
}

// satisfies evaluates `detected <op> bound` per spec.md §4.4. When the
// detected version parses as semver, the whole constraint is handed to
// Masterminds/semver/v3's own constraint parser: `^`/`~>` are compatible-
// range operators, not plain "greater-or-equal" (^6.0.0 excludes 7.0.0,
// ~>6.2.0 excludes 6.3.0), and NewConstraint already implements that
// range semantics correctly, so it is used directly rather than
// re-deriving it from a bare version comparison. Only when the detected
// version isn't valid semver does this fall back to the documented
// segment-wise tuple comparison (numeric-if-parseable, else
// lexicographic — spec.md §9 open question), where `^`/`~>` degrade to a
// floor comparison for lack of a better-defined upper bound.
func satisfies(detected string, c parsedConstraint) bool {
	if detSem, err := semver.NewVersion(detected); err == nil {
		if cons, err := semver.NewConstraint(c.op + c.version); err == nil {
			return cons.Check(detSem)
		}
	}

	cmp := compareTuples(detected, c.version)
	return compareResult(cmp, c.op)
}

func compareResult(cmp int, op string) bool {
	switch op {
	case ">=", "^":
		return cmp >= 0
	case ">":
		return cmp > 0
	case "<=":
		return cmp <= 0
	case "<":
		return cmp < 0
	case "~>":
		return cmp >= 0
	default:
		return false
	}
}

// compareTuples implements the fallback comparison documented in spec.md
// §9: a version is a tuple of dot/dash-separated segments; segments compare
// numerically when both parse as integers, lexicographically otherwise.
func compareTuples(a, b string) int {
	as := splitSegments(a)
	bs := splitSegments(b)
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		var av, bv string
		if i < len(as) {
			av = as[i]
		}
		if i < len(bs) {
			bv = bs[i]
		}
		if av == bv {
			continue
		}
		ai, aerr := strconv.Atoi(av)
		bi, berr := strconv.Atoi(bv)
		if aerr == nil && berr == nil {
			if ai != bi {
				if ai < bi {
					return -1
				}
				return 1
			}
			continue
		}
		if av < bv {
			return -1
		}
		return 1
	}
	return 0
}

func splitSegments(v string) []string {
	v = strings.Map(func(r rune) rune {
		if r == '-' {
			return '.'
		}
		return r
	}, v)
	return strings.Split(v, ".")
}
