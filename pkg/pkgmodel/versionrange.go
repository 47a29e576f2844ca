package pkgmodel

// VersionRange is a closed-open interval [Lower, Upper) of acceptable
// versions; a nil bound is unbounded in that direction. This is a
// deliberately simplified range algebra ( leaves range syntax
// as surface detail, "YAML text <-> in-memory model surface syntax"
// is out of scope) sufficient for intersection and candidate
// filtering.
type VersionRange struct {
	Lower     *Version
	Upper     *Version
	UpperIncl bool
}

// Contains reports whether v falls within r.
func (r VersionRange) Contains(v Version) bool {
	if r.Lower != nil && v.Compare(*r.Lower) < 0 {
		return false
	}
	if r.Upper != nil {
		c := v.Compare(*r.Upper)
		if r.UpperIncl {
			if c > 0 {
				return false
			}
		} else if c >= 0 {
			return false
		}
	}
	return true
}

// Intersect returns the range satisfying both r and other, and false
// if the intersection is provably empty (both bounds present and
// inverted).
func (r VersionRange) Intersect(other VersionRange) (VersionRange, bool) {
	out := VersionRange{Lower: r.Lower, Upper: r.Upper, UpperIncl: r.UpperIncl}

	if other.Lower != nil && (out.Lower == nil || other.Lower.Compare(*out.Lower) > 0) {
		out.Lower = other.Lower
	}
	if other.Upper != nil {
		switch {
		case out.Upper == nil:
			out.Upper = other.Upper
			out.UpperIncl = other.UpperIncl
		default:
			c := other.Upper.Compare(*out.Upper)
			if c < 0 || (c == 0 && !other.UpperIncl) {
				out.Upper = other.Upper
				out.UpperIncl = other.UpperIncl
			}
		}
	}

	if out.Lower != nil && out.Upper != nil {
		c := out.Lower.Compare(*out.Upper)
		if c > 0 || (c == 0 && !out.UpperIncl) {
			return out, false
		}
	}
	return out, true
}
