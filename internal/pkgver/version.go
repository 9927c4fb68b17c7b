package pkgver

import "fmt"

// Version is the concrete 4-field version encoded in every repository
// artifact name: major.minor.patch-rev, all fields non-negative.
type Version struct {
	Major int
	Minor int
	Patch int
	Rev   int
}

// Weight folds the four fields into a single totally-ordered value.
// Fields are weighted so that any higher field dominates all lower ones.
func (v Version) Weight() int64 {
	return int64(v.Major)*1_000_000_000 +
		int64(v.Minor)*1_000_000 +
		int64(v.Patch)*1_000 +
		int64(v.Rev)
}

// Compare returns -1, 0 or 1 as v sorts before, equal to or after other.
func (v Version) Compare(other Version) int {
	a, b := v.Weight(), other.Weight()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Equal reports whether both versions carry the same weight.
func (v Version) Equal(other Version) bool {
	return v.Weight() == other.Weight()
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d-%d", v.Major, v.Minor, v.Patch, v.Rev)
}

// field returns the i-th version field in major..rev order.
func (v Version) field(i int) int {
	switch i {
	case 0:
		return v.Major
	case 1:
		return v.Minor
	case 2:
		return v.Patch
	default:
		return v.Rev
	}
}
