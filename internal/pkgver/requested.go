package pkgver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.trai.ch/zerr"
)

var (
	// ErrMalformedVersionSpec is returned when a version specifier is neither
	// empty, the "!" marker, nor a digits(.digits(.digits(-digits)?)?)? prefix.
	ErrMalformedVersionSpec = zerr.New("malformed version spec")

	// ErrNotAnInteger is returned when a matched digit run does not fit a
	// non-negative int. The grammar makes this unreachable for sane input;
	// it guards absurd digit runs that overflow.
	ErrNotAnInteger = zerr.New("not a non-negative integer")
)

// SameAsRestSpec is the version specifier requesting the same version as the
// already-resolved normal packages earlier in the same specification line.
const SameAsRestSpec = "!"

type kind int

const (
	kindUnconstrained kind = iota
	kindFixed
	kindSameAsRest
)

// RequestedVersion is the version half of a package token: fully
// unconstrained, a fixed prefix of concrete fields, or the "same as the rest
// of the line" sentinel. Exactly one variant holds at a time.
type RequestedVersion struct {
	kind   kind
	fields []int // constrained prefix, len 1..4 when kind is kindFixed
}

// Unconstrained returns the specifier that matches every version.
func Unconstrained() RequestedVersion {
	return RequestedVersion{kind: kindUnconstrained}
}

// SameAsRest returns the cross-reference marker specifier.
func SameAsRest() RequestedVersion {
	return RequestedVersion{kind: kindSameAsRest}
}

// Pin returns a specifier fixing all four fields to v. It is how a resolved
// cross-reference marker re-enters matching.
func Pin(v Version) RequestedVersion {
	return RequestedVersion{
		kind:   kindFixed,
		fields: []int{v.Major, v.Minor, v.Patch, v.Rev},
	}
}

// IsUnconstrained reports whether the specifier matches every version.
func (r RequestedVersion) IsUnconstrained() bool {
	return r.kind == kindUnconstrained
}

// IsSameAsRest reports whether the specifier is the cross-reference marker.
func (r RequestedVersion) IsSameAsRest() bool {
	return r.kind == kindSameAsRest
}

// Matches reports whether v satisfies the specifier, field by field: absent
// fields match anything, present fields require exact equality. The
// cross-reference marker matches nothing until resolved via Pin.
func (r RequestedVersion) Matches(v Version) bool {
	switch r.kind {
	case kindUnconstrained:
		return true
	case kindSameAsRest:
		return false
	}
	for i, want := range r.fields {
		if v.field(i) != want {
			return false
		}
	}
	return true
}

// String renders the specifier the way resolution diagnostics expect:
// "<Empty version>", "<same_as_rest>", or v1[.2[.3[-4]]].
func (r RequestedVersion) String() string {
	switch r.kind {
	case kindUnconstrained:
		return "<Empty version>"
	case kindSameAsRest:
		return "<same_as_rest>"
	}

	var b strings.Builder
	b.WriteByte('v')
	for i, f := range r.fields {
		switch i {
		case 1, 2:
			b.WriteByte('.')
		case 3:
			b.WriteByte('-')
		}
		b.WriteString(strconv.Itoa(f))
	}
	return b.String()
}

// partialRe matches a version prefix: major, optionally .minor, optionally
// .patch, optionally -rev, with no trailing garbage.
var partialRe = regexp.MustCompile(`^(\d+)(?:\.(\d+)(?:\.(\d+)(?:-(\d+))?)?)?$`)

// ParseRequested parses the version specifier of a package token. The empty
// string is unconstrained and "!" is the cross-reference marker; anything
// else must be a partial version prefix.
func ParseRequested(spec string) (RequestedVersion, error) {
	if spec == "" {
		return Unconstrained(), nil
	}
	if spec == SameAsRestSpec {
		return SameAsRest(), nil
	}

	m := partialRe.FindStringSubmatch(spec)
	if m == nil {
		return RequestedVersion{}, zerr.With(zerr.Wrap(ErrMalformedVersionSpec, fmt.Sprintf("parsing version spec %q", spec)), "spec", spec)
	}

	fields := make([]int, 0, 4)
	for _, s := range m[1:] {
		if s == "" {
			break
		}
		n, err := parseField(s)
		if err != nil {
			return RequestedVersion{}, err
		}
		fields = append(fields, n)
	}

	return RequestedVersion{kind: kindFixed, fields: fields}, nil
}

// ParseVersionFields builds a Version from four digit runs, as captured from
// an artifact file name.
func ParseVersionFields(major, minor, patch, rev string) (Version, error) {
	var v Version
	for _, f := range []struct {
		s   string
		dst *int
	}{
		{major, &v.Major},
		{minor, &v.Minor},
		{patch, &v.Patch},
		{rev, &v.Rev},
	} {
		n, err := parseField(f.s)
		if err != nil {
			return Version{}, err
		}
		*f.dst = n
	}
	return v, nil
}

// parseField converts one digit run to a non-negative int.
func parseField(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, zerr.With(zerr.Wrap(ErrNotAnInteger, fmt.Sprintf("parsing version field %q", s)), "field", s)
	}
	return n, nil
}
