package catalog

import (
	"regexp"

	"github.com/Totto16/msys2-install-packages-pinned/internal/pkgver"
)

// Content is the parsed form of a versioned artifact file name.
type Content struct {
	Package string // full catalog package name, e.g. "mingw-w64-x86_64-gcc"
	Version pkgver.Version
	Target  string // e.g. "any"
	Ext     string // e.g. "pkg.tar.zst"
}

// artifactRe matches <pkg>-<major>.<minor>.<patch>-<rev>-<target>.<ext>.
// The package span is greedy so surplus numeric groups fold into the name;
// the target span stops at the first dot so the extension keeps the rest.
var artifactRe = regexp.MustCompile(`^(.+)-(\d+)\.(\d+)\.(\d+)-(\d+)-(.+?)\.(.+)$`)

// ParseName parses an artifact file name. Listings carry plenty of rows that
// are not versioned artifacts, so a failed match is an expected outcome, not
// an error.
func ParseName(name string) (Content, bool) {
	m := artifactRe.FindStringSubmatch(name)
	if m == nil {
		return Content{}, false
	}
	version, err := pkgver.ParseVersionFields(m[2], m[3], m[4], m[5])
	if err != nil {
		return Content{}, false
	}
	return Content{
		Package: m[1],
		Version: version,
		Target:  m[6],
		Ext:     m[7],
	}, true
}
