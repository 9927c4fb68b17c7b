package environ

import (
	"fmt"
	"strings"

	"go.trai.ch/zerr"
)

// DefaultMirrorRoot is the repository root the environment catalog URL is
// derived from when no mirror override is configured.
const DefaultMirrorRoot = "https://repo.msys2.org/mingw"

// ErrUnknownEnvironment is returned for an identifier outside the fixed
// environment set. It is raised before any parsing begins.
var ErrUnknownEnvironment = zerr.New("unknown environment")

// Environment ties one build-environment identifier to its architecture
// string and package-name prefix.
type Environment struct {
	Name   string
	Arch   string
	Prefix string
}

var environments = []Environment{
	{Name: "mingw64", Arch: "x86_64", Prefix: "mingw-w64-x86_64"},
	{Name: "mingw32", Arch: "i686", Prefix: "mingw-w64-i686"},
	{Name: "ucrt64", Arch: "ucrt-x86_64", Prefix: "mingw-w64-ucrt-x86_64"},
	{Name: "clang64", Arch: "clang-x86_64", Prefix: "mingw-w64-clang-x86_64"},
	{Name: "clangarm64", Arch: "clang-aarch64", Prefix: "mingw-w64-clang-aarch64"},
}

// Lookup resolves an environment identifier, case-insensitively.
func Lookup(name string) (Environment, error) {
	lowered := strings.ToLower(name)
	for _, env := range environments {
		if env.Name == lowered {
			return env, nil
		}
	}
	known := strings.Join(Names(), ", ")
	err := zerr.Wrap(ErrUnknownEnvironment, fmt.Sprintf("looking up %q, known environments: %s", name, known))
	return Environment{}, zerr.With(zerr.With(err, "environment", name), "known", known)
}

// Names lists the known environment identifiers in declaration order.
func Names() []string {
	names := make([]string, len(environments))
	for i, env := range environments {
		names[i] = env.Name
	}
	return names
}

// RepoURL returns the catalog listing URL for the environment under the
// given mirror root. An empty root selects DefaultMirrorRoot.
func (e Environment) RepoURL(root string) string {
	if root == "" {
		root = DefaultMirrorRoot
	}
	return strings.TrimSuffix(root, "/") + "/" + e.Name + "/"
}

// HasPrefix reports whether name already carries the environment's
// package-name prefix.
func (e Environment) HasPrefix(name string) bool {
	return strings.HasPrefix(name, e.Prefix)
}

// Prefixed returns name qualified with the environment's package-name prefix.
func (e Environment) Prefixed(name string) string {
	return e.Prefix + "-" + name
}
