package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Totto16/msys2-install-packages-pinned/internal/catalog"
	"github.com/Totto16/msys2-install-packages-pinned/internal/pkgver"
	"github.com/Totto16/msys2-install-packages-pinned/internal/specfile"
	"github.com/charmbracelet/log"
	"go.trai.ch/zerr"
)

var (
	// ErrNoPriorVersion is returned when a same-as-rest request is the
	// first normal package of its line, so there is nothing to
	// reference.
	ErrNoPriorVersion = zerr.New("no prior version to reference")
	// ErrInconsistentSiblings is returned when the packages resolved
	// earlier in the line disagree on their version, which leaves a
	// same-as-rest request without a single version to pin to.
	ErrInconsistentSiblings = zerr.New("inconsistent sibling versions")
	// ErrNoSuitablePackage is returned when no catalog entry matches a
	// request's candidate names and version.
	ErrNoSuitablePackage = zerr.New("no suitable package found")
)

// Package is one resolved unit, handed to the downloader and installer.
type Package struct {
	// Virtual marks a name passed to the installer untouched, with
	// nothing to download.
	Virtual bool
	// Name is the full catalog package name, or the install name for
	// virtual packages.
	Name    string
	Version pkgver.Version
	// URL is the artifact download location, empty for virtual
	// packages.
	URL string
	// File is the suggested local file name, the decoded artifact name.
	File string
}

// Resolver picks the best catalog match for every request of a
// specification.
type Resolver struct {
	entries []catalog.Entry
	logger  *log.Logger
}

// New creates a resolver over one fetched catalog.
func New(entries []catalog.Entry, logger *log.Logger) *Resolver {
	return &Resolver{entries: entries, logger: logger}
}

// Resolve resolves every request batch in specification order. Within a
// line the already-resolved versions are threaded left to right so a
// same-as-rest request can reference its siblings; lines never see each
// other's state. The first failure aborts the whole run, a partially
// resolved set is never returned.
func (r *Resolver) Resolve(batches [][]specfile.Request) ([][]Package, error) {
	resolved := make([][]Package, 0, len(batches))
	for _, batch := range batches {
		packages, err := r.resolveLine(batch)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, packages)
	}
	return resolved, nil
}

func (r *Resolver) resolveLine(batch []specfile.Request) ([]Package, error) {
	packages := make([]Package, 0, len(batch))
	var prior []pkgver.Version
	for _, req := range batch {
		if req.Virtual {
			r.logger.Debug("Passing virtual package through", "name", req.Name)
			packages = append(packages, Package{Virtual: true, Name: req.Name})
			continue
		}
		pkg, err := r.resolveOne(req, prior)
		if err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
		prior = append(prior, pkg.Version)
	}
	return packages, nil
}

func (r *Resolver) resolveOne(req specfile.Request, prior []pkgver.Version) (Package, error) {
	version := req.Version
	if version.IsSameAsRest() {
		common, err := priorVersion(prior)
		if err != nil {
			return Package{}, zerr.With(zerr.Wrap(err, fmt.Sprintf("resolving %q", req.Name)), "package", req.Name)
		}
		r.logger.Debug("Pinned to sibling version", "package", req.Name, "version", common)
		version = pkgver.Pin(common)
	}

	var matches []catalog.Entry
	for _, entry := range r.entries {
		if !isCandidate(req.Candidates, entry.Package) {
			continue
		}
		if !version.Matches(entry.Version) {
			continue
		}
		matches = append(matches, entry)
	}
	if len(matches) == 0 {
		candidates := strings.Join(req.Candidates, ", ")
		detail := fmt.Sprintf("no entry matches %s at %s", candidates, req.Version)
		if req.Version.IsSameAsRest() {
			detail = fmt.Sprintf("%s, pinned to %s", detail, version)
		}
		err := zerr.With(zerr.Wrap(ErrNoSuitablePackage, detail), "candidates", candidates)
		err = zerr.With(err, "version", req.Version.String())
		if req.Version.IsSameAsRest() {
			err = zerr.With(err, "pinned", version.String())
		}
		return Package{}, err
	}

	// Stable sort keeps catalog order between equal weights, so a
	// duplicate publish resolves to the first entry seen.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Version.Weight() > matches[j].Version.Weight()
	})
	best := matches[0]
	r.logger.Debug("Resolved package", "package", best.Package, "version", best.Version, "candidates", len(matches))
	return Package{
		Name:    best.Package,
		Version: best.Version,
		URL:     best.URL,
		File:    best.Name,
	}, nil
}

// priorVersion returns the version all previously resolved packages of
// the line agree on.
func priorVersion(prior []pkgver.Version) (pkgver.Version, error) {
	if len(prior) == 0 {
		return pkgver.Version{}, ErrNoPriorVersion
	}
	first := prior[0]
	for _, v := range prior[1:] {
		if !v.Equal(first) {
			rendered := make([]string, len(prior))
			for i, p := range prior {
				rendered[i] = p.String()
			}
			versions := strings.Join(rendered, ", ")
			err := zerr.Wrap(ErrInconsistentSiblings, fmt.Sprintf("prior versions disagree: %s", versions))
			return pkgver.Version{}, zerr.With(err, "versions", versions)
		}
	}
	return first, nil
}

func isCandidate(candidates []string, name string) bool {
	for _, c := range candidates {
		if c == name {
			return true
		}
	}
	return false
}
