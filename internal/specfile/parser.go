package specfile

import (
	"fmt"
	"strings"

	"github.com/Totto16/msys2-install-packages-pinned/internal/environ"
	"github.com/Totto16/msys2-install-packages-pinned/internal/pkgver"
	"go.trai.ch/zerr"
)

var (
	// ErrEmptyPackageToken is returned when splitting a line yields an
	// empty token, for example from doubled spaces. Empty tokens are
	// rejected instead of skipped so a malformed specification cannot
	// pass unnoticed.
	ErrEmptyPackageToken = zerr.New("empty package token")
	// ErrMalformedToken is returned for tokens that break the
	// name[=version[:settings]] shape.
	ErrMalformedToken = zerr.New("malformed package token")
	// ErrInvalidSettingsChar is returned for settings characters other
	// than 'v' (virtual) and 'n' (no prefix).
	ErrInvalidSettingsChar = zerr.New("invalid settings character")
)

// Request is one requested unit from a specification line.
type Request struct {
	// Virtual marks a meta package handed to the installer by name,
	// with no catalog lookup and no download.
	Virtual bool
	// Name is the install name for virtual requests and the user's
	// original spelling, kept for diagnostics, for normal ones.
	Name string
	// Candidates holds the catalog package names that may satisfy a
	// normal request, in priority order. Empty for virtual requests.
	Candidates []string
	Version    pkgver.RequestedVersion
}

// Parse turns the raw specification text into one request batch per
// line. Tokens within a line are separated by single spaces; every
// grammar error aborts parsing and names the offending input.
func Parse(text string, env environ.Environment) ([][]Request, error) {
	lines := normalize(text)
	batches := make([][]Request, 0, len(lines))
	for _, line := range lines {
		batch, err := parseLine(line, env)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	return batches, nil
}

// normalize trims the input, folds carriage returns into newlines and
// collapses blank lines, so CRLF files and trailing newlines parse
// cleanly while in-line stray spaces still error.
func normalize(text string) []string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "\r", "\n")
	for strings.Contains(text, "\n\n") {
		text = strings.ReplaceAll(text, "\n\n", "\n")
	}
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func parseLine(line string, env environ.Environment) ([]Request, error) {
	tokens := strings.Split(line, " ")
	batch := make([]Request, 0, len(tokens))
	for _, token := range tokens {
		if token == "" {
			return nil, zerr.With(zerr.Wrap(ErrEmptyPackageToken, fmt.Sprintf("splitting line %q", line)), "line", line)
		}
		req, err := parseToken(token, env)
		if err != nil {
			return nil, err
		}
		batch = append(batch, req)
	}
	return batch, nil
}

func parseToken(token string, env environ.Environment) (Request, error) {
	if strings.Count(token, "=") > 1 {
		return Request{}, zerr.With(zerr.Wrap(ErrMalformedToken, fmt.Sprintf("parsing token %q", token)), "token", token)
	}

	name := token
	spec := ""
	settings := ""
	if i := strings.Index(token, "="); i >= 0 {
		name = token[:i]
		rest := token[i+1:]
		if strings.Count(rest, ":") > 1 {
			return Request{}, zerr.With(zerr.Wrap(ErrMalformedToken, fmt.Sprintf("parsing token %q", token)), "token", token)
		}
		if j := strings.Index(rest, ":"); j >= 0 {
			spec = rest[:j]
			settings = rest[j+1:]
		} else {
			spec = rest
		}
	}
	if name == "" {
		return Request{}, zerr.With(zerr.Wrap(ErrMalformedToken, fmt.Sprintf("parsing token %q", token)), "token", token)
	}

	virtual := false
	prefixed := true
	for _, c := range settings {
		switch c {
		case 'v':
			virtual = true
		case 'n':
			prefixed = false
		default:
			return Request{}, zerr.With(zerr.With(zerr.Wrap(ErrInvalidSettingsChar, fmt.Sprintf("settings char %q in token %q", string(c), token)), "char", string(c)), "token", token)
		}
	}

	// The version spec is validated even when a virtual request ends up
	// discarding it.
	version, err := pkgver.ParseRequested(spec)
	if err != nil {
		return Request{}, zerr.With(zerr.Wrap(err, fmt.Sprintf("parsing token %q", token)), "token", token)
	}

	if virtual {
		return Request{Virtual: true, Name: virtualName(name, env, prefixed)}, nil
	}
	return Request{
		Name:       name,
		Candidates: candidateNames(name, env, prefixed),
		Version:    version,
	}, nil
}

// candidateNames resolves the catalog names a normal request may match.
// A name already carrying the environment prefix is taken verbatim;
// otherwise both the bare and the prefixed spelling are accepted, bare
// first, unless prefixing was disabled.
func candidateNames(name string, env environ.Environment, prefixed bool) []string {
	if env.HasPrefix(name) || !prefixed {
		return []string{name}
	}
	return []string{name, env.Prefixed(name)}
}

// virtualName resolves the single install name of a virtual request.
// Unlike normal requests there is no bare fallback.
func virtualName(name string, env environ.Environment, prefixed bool) string {
	if env.HasPrefix(name) || !prefixed {
		return name
	}
	return env.Prefixed(name)
}
