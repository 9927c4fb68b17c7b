package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.trai.ch/zerr"
)

// ErrInstallFailed is returned when the package manager exits non-zero.
// Its stderr is attached untouched.
var ErrInstallFailed = zerr.New("package installation failed")

// Translator converts a host file path into the form the package
// manager expects.
type Translator interface {
	Translate(ctx context.Context, path string) (string, error)
}

// IdentityTranslator passes paths through unchanged.
type IdentityTranslator struct{}

// Translate returns path as is.
func (IdentityTranslator) Translate(_ context.Context, path string) (string, error) {
	return path, nil
}

// CygpathTranslator converts paths with cygpath -u. MSYS hosts run a
// pacman that wants unix-style paths while Go reports Windows ones.
type CygpathTranslator struct {
	// Cygpath is the converter binary, "cygpath" when empty.
	Cygpath string
}

// Translate converts one path to its unix spelling.
func (c CygpathTranslator) Translate(ctx context.Context, path string) (string, error) {
	cygpath := c.Cygpath
	if cygpath == "" {
		cygpath = "cygpath"
	}

	cmd := exec.CommandContext(ctx, cygpath, "-u", path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", zerr.With(zerr.Wrap(err, fmt.Sprintf("translating path: %s", msg)), "stderr", msg)
		}
		return "", zerr.Wrap(err, "translating path")
	}
	return strings.TrimSpace(stdout.String()), nil
}

// NewTranslator picks the translator for the current host: cygpath
// inside an MSYS shell, identity everywhere else.
func NewTranslator() Translator {
	if os.Getenv("MSYSTEM") != "" {
		return CygpathTranslator{}
	}
	return IdentityTranslator{}
}

// Installer runs one package-manager transaction per resolved batch.
type Installer struct {
	pacman    string
	translate Translator
}

// Option configures an Installer.
type Option func(*Installer)

// WithPacmanPath sets a custom pacman executable path.
func WithPacmanPath(path string) Option {
	return func(i *Installer) {
		i.pacman = path
	}
}

// WithTranslator sets a custom path translator.
func WithTranslator(t Translator) Option {
	return func(i *Installer) {
		i.translate = t
	}
}

// NewInstaller creates an installer invoking pacman on the host.
func NewInstaller(opts ...Option) *Installer {
	inst := &Installer{
		pacman:    "pacman",
		translate: NewTranslator(),
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

// Install runs one transaction over a resolved batch: the downloaded
// artifact paths first, then the virtual names untouched, so the batch
// installs together atomically from pacman's point of view.
func (i *Installer) Install(ctx context.Context, paths, virtualNames []string) error {
	args := []string{"-U", "--noconfirm"}
	for _, path := range paths {
		translated, err := i.translate.Translate(ctx, path)
		if err != nil {
			return errors.Join(ErrInstallFailed, err)
		}
		args = append(args, translated)
	}
	args = append(args, virtualNames...)

	cmd := exec.CommandContext(ctx, i.pacman, args...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		joined := errors.Join(ErrInstallFailed, err)
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return zerr.With(zerr.Wrap(joined, fmt.Sprintf("pacman: %s", msg)), "stderr", msg)
		}
		return joined
	}
	return nil
}
