package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeScript drops an executable shell script to stand in for pacman
// or cygpath.
func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func recordedArgs(t *testing.T, argsFile string) []string {
	t.Helper()
	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("reading recorded args: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestInstall_ArgumentOrder(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	pacman := writeScript(t, "pacman", fmt.Sprintf("printf '%%s\\n' \"$@\" > %q\n", argsFile))

	inst := NewInstaller(WithPacmanPath(pacman), WithTranslator(IdentityTranslator{}))
	paths := []string{"/tmp/gcc-14.2.0-1-any.pkg.tar.zst", "/tmp/gcc-libs-14.2.0-1-any.pkg.tar.zst"}
	virtual := []string{"mingw-w64-ucrt-x86_64-base"}

	if err := inst.Install(context.Background(), paths, virtual); err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	want := []string{
		"-U", "--noconfirm",
		"/tmp/gcc-14.2.0-1-any.pkg.tar.zst",
		"/tmp/gcc-libs-14.2.0-1-any.pkg.tar.zst",
		"mingw-w64-ucrt-x86_64-base",
	}
	got := recordedArgs(t, argsFile)
	if len(got) != len(want) {
		t.Fatalf("args = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestInstall_VirtualOnlyBatch(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	pacman := writeScript(t, "pacman", fmt.Sprintf("printf '%%s\\n' \"$@\" > %q\n", argsFile))

	inst := NewInstaller(WithPacmanPath(pacman), WithTranslator(IdentityTranslator{}))
	if err := inst.Install(context.Background(), nil, []string{"mingw-w64-ucrt-x86_64-base"}); err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	got := recordedArgs(t, argsFile)
	want := []string{"-U", "--noconfirm", "mingw-w64-ucrt-x86_64-base"}
	if len(got) != len(want) || got[2] != want[2] {
		t.Errorf("args = %v, want %v", got, want)
	}
}

func TestInstall_NonZeroExit(t *testing.T) {
	pacman := writeScript(t, "pacman", "echo 'error: target not found' >&2\nexit 1\n")

	inst := NewInstaller(WithPacmanPath(pacman), WithTranslator(IdentityTranslator{}))
	err := inst.Install(context.Background(), []string{"/tmp/gone.pkg.tar.zst"}, nil)
	if !errors.Is(err, ErrInstallFailed) {
		t.Errorf("Install() error = %v, want ErrInstallFailed", err)
	}
	if !strings.Contains(err.Error(), "target not found") {
		t.Errorf("error %q does not surface pacman's stderr", err)
	}
}

type prefixTranslator struct{}

func (prefixTranslator) Translate(_ context.Context, path string) (string, error) {
	return "/translated" + path, nil
}

func TestInstall_TranslatesPaths(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	pacman := writeScript(t, "pacman", fmt.Sprintf("printf '%%s\\n' \"$@\" > %q\n", argsFile))

	inst := NewInstaller(WithPacmanPath(pacman), WithTranslator(prefixTranslator{}))
	if err := inst.Install(context.Background(), []string{"/tmp/a.pkg.tar.zst"}, nil); err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	got := recordedArgs(t, argsFile)
	if got[2] != "/translated/tmp/a.pkg.tar.zst" {
		t.Errorf("args = %v, want the translated path", got)
	}
}

type failingTranslator struct{}

func (failingTranslator) Translate(_ context.Context, _ string) (string, error) {
	return "", errors.New("no such converter")
}

func TestInstall_TranslatorFailureIsFatal(t *testing.T) {
	pacman := writeScript(t, "pacman", "exit 0\n")

	inst := NewInstaller(WithPacmanPath(pacman), WithTranslator(failingTranslator{}))
	err := inst.Install(context.Background(), []string{"/tmp/a.pkg.tar.zst"}, nil)
	if !errors.Is(err, ErrInstallFailed) {
		t.Errorf("Install() error = %v, want ErrInstallFailed", err)
	}
}

func TestCygpathTranslator(t *testing.T) {
	cygpath := writeScript(t, "cygpath", "echo \"/unix$2\"\n")

	tr := CygpathTranslator{Cygpath: cygpath}
	got, err := tr.Translate(context.Background(), "/tmp/a.pkg.tar.zst")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got != "/unix/tmp/a.pkg.tar.zst" {
		t.Errorf("Translate() = %q", got)
	}
}

func TestIdentityTranslator(t *testing.T) {
	got, err := IdentityTranslator{}.Translate(context.Background(), `C:\msys64\tmp\a.pkg.tar.zst`)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got != `C:\msys64\tmp\a.pkg.tar.zst` {
		t.Errorf("Translate() = %q", got)
	}
}

func TestNewTranslator(t *testing.T) {
	t.Setenv("MSYSTEM", "UCRT64")
	if _, ok := NewTranslator().(CygpathTranslator); !ok {
		t.Error("MSYS shell should pick the cygpath translator")
	}

	t.Setenv("MSYSTEM", "")
	if _, ok := NewTranslator().(IdentityTranslator); !ok {
		t.Error("plain host should pick the identity translator")
	}
}
