package environ

import (
	"errors"
	"strings"
	"testing"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name       string
		wantPrefix string
		wantArch   string
		wantErr    bool
	}{
		{name: "mingw64", wantPrefix: "mingw-w64-x86_64", wantArch: "x86_64"},
		{name: "MINGW64", wantPrefix: "mingw-w64-x86_64", wantArch: "x86_64"},
		{name: "ucrt64", wantPrefix: "mingw-w64-ucrt-x86_64", wantArch: "ucrt-x86_64"},
		{name: "clang64", wantPrefix: "mingw-w64-clang-x86_64", wantArch: "clang-x86_64"},
		{name: "clangarm64", wantPrefix: "mingw-w64-clang-aarch64", wantArch: "clang-aarch64"},
		{name: "mingw32", wantPrefix: "mingw-w64-i686", wantArch: "i686"},
		{name: "msys", wantErr: true},
		{name: "", wantErr: true},
	}

	for _, tt := range tests {
		name := tt.name
		if name == "" {
			name = "empty"
		}
		t.Run(name, func(t *testing.T) {
			env, err := Lookup(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownEnvironment) {
					t.Fatalf("Lookup(%q) error = %v, want ErrUnknownEnvironment", tt.name, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup(%q) error = %v", tt.name, err)
			}
			if env.Prefix != tt.wantPrefix {
				t.Errorf("prefix = %q, want %q", env.Prefix, tt.wantPrefix)
			}
			if env.Arch != tt.wantArch {
				t.Errorf("arch = %q, want %q", env.Arch, tt.wantArch)
			}
		})
	}
}

func TestLookup_ErrorNamesInput(t *testing.T) {
	_, err := Lookup("msys")
	if !errors.Is(err, ErrUnknownEnvironment) {
		t.Fatalf("Lookup() error = %v, want ErrUnknownEnvironment", err)
	}
	if !strings.Contains(err.Error(), `"msys"`) {
		t.Errorf("error %q does not name the unknown environment", err)
	}
	if !strings.Contains(err.Error(), "ucrt64") {
		t.Errorf("error %q does not list the known environments", err)
	}
}

func TestEnvironment_RepoURL(t *testing.T) {
	env, err := Lookup("ucrt64")
	if err != nil {
		t.Fatal(err)
	}

	if got := env.RepoURL(""); got != "https://repo.msys2.org/mingw/ucrt64/" {
		t.Errorf("RepoURL(\"\") = %q", got)
	}
	if got := env.RepoURL("https://mirror.example/mingw/"); got != "https://mirror.example/mingw/ucrt64/" {
		t.Errorf("RepoURL(mirror) = %q", got)
	}
}

func TestEnvironment_Prefixing(t *testing.T) {
	env, err := Lookup("mingw64")
	if err != nil {
		t.Fatal(err)
	}

	if got := env.Prefixed("gcc"); got != "mingw-w64-x86_64-gcc" {
		t.Errorf("Prefixed(gcc) = %q", got)
	}
	if !env.HasPrefix("mingw-w64-x86_64-gcc") {
		t.Error("HasPrefix(mingw-w64-x86_64-gcc) = false, want true")
	}
	if env.HasPrefix("gcc") {
		t.Error("HasPrefix(gcc) = true, want false")
	}
	// A ucrt64 name is not a mingw64 name.
	if env.HasPrefix("mingw-w64-ucrt-x86_64-gcc") {
		t.Error("HasPrefix(ucrt name) = true, want false")
	}
}
