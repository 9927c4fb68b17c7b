package downloader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestDownloader_Download_SingleArtifact(t *testing.T) {
	// Arrange
	content := []byte("artifact bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	dl := NewDownloader(2, cacheDir)
	destPath := dl.CachePath("mingw-w64-ucrt-x86_64-gcc-14.2.0-1-any.pkg.tar.zst")

	jobs := []Job{{
		URL:      server.URL + "/mingw-w64-ucrt-x86_64-gcc-14.2.0-1-any.pkg.tar.zst",
		DestPath: destPath,
	}}

	// Act
	results := dl.Download(context.Background(), jobs)

	// Assert
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Error != nil {
		t.Errorf("Download() error = %v", results[0].Error)
	}

	data, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if string(data) != string(content) {
		t.Errorf("file content = %q, want %q", data, content)
	}
}

func TestDownloader_Download_Cached(t *testing.T) {
	// Arrange: pre-create the artifact
	cacheDir := t.TempDir()
	destPath := filepath.Join(cacheDir, "mingw-w64-ucrt-x86_64-gdb-16.3.0-1-any.pkg.tar.zst")
	if err := os.WriteFile(destPath, []byte("cached"), 0644); err != nil {
		t.Fatal(err)
	}

	requestCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		w.Write([]byte("new content"))
	}))
	defer server.Close()

	dl := NewDownloader(1, cacheDir)
	jobs := []Job{{
		URL:      server.URL + "/mingw-w64-ucrt-x86_64-gdb-16.3.0-1-any.pkg.tar.zst",
		DestPath: destPath,
	}}

	// Act
	results := dl.Download(context.Background(), jobs)

	// Assert
	if results[0].Error != nil {
		t.Errorf("Download() error = %v", results[0].Error)
	}
	if requestCount != 0 {
		t.Errorf("server was called %d times, want 0 (should use cache)", requestCount)
	}

	data, _ := os.ReadFile(destPath)
	if string(data) != "cached" {
		t.Error("cached file was overwritten")
	}
}

func TestDownloader_Download_HTTPError(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	dl := NewDownloader(1, cacheDir)
	jobs := []Job{{
		URL:      server.URL + "/missing.pkg.tar.zst",
		DestPath: filepath.Join(cacheDir, "missing.pkg.tar.zst"),
	}}

	// Act
	results := dl.Download(context.Background(), jobs)

	// Assert
	if !errors.Is(results[0].Error, ErrDownloadFailed) {
		t.Errorf("Download() error = %v, want ErrDownloadFailed", results[0].Error)
	}
	if _, err := os.Stat(jobs[0].DestPath); !os.IsNotExist(err) {
		t.Error("failed download left a file behind")
	}
}

func TestDownloader_Download_Parallel(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("content for " + r.URL.Path))
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	dl := NewDownloader(3, cacheDir)

	files := []string{
		"mingw-w64-ucrt-x86_64-gcc-14.2.0-1-any.pkg.tar.zst",
		"mingw-w64-ucrt-x86_64-gcc-libs-14.2.0-1-any.pkg.tar.zst",
		"mingw-w64-ucrt-x86_64-gdb-16.3.0-1-any.pkg.tar.zst",
	}
	jobs := make([]Job, len(files))
	for i, f := range files {
		jobs[i] = Job{URL: server.URL + "/" + f, DestPath: dl.CachePath(f)}
	}

	// Act
	results := dl.Download(context.Background(), jobs)

	// Assert
	if len(results) != len(jobs) {
		t.Fatalf("got %d results, want %d", len(results), len(jobs))
	}

	for _, r := range results {
		if r.Error != nil {
			t.Errorf("Download(%s) error = %v", r.Job.URL, r.Error)
		}
	}

	for _, job := range jobs {
		if _, err := os.Stat(job.DestPath); os.IsNotExist(err) {
			t.Errorf("file %s was not created", job.DestPath)
		}
	}
}

func TestDownloader_CachePath(t *testing.T) {
	dir := filepath.Join("/home/user/.cache", "msys2-pin", "artifacts")
	dl := NewDownloader(1, dir)

	if got := dl.CacheDir(); got != dir {
		t.Errorf("CacheDir() = %q, want %q", got, dir)
	}

	got := dl.CachePath("mingw-w64-ucrt-x86_64-gcc-14.2.0-1-any.pkg.tar.zst")
	want := filepath.Join(dir, "mingw-w64-ucrt-x86_64-gcc-14.2.0-1-any.pkg.tar.zst")

	if got != want {
		t.Errorf("CachePath() = %q, want %q", got, want)
	}
}
