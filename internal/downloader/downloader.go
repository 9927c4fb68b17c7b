package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"go.trai.ch/zerr"
)

// ErrDownloadFailed is returned for any artifact that could not be
// fetched and stored. The transport failure or HTTP status is attached.
var ErrDownloadFailed = zerr.New("artifact download failed")

// Job is one artifact to fetch.
type Job struct {
	URL      string
	DestPath string
}

// Result pairs a job with its outcome.
type Result struct {
	Job   Job
	Error error
}

// Downloader fetches artifacts in parallel with a fixed worker pool.
type Downloader struct {
	workers  int
	cacheDir string
	client   *http.Client
}

// NewDownloader creates a downloader storing artifacts under cacheDir.
func NewDownloader(workers int, cacheDir string) *Downloader {
	if workers < 1 {
		workers = 1
	}
	return &Downloader{
		workers:  workers,
		cacheDir: cacheDir,
		client:   &http.Client{},
	}
}

// Download fetches all jobs in parallel and returns one result per job,
// in completion order. An artifact already present on disk is not
// fetched again.
func (d *Downloader) Download(ctx context.Context, jobs []Job) []Result {
	if err := os.MkdirAll(d.cacheDir, 0755); err != nil {
		results := make([]Result, len(jobs))
		for i, job := range jobs {
			results[i] = Result{Job: job, Error: errors.Join(ErrDownloadFailed, err)}
		}
		return results
	}

	jobChan := make(chan Job, len(jobs))
	resultChan := make(chan Result, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobChan {
				err := d.downloadOne(ctx, job)
				resultChan <- Result{Job: job, Error: err}
			}
		}()
	}

	for _, job := range jobs {
		jobChan <- job
	}
	close(jobChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]Result, 0, len(jobs))
	for result := range resultChan {
		results = append(results, result)
	}

	return results
}

func (d *Downloader) downloadOne(ctx context.Context, job Job) error {
	// Already cached
	if _, err := os.Stat(job.DestPath); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(job.DestPath), 0755); err != nil {
		return errors.Join(ErrDownloadFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.URL, nil)
	if err != nil {
		return zerr.With(errors.Join(ErrDownloadFailed, err), "url", job.URL)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return zerr.With(errors.Join(ErrDownloadFailed, err), "url", job.URL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := zerr.Wrap(ErrDownloadFailed, fmt.Sprintf("GET %s returned %s", job.URL, resp.Status))
		return zerr.With(zerr.With(err, "url", job.URL), "status", resp.Status)
	}

	// Write to temp file first, then rename
	tmpPath := job.DestPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return errors.Join(ErrDownloadFailed, err)
	}

	_, err = io.Copy(out, resp.Body)
	out.Close()
	if err != nil {
		os.Remove(tmpPath)
		return zerr.With(errors.Join(ErrDownloadFailed, err), "url", job.URL)
	}

	if err := os.Rename(tmpPath, job.DestPath); err != nil {
		os.Remove(tmpPath)
		return errors.Join(ErrDownloadFailed, err)
	}

	return nil
}

// CacheDir returns the artifact cache directory.
func (d *Downloader) CacheDir() string {
	return d.cacheDir
}

// CachePath returns the local path an artifact file downloads to.
func (d *Downloader) CachePath(file string) string {
	return filepath.Join(d.cacheDir, file)
}
