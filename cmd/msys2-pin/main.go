package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Totto16/msys2-install-packages-pinned/internal/catalog"
	"github.com/Totto16/msys2-install-packages-pinned/internal/config"
	"github.com/Totto16/msys2-install-packages-pinned/internal/downloader"
	"github.com/Totto16/msys2-install-packages-pinned/internal/environ"
	"github.com/Totto16/msys2-install-packages-pinned/internal/installer"
	"github.com/Totto16/msys2-install-packages-pinned/internal/manifest"
	"github.com/Totto16/msys2-install-packages-pinned/internal/resolver"
	"github.com/Totto16/msys2-install-packages-pinned/internal/specfile"
)

const defaultManifestPath = "msys2-pin.manifest.yaml"

var (
	environment  string
	configPath   string
	mirrorRoot   string
	cacheDir     string
	workers      int
	refresh      bool
	verbose      bool
	specFilePath string
	manifestPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "msys2-pin",
		Short: "Installs MSYS2 packages at exact pinned versions",
		Long:  "msys2-pin resolves a package specification against an MSYS2 repository listing and installs each specification line as one pacman transaction, with versions pinned down to the package revision.",
	}

	rootCmd.PersistentFlags().StringVarP(&environment, "environment", "e", "", "MSYS2 environment (default ucrt64)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")
	rootCmd.PersistentFlags().StringVar(&mirrorRoot, "mirror-root", "", "Repository mirror root (default "+environ.DefaultMirrorRoot+")")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "Cache directory for catalogs and artifacts")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", config.DefaultWorkers, "Parallel download workers")
	rootCmd.PersistentFlags().BoolVar(&refresh, "refresh", false, "Ignore the cached catalog listing")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	installCmd := &cobra.Command{
		Use:   "install [spec]",
		Short: "Resolve, download and install a package specification",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInstall,
	}
	installCmd.Flags().StringVarP(&specFilePath, "spec-file", "f", "", "Read the package specification from a file")
	installCmd.Flags().StringVar(&manifestPath, "manifest", "", "Manifest output path (default "+defaultManifestPath+")")

	resolveCmd := &cobra.Command{
		Use:   "resolve [spec]",
		Short: "Resolve a package specification and print the plan",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runResolve,
	}
	resolveCmd.Flags().StringVarP(&specFilePath, "spec-file", "f", "", "Read the package specification from a file")
	resolveCmd.Flags().StringVar(&manifestPath, "manifest", "", "Write the resolved plan as a manifest")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(resolveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// settings are the effective run options, flags merged over the optional
// config file.
type settings struct {
	env        environ.Environment
	mirrorRoot string
	cacheDir   string
	workers    int
}

func loadSettings(cmd *cobra.Command) (settings, error) {
	path := configPath
	if path == "" {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			return settings{}, fmt.Errorf("locating config file: %w", err)
		}
		path = defaultPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return settings{}, err
	}

	// A flag given on the command line wins over the config file.
	flags := cmd.Flags()
	if !flags.Changed("environment") && cfg.Environment != "" {
		environment = cfg.Environment
	}
	if !flags.Changed("mirror-root") && cfg.MirrorRoot != "" {
		mirrorRoot = cfg.MirrorRoot
	}
	if !flags.Changed("cache-dir") && cfg.CacheDir != "" {
		cacheDir = cfg.CacheDir
	}
	if !flags.Changed("workers") && cfg.Workers > 0 {
		workers = cfg.Workers
	}

	if environment == "" {
		environment = "ucrt64"
	}
	if cacheDir == "" {
		defaultCache, err := config.DefaultCacheDir()
		if err != nil {
			return settings{}, fmt.Errorf("locating cache directory: %w", err)
		}
		cacheDir = defaultCache
	}

	env, err := environ.Lookup(environment)
	if err != nil {
		return settings{}, err
	}

	return settings{env: env, mirrorRoot: mirrorRoot, cacheDir: cacheDir, workers: workers}, nil
}

func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "msys2-pin"})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func readSpecText(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if specFilePath == "" {
		return "", fmt.Errorf("no package specification given, pass it as an argument or via --spec-file")
	}
	data, err := os.ReadFile(specFilePath)
	if err != nil {
		return "", fmt.Errorf("reading spec file: %w", err)
	}
	return string(data), nil
}

// resolvePlan runs the shared front half of both commands: the catalog fetch
// overlaps the specification parse, then resolution maps every request to a
// concrete artifact.
func resolvePlan(ctx context.Context, logger *log.Logger, s settings, specText string) ([][]resolver.Package, string, error) {
	repoURL := s.env.RepoURL(s.mirrorRoot)

	var batches [][]specfile.Request
	var listing catalog.Listing

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		parsed, err := specfile.Parse(specText, s.env)
		if err != nil {
			return fmt.Errorf("parsing package specification: %w", err)
		}
		batches = parsed
		return nil
	})
	g.Go(func() error {
		logger.Info("Fetching catalog", "url", repoURL)
		doc, err := catalog.NewClient(s.cacheDir, refresh).Fetch(ctx, repoURL)
		if err != nil {
			return fmt.Errorf("fetching catalog: %w", err)
		}
		parsed, err := catalog.Parse(doc, repoURL)
		if err != nil {
			return fmt.Errorf("parsing catalog: %w", err)
		}
		listing = parsed
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, "", err
	}

	if len(batches) == 0 {
		return nil, "", fmt.Errorf("no packages requested")
	}

	for _, skipped := range listing.Skipped {
		logger.Debug("Skipping catalog entry", "name", skipped.Name, "reason", skipped.Reason)
	}
	for _, failed := range listing.Failed {
		logger.Debug("Unparsable catalog entry", "name", failed)
	}
	logger.Info("Catalog loaded", "entries", len(listing.Entries))

	resolved, err := resolver.New(listing.Entries, logger).Resolve(batches)
	if err != nil {
		return nil, "", fmt.Errorf("resolving packages: %w", err)
	}
	return resolved, repoURL, nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	specText, err := readSpecText(args)
	if err != nil {
		return err
	}

	resolved, repoURL, err := resolvePlan(cmd.Context(), logger, s, specText)
	if err != nil {
		return err
	}

	printPlan(resolved)

	if manifestPath != "" {
		if err := writeManifest(s.env.Name, repoURL, resolved, manifestPath); err != nil {
			return err
		}
		logger.Info("Wrote manifest", "path", manifestPath)
	}
	return nil
}

func runInstall(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	specText, err := readSpecText(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	resolved, repoURL, err := resolvePlan(ctx, logger, s, specText)
	if err != nil {
		return err
	}

	dl := downloader.NewDownloader(s.workers, s.cacheDir)
	logger.Debug("Caching artifacts", "dir", dl.CacheDir())

	var jobs []downloader.Job
	for _, batch := range resolved {
		for _, pkg := range batch {
			if pkg.Virtual {
				continue
			}
			jobs = append(jobs, downloader.Job{URL: pkg.URL, DestPath: dl.CachePath(pkg.File)})
		}
	}

	logger.Info("Downloading artifacts", "count", len(jobs), "workers", s.workers)
	for _, result := range dl.Download(ctx, jobs) {
		if result.Error != nil {
			return fmt.Errorf("downloading %s: %w", result.Job.URL, result.Error)
		}
	}

	// Batches install strictly in specification order, one pacman
	// transaction each.
	inst := installer.NewInstaller()
	for i, batch := range resolved {
		var paths, virtualNames []string
		for _, pkg := range batch {
			if pkg.Virtual {
				virtualNames = append(virtualNames, pkg.Name)
				continue
			}
			paths = append(paths, dl.CachePath(pkg.File))
		}
		logger.Info("Installing batch", "batch", i+1, "packages", len(batch))
		if err := inst.Install(ctx, paths, virtualNames); err != nil {
			return fmt.Errorf("installing batch %d: %w", i+1, err)
		}
	}

	if manifestPath == "" {
		manifestPath = defaultManifestPath
	}
	if err := writeManifest(s.env.Name, repoURL, resolved, manifestPath); err != nil {
		return err
	}
	logger.Info("Wrote manifest", "path", manifestPath)

	installed := 0
	for _, batch := range resolved {
		installed += len(batch)
	}
	fmt.Printf("Installed %d packages in %d batches\n", installed, len(resolved))
	return nil
}

func printPlan(resolved [][]resolver.Package) {
	for i, batch := range resolved {
		fmt.Printf("batch %d:\n", i+1)
		for _, pkg := range batch {
			if pkg.Virtual {
				fmt.Printf("  %s (virtual)\n", pkg.Name)
				continue
			}
			fmt.Printf("  %s %s\n    %s\n", pkg.Name, pkg.Version, pkg.URL)
		}
	}
}

func writeManifest(envName, repoURL string, resolved [][]resolver.Package, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating manifest file: %w", err)
	}
	defer f.Close()

	if err := manifest.New(envName, repoURL, resolved).Write(f); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}
