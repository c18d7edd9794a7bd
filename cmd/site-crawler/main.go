package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/gowgit/site-crawler/pkg/config"
	"github.com/gowgit/site-crawler/pkg/crawler"
	"github.com/gowgit/site-crawler/pkg/document"
	"github.com/gowgit/site-crawler/pkg/fetch"
	"github.com/gowgit/site-crawler/pkg/models"
	"github.com/gowgit/site-crawler/pkg/orchestrate"
	"github.com/gowgit/site-crawler/pkg/storage"
	"github.com/gowgit/site-crawler/pkg/utils"
)

const version = "0.4.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "crawl":
		runCrawl(os.Args[2:])
	case "seed":
		runSeed(os.Args[2:])
	case "fetch":
		runFetch(os.Args[2:])
	case "crawl-site":
		runCrawlSite(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "list-sites":
		runListSites(os.Args[2:])
	case "version":
		fmt.Printf("site-crawler %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `site-crawler - Web crawler that indexes whole sites and follows external links

Usage:
  site-crawler <command> [options]

Commands:
  crawl       Run the crawl loop over the URLs held in storage
  seed        Add start URLs to storage
  fetch       Crawl single URLs and print the documents
  crawl-site  Crawl one site without storage and print what was found
  validate    Validate configuration file
  list-sites  List configured sites
  version     Show version info

Run 'site-crawler <command> -h' for command-specific help.`)
}

// loadConfig loads and parses the config file
func loadConfig(path string) (*config.AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg config.AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// loadConfigOrDefaults loads path when given, otherwise starts from an empty config.
// The result is validated either way.
func loadConfigOrDefaults(path string) (*config.AppConfig, []string, error) {
	appCfg := &config.AppConfig{}
	if path != "" {
		var err error
		if appCfg, err = loadConfig(path); err != nil {
			return nil, nil, err
		}
	}
	warnings, err := appCfg.Validate()
	if err != nil {
		return nil, warnings, err
	}
	return appCfg, warnings, nil
}

// splitList splits a comma separated flag value, dropping blanks
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// runCrawl handles the crawl subcommand
func runCrawl(args []string) {
	fs := flag.NewFlagSet("crawl", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	seeds := fs.String("seed", "", "Comma-separated URLs to add to storage before crawling")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	pprofAddr := fs.String("pprof", "", "pprof address, e.g. localhost:6060 (disabled by default)")
	urlLog := fs.String("url-log", "", "Write every known URL with its crawl outcome to this file on completion")
	maxIterations := fs.Int("max-iterations", 0, "Override max_iterations from config (-1 = until no URLs remain)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: site-crawler crawl [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  site-crawler crawl -config config.yaml\n")
		fmt.Fprintf(os.Stderr, "  site-crawler crawl -seed https://example.com -max-iterations -1\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := setupLogger(*logLevel)
	appCfg := loadAndValidateConfig(*configFile, log)
	if *maxIterations != 0 {
		appCfg.MaxIterations = *maxIterations
		log.Infof("max_iterations overridden via CLI flag: %d", appCfg.MaxIterations)
	}
	validateSiteConfigs(appCfg, log)
	logAppConfig(appCfg, log)
	startPprof(*pprofAddr, log)

	os.Exit(executeCrawl(appCfg, splitList(*seeds), *urlLog, log))
}

// executeCrawl runs the crawl loop and returns the process exit code
func executeCrawl(appCfg *config.AppConfig, extraSeeds []string, urlLogPath string, log *logrus.Logger) int {
	// ===========================================================
	// == Setup Context & Signal Handling ==
	// ===========================================================
	crawlCtx, cancelCrawl := context.WithCancel(context.Background())
	defer cancelCrawl()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("PANIC in signal handler: %v", r)
			}
		}()
		sig := <-sigChan
		log.Warnf("Received signal: %v. Initiating graceful shutdown...", sig)
		cancelCrawl()

		select {
		case sig = <-sigChan:
			log.Warnf("Received second signal: %v. Forcing exit.", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn("Graceful shutdown period exceeded after signal. Forcing exit.")
			os.Exit(1)
		}
	}()
	defer signal.Stop(sigChan)

	// ===========================================================
	// == Initialize Components ==
	// ===========================================================
	log.Info("Initializing components...")
	logEntry := log.WithField("component", "crawl")

	store, err := storage.Open(crawlCtx, appCfg.Storage, logEntry)
	if err != nil {
		log.Errorf("Failed to open storage: %v", err)
		return 1
	}
	defer store.Close()

	seedURLs := append(appCfg.StartURLs(), extraSeeds...)
	if len(seedURLs) > 0 {
		added, err := orchestrate.SeedURLs(crawlCtx, store, seedURLs)
		if err != nil {
			log.Errorf("Failed to seed start URLs: %v", err)
			return 1
		}
		log.Infof("Seeded %d new URL(s) out of %d start URL(s)", added, len(seedURLs))
	}

	httpClient := fetch.NewClient(appCfg.HTTPClientSettings, logEntry)
	fetcher := fetch.NewFetcher(httpClient, appCfg, logEntry)
	orch := orchestrate.NewOrchestrator(*appCfg, store, fetcher, logEntry)

	// ===========================================================
	// == Run ==
	// ===========================================================
	results, err := orch.Run(crawlCtx)

	// ===========================================================
	// == Post-Crawl Actions ==
	// ===========================================================
	if urlLogPath != "" {
		if crawlCtx.Err() != nil {
			log.Warnf("Skipping URL log due to crawl context error: %v", crawlCtx.Err())
		} else if writeErr := storage.WriteURLLog(crawlCtx, store, urlLogPath, logEntry); writeErr != nil {
			log.Errorf("Error writing URL log: %v", writeErr)
		}
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Crawl cancelled gracefully.")
			return 0
		}
		log.Errorf("Crawl finished with error: %v", err)
		return 1
	}

	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}
	if failed > 0 {
		log.Warnf("Crawl completed with %d failed site(s).", failed)
		return 1
	}

	log.Info("Crawl completed successfully.")
	return 0
}

// runSeed handles the seed subcommand
func runSeed(args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	fromConfig := fs.Bool("from-config", false, "Also seed the start_url of every configured site")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: site-crawler seed [options] [url...]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doSeed(*configFile, fs.Args(), *fromConfig, os.Stdout, os.Stderr))
}

// doSeed stores urls (and optionally the configured start URLs) as uncrawled.
// Returns exit code (0 = success, 1 = error).
func doSeed(configPath string, urls []string, fromConfig bool, stdout, stderr io.Writer) int {
	appCfg, _, err := loadConfigOrDefaults(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if fromConfig {
		urls = append(urls, appCfg.StartURLs()...)
	}

	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store, err := storage.Open(ctx, appCfg.Storage, logrus.NewEntry(quiet))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	added, err := orchestrate.SeedURLs(ctx, store, urls)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Seeded %d new URL(s), %d already known\n", added, len(urls)-added)
	return 0
}

// fetchOptions carries the fetch subcommand flags
type fetchOptions struct {
	configPath string
	policy     string
	markdown   bool
	outDir     string
}

// runFetch handles the fetch subcommand
func runFetch(args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	var opts fetchOptions
	fs.StringVar(&opts.configPath, "config", "", "Path to config file (optional)")
	fs.StringVar(&opts.policy, "policy", "true", "Redirect policy: false, true, base, host, domain or brand")
	fs.BoolVar(&opts.markdown, "markdown", false, "Print or save documents as markdown instead of a summary")
	fs.StringVar(&opts.outDir, "out", "", "Directory to save each document to, one file per URL")
	logLevel := fs.String("loglevel", "warn", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: site-crawler fetch [options] url [url...]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := setupLogger(*logLevel)
	os.Exit(doFetch(context.Background(), opts, fs.Args(), log.WithField("component", "fetch"), os.Stdout, os.Stderr))
}

// doFetch crawls each URL in turn and prints (or saves) the resulting documents.
// Returns exit code (0 = success, 1 = error).
func doFetch(ctx context.Context, opts fetchOptions, urls []string, log *logrus.Entry, stdout, stderr io.Writer) int {
	appCfg, _, err := loadConfigOrDefaults(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	policy, err := crawler.ParseRedirectPolicy(opts.policy)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if opts.outDir != "" {
		if err := os.MkdirAll(opts.outDir, 0755); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	fetcher := fetch.NewFetcher(fetch.NewClient(appCfg.HTTPClientSettings, log), appCfg, log)
	c := crawler.NewFromConfig(*appCfg, fetcher, log)

	failed := 0
	_, err = c.CrawlURLs(ctx, models.NewURLs(urls...), policy, func(doc *document.Document) error {
		if doc.IsEmpty() {
			failed++
			reason := "no document"
			if resp := c.LastResponse(); resp != nil && resp.Err != nil {
				reason = utils.CategorizeError(resp.Err)
			}
			fmt.Fprintf(stderr, "FAIL: %s (%s)\n", doc.URL.Raw, reason)
			return nil
		}
		return emitDocument(doc, opts, stdout)
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if failed > 0 {
		return 1
	}
	return 0
}

// emitDocument prints doc, or saves it under opts.outDir
func emitDocument(doc *document.Document, opts fetchOptions, stdout io.Writer) error {
	content, ext := doc.HTML, ".html"
	if opts.markdown {
		md, err := doc.Markdown()
		if err != nil {
			return err
		}
		content, ext = md, ".md"
	}

	if opts.outDir != "" {
		path := filepath.Join(opts.outDir, utils.URLFilename(doc.URL.Raw)+ext)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("%w: write '%s': %w", utils.ErrFilesystem, path, err)
		}
		fmt.Fprintf(stdout, "OK: %s -> %s\n", doc.URL.Raw, path)
		return nil
	}

	if opts.markdown {
		fmt.Fprintln(stdout, content)
		return nil
	}
	fmt.Fprintf(stdout, "URL: %s\n", doc.URL.Raw)
	fmt.Fprintf(stdout, "  Title: %s\n", doc.Title)
	if doc.Author != "" {
		fmt.Fprintf(stdout, "  Author: %s\n", doc.Author)
	}
	if len(doc.Keywords) > 0 {
		fmt.Fprintf(stdout, "  Keywords: %s\n", strings.Join(doc.Keywords, ", "))
	}
	fmt.Fprintf(stdout, "  Size: %d bytes, crawled in %v\n", doc.Size(), doc.URL.CrawlDuration.Round(time.Millisecond))
	fmt.Fprintf(stdout, "  Links: %d internal, %d external\n", len(doc.InternalAbsoluteLinks()), len(doc.ExternalLinks()))
	return nil
}

// runCrawlSite handles the crawl-site subcommand
func runCrawlSite(args []string) {
	fs := flag.NewFlagSet("crawl-site", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to config file (optional)")
	allow := fs.String("allow", "", "Comma-separated path globs to follow, e.g. 'docs/*'")
	disallow := fs.String("disallow", "", "Comma-separated path globs to skip")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: site-crawler crawl-site [options] url\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one url is required")
		fs.Usage()
		os.Exit(1)
	}

	log := setupLogger(*logLevel)
	opts := crawler.SiteOptions{AllowPaths: splitList(*allow), DisallowPaths: splitList(*disallow)}
	os.Exit(doCrawlSite(context.Background(), *configFile, fs.Arg(0), opts, log.WithField("component", "crawl-site"), os.Stdout, os.Stderr))
}

// doCrawlSite crawls one site and lists the pages visited and the external links found.
// Returns exit code (0 = success, 1 = error).
func doCrawlSite(ctx context.Context, configPath, siteURL string, opts crawler.SiteOptions, log *logrus.Entry, stdout, stderr io.Writer) int {
	appCfg, _, err := loadConfigOrDefaults(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fetcher := fetch.NewFetcher(fetch.NewClient(appCfg.HTTPClientSettings, log), appCfg, log)
	c := crawler.NewFromConfig(*appCfg, fetcher, log)

	pages := 0
	externals, err := c.CrawlSite(ctx, models.NewURL(siteURL), opts, func(doc *document.Document) error {
		if doc.IsEmpty() {
			fmt.Fprintf(stdout, "FAIL: %s\n", doc.URL.Raw)
			return nil
		}
		pages++
		fmt.Fprintf(stdout, "PAGE: %s\n", doc.URL.Raw)
		return nil
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if externals == nil {
		fmt.Fprintf(stderr, "Error: could not crawl %s\n", siteURL)
		return 1
	}
	for _, u := range externals {
		fmt.Fprintf(stdout, "EXTERNAL: %s\n", u.Raw)
	}
	fmt.Fprintf(stdout, "\n%d page(s), %d external link(s)\n", pages, len(externals))
	return 0
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	siteKey := fs.String("site", "", "Site key to validate (optional, validates all if empty)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: site-crawler validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	exitCode := doValidate(*configFile, *siteKey, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath, siteKey string, stdout, stderr io.Writer) int {
	appCfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	// Validate app config
	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	if siteKey != "" {
		// Validate specific site
		siteCfg, ok := appCfg.Sites[siteKey]
		if !ok {
			fmt.Fprintf(stderr, "Error: site '%s' not found in config\n", siteKey)
			return 1
		}
		siteWarnings, err := siteCfg.Validate()
		if err != nil {
			fmt.Fprintf(stderr, "ERROR: [%s] %v\n", siteKey, err)
			return 1
		}
		for _, w := range siteWarnings {
			fmt.Fprintf(stdout, "WARN: [%s] %s\n", siteKey, w)
		}
		fmt.Fprintf(stdout, "OK: Site '%s' configuration is valid\n", siteKey)
	} else {
		// Validate all sites
		hasError := false
		for _, key := range sortedSiteKeys(appCfg) {
			siteCfg := appCfg.Sites[key]
			siteWarnings, err := siteCfg.Validate()
			if err != nil {
				fmt.Fprintf(stderr, "ERROR: [%s] %v\n", key, err)
				hasError = true
				continue
			}
			for _, w := range siteWarnings {
				fmt.Fprintf(stdout, "WARN: [%s] %s\n", key, w)
			}
			fmt.Fprintf(stdout, "OK: [%s]\n", key)
		}
		if hasError {
			return 1
		}
	}

	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}

// runListSites handles the list-sites subcommand
func runListSites(args []string) {
	fs := flag.NewFlagSet("list-sites", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: site-crawler list-sites [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	exitCode := doListSites(*configFile, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}

// doListSites lists sites and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doListSites(configPath string, stdout, stderr io.Writer) int {
	appCfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Sites in %s:\n\n", configPath)
	for _, key := range sortedSiteKeys(appCfg) {
		site := appCfg.Sites[key]
		fmt.Fprintf(stdout, "  %s\n", key)
		fmt.Fprintf(stdout, "    Start URL: %s\n", site.StartURL)
		if len(site.AllowPaths) > 0 {
			fmt.Fprintf(stdout, "    Allow: %s\n", strings.Join(site.AllowPaths, ", "))
		}
		if len(site.DisallowPaths) > 0 {
			fmt.Fprintf(stdout, "    Disallow: %s\n", strings.Join(site.DisallowPaths, ", "))
		}
		fmt.Fprintln(stdout)
	}
	return 0
}

// sortedSiteKeys returns the configured site keys in a stable order
func sortedSiteKeys(appCfg *config.AppConfig) []string {
	keys := make([]string, 0, len(appCfg.Sites))
	for k := range appCfg.Sites {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// setupLogger creates a configured logrus.Logger with the given log level.
func setupLogger(logLevelStr string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", logLevelStr, err)
	} else {
		log.SetLevel(level)
		log.Debugf("Setting log level to: %s", level.String())
	}

	return log
}

// loadAndValidateConfig loads the config file, validates it, and logs warnings.
func loadAndValidateConfig(configFile string, log *logrus.Logger) *config.AppConfig {
	log.Infof("Loading configuration from %s", configFile)
	appCfg, err := loadConfig(configFile)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	appWarnings, err := appCfg.Validate()
	for _, w := range appWarnings {
		log.Warn(w)
	}
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	return appCfg
}

// startPprof starts the pprof HTTP server if addr is non-empty.
func startPprof(addr string, log *logrus.Logger) {
	if addr != "" {
		go func() {
			log.Infof("Starting pprof server at http://%s/debug/pprof/", addr)
			if err := http.ListenAndServe(addr, nil); err != nil {
				log.Errorf("pprof server error: %v", err)
			}
		}()
	}
}

// validateSiteConfigs validates every configured site and logs warnings.
func validateSiteConfigs(appCfg *config.AppConfig, log *logrus.Logger) {
	for _, key := range sortedSiteKeys(appCfg) {
		siteCfg := appCfg.Sites[key]
		siteWarnings, err := siteCfg.Validate()
		if err != nil {
			log.Fatalf("Site '%s' configuration error: %v", key, err)
		}
		for _, w := range siteWarnings {
			log.Warnf("[%s] %s", key, w)
		}
		appCfg.Sites[key] = siteCfg
	}
}

// logAppConfig logs the effective global configuration
func logAppConfig(appCfg *config.AppConfig, log *logrus.Logger) {
	log.Infof("Global Config: Workers:%d, SitesPerIteration:%d, MaxIterations:%d, MaxDataSize:%d bytes",
		appCfg.NumWorkers, appCfg.SitesPerIteration, appCfg.MaxIterations, appCfg.MaxDataSize)
	log.Infof("Global Config Crawl: RedirectLimit:%d, TimeOut:%v, Encode:%t, Extensions:%v",
		config.GetEffectiveRedirectLimit(*appCfg), config.GetEffectiveTimeOut(*appCfg),
		config.GetEffectiveEncode(*appCfg), config.GetEffectiveSupportedExtensions(*appCfg))
	log.Infof("Global Config Retries: Max:%d, InitialDelay:%v, MaxDelay:%v",
		appCfg.MaxRetries, appCfg.InitialRetryDelay, appCfg.MaxRetryDelay)
	log.Infof("Global Config Storage: Driver:%s, Path:%s, Database:%s",
		appCfg.Storage.Driver, appCfg.Storage.Path, appCfg.Storage.Database)
	log.Infof("Global Config HTTP Client: MaxIdle:%d, MaxIdlePerHost:%d, IdleTimeout:%v, TLSTimeout:%v, DialerTimeout:%v, MaxBody:%d",
		appCfg.HTTPClientSettings.MaxIdleConns, appCfg.HTTPClientSettings.MaxIdleConnsPerHost,
		appCfg.HTTPClientSettings.IdleConnTimeout, appCfg.HTTPClientSettings.TLSHandshakeTimeout,
		appCfg.HTTPClientSettings.DialerTimeout, appCfg.HTTPClientSettings.MaxBodyBytes)
	log.Infof("Global Config Sites: %d configured", len(appCfg.Sites))
}
