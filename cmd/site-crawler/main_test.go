package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gowgit/site-crawler/pkg/crawler"
	"github.com/gowgit/site-crawler/pkg/storage"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0644))
	return cfgPath
}

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func testSite(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, `<html><head><title>Home</title><meta name="author" content="Jo"></head>`+
				`<body><h1>Welcome</h1><a href="/docs">Docs</a><a href="http://other.test/x">Other</a></body></html>`)
		case "/docs":
			fmt.Fprint(w, `<html><head><title>Docs</title></head><body><p>Read me</p><a href="/">Home</a></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestLoadConfig_ValidFile(t *testing.T) {
	cfgPath := writeConfig(t, `
num_workers: 4
redirect_limit: 0
storage:
  driver: sqlite
  path: ./crawl.db
sites:
  test_site:
    start_url: "http://example.com"
    allow_paths: ["docs/*"]
`)

	cfg, err := loadConfig(cfgPath)

	require.NoError(t, err)
	assert.Equal(t, 4, cfg.NumWorkers)
	require.NotNil(t, cfg.RedirectLimit)
	assert.Equal(t, 0, *cfg.RedirectLimit)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	require.Contains(t, cfg.Sites, "test_site")
	assert.Equal(t, []string{"docs/*"}, cfg.Sites["test_site"].AllowPaths)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := loadConfig("/nonexistent/path/config.yaml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	cfgPath := writeConfig(t, "{{invalid yaml")

	_, err := loadConfig(cfgPath)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadConfigOrDefaults_NoPath(t *testing.T) {
	cfg, _, err := loadConfigOrDefaults("")

	require.NoError(t, err)
	assert.Equal(t, "badger", cfg.Storage.Driver)
	require.NotNil(t, cfg.RedirectLimit)
	assert.Equal(t, 5, *cfg.RedirectLimit)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b ,"))
}

func TestDoValidate_AllSites(t *testing.T) {
	cfgPath := writeConfig(t, `
sites:
  site_a:
    start_url: "http://a.com"
  site_b:
    start_url: "http://b.com"
    disallow_paths: ["private/*"]
`)

	var stdout, stderr bytes.Buffer
	exitCode := doValidate(cfgPath, "", &stdout, &stderr)

	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stdout.String(), "OK: [site_a]")
	assert.Contains(t, stdout.String(), "OK: [site_b]")
	assert.Contains(t, stdout.String(), "Configuration valid")
}

func TestDoValidate_SpecificSite(t *testing.T) {
	cfgPath := writeConfig(t, `
sites:
  my_site:
    start_url: "http://example.com"
`)

	var stdout, stderr bytes.Buffer
	exitCode := doValidate(cfgPath, "my_site", &stdout, &stderr)

	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stdout.String(), "OK: Site 'my_site'")
}

func TestDoValidate_SiteNotFound(t *testing.T) {
	cfgPath := writeConfig(t, `
sites:
  existing:
    start_url: "http://example.com"
`)

	var stdout, stderr bytes.Buffer
	exitCode := doValidate(cfgPath, "nonexistent", &stdout, &stderr)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "not found")
}

func TestDoValidate_InvalidSite(t *testing.T) {
	cfgPath := writeConfig(t, `
sites:
  bad_site:
    start_url: "not a url"
  bad_globs:
    start_url: "http://example.com"
    allow_paths: ["docs/[a"]
`)

	var stdout, stderr bytes.Buffer
	exitCode := doValidate(cfgPath, "", &stdout, &stderr)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "ERROR: [bad_site]")
	assert.Contains(t, stderr.String(), "ERROR: [bad_globs]")
}

func TestDoValidate_UnknownStorageDriver(t *testing.T) {
	cfgPath := writeConfig(t, `
storage:
  driver: cassandra
`)

	var stdout, stderr bytes.Buffer
	exitCode := doValidate(cfgPath, "", &stdout, &stderr)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "cassandra")
}

func TestDoValidate_ConfigNotFound(t *testing.T) {
	var stdout, stderr bytes.Buffer
	exitCode := doValidate("/nonexistent.yaml", "", &stdout, &stderr)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error")
}

func TestDoListSites(t *testing.T) {
	cfgPath := writeConfig(t, `
sites:
  alpha:
    start_url: "http://alpha.com"
    allow_paths: ["docs/*", "blog/*"]
  beta:
    start_url: "http://beta.com"
    disallow_paths: ["admin/*"]
`)

	var stdout, stderr bytes.Buffer
	exitCode := doListSites(cfgPath, &stdout, &stderr)

	assert.Equal(t, 0, exitCode)
	out := stdout.String()
	assert.Less(t, strings.Index(out, "alpha"), strings.Index(out, "beta"))
	assert.Contains(t, out, "Start URL: http://alpha.com")
	assert.Contains(t, out, "Allow: docs/*, blog/*")
	assert.Contains(t, out, "Disallow: admin/*")
}

func TestDoListSites_ConfigNotFound(t *testing.T) {
	var stdout, stderr bytes.Buffer
	exitCode := doListSites("/nonexistent.yaml", &stdout, &stderr)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error")
}

func TestPrintUsageTo(t *testing.T) {
	var buf bytes.Buffer
	printUsageTo(&buf)

	out := buf.String()
	assert.Contains(t, out, "crawl")
	assert.Contains(t, out, "seed")
	assert.Contains(t, out, "fetch")
	assert.Contains(t, out, "crawl-site")
	assert.Contains(t, out, "validate")
	assert.Contains(t, out, "list-sites")
	assert.Contains(t, out, "version")
}

func TestDoSeed(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "crawl.db")
	cfgPath := writeConfig(t, `
storage:
  driver: sqlite
  path: `+dbPath+`
sites:
  home:
    start_url: "http://home.test"
`)

	var stdout, stderr bytes.Buffer
	exitCode := doSeed(cfgPath, []string{"http://a.test/", "http://home.test"}, true, &stdout, &stderr)
	require.Equal(t, 0, exitCode, stderr.String())
	assert.Contains(t, stdout.String(), "Seeded 2 new URL(s), 1 already known")

	store, err := storage.NewSQLiteStore(context.Background(), dbPath, testLogger())
	require.NoError(t, err)
	defer store.Close()
	n, err := store.URLCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDoSeed_InvalidURL(t *testing.T) {
	cfgPath := writeConfig(t, `
storage:
  driver: sqlite
  path: `+filepath.Join(t.TempDir(), "crawl.db")+`
`)

	var stdout, stderr bytes.Buffer
	exitCode := doSeed(cfgPath, []string{"mailto:someone@example.com"}, false, &stdout, &stderr)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "invalid url")
}

func TestDoFetch_Summary(t *testing.T) {
	server := testSite(t)

	var stdout, stderr bytes.Buffer
	exitCode := doFetch(context.Background(), fetchOptions{policy: "true"}, []string{server.URL}, testLogger(), &stdout, &stderr)

	require.Equal(t, 0, exitCode, stderr.String())
	out := stdout.String()
	assert.Contains(t, out, "URL: "+server.URL)
	assert.Contains(t, out, "Title: Home")
	assert.Contains(t, out, "Author: Jo")
	assert.Contains(t, out, "Links: 1 internal, 1 external")
}

func TestDoFetch_MarkdownToDir(t *testing.T) {
	server := testSite(t)
	outDir := filepath.Join(t.TempDir(), "out")

	var stdout, stderr bytes.Buffer
	opts := fetchOptions{policy: "host", markdown: true, outDir: outDir}
	exitCode := doFetch(context.Background(), opts, []string{server.URL + "/docs"}, testLogger(), &stdout, &stderr)
	require.Equal(t, 0, exitCode, stderr.String())

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	host := strings.TrimPrefix(server.URL, "http://")
	assert.Equal(t, strings.ReplaceAll(host, ":", "_")+"_docs.md", entries[0].Name())

	content, err := os.ReadFile(filepath.Join(outDir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(content), "Read me")
}

func TestDoFetch_FailedPage(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	deadURL := server.URL + "/gone"
	server.Close()

	var stdout, stderr bytes.Buffer
	exitCode := doFetch(context.Background(), fetchOptions{policy: "true"}, []string{deadURL}, testLogger(), &stdout, &stderr)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "FAIL: "+deadURL+" (Network_")
	assert.Empty(t, stdout.String())
}

func TestDoFetch_InvalidPolicy(t *testing.T) {
	var stdout, stderr bytes.Buffer
	exitCode := doFetch(context.Background(), fetchOptions{policy: "sometimes"}, []string{"http://a.test"}, testLogger(), &stdout, &stderr)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "invalid redirect policy")
}

func TestDoFetch_InvalidURL(t *testing.T) {
	var stdout, stderr bytes.Buffer
	exitCode := doFetch(context.Background(), fetchOptions{policy: "true"}, []string{"/relative"}, testLogger(), &stdout, &stderr)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "invalid url")
}

func TestDoCrawlSite(t *testing.T) {
	server := testSite(t)

	var stdout, stderr bytes.Buffer
	exitCode := doCrawlSite(context.Background(), "", server.URL, crawler.SiteOptions{}, testLogger(), &stdout, &stderr)

	require.Equal(t, 0, exitCode, stderr.String())
	out := stdout.String()
	assert.Contains(t, out, "PAGE: "+server.URL+"\n")
	assert.Contains(t, out, "PAGE: "+server.URL+"/docs\n")
	assert.Contains(t, out, "EXTERNAL: http://other.test/x")
	assert.Contains(t, out, "2 page(s), 1 external link(s)")
}

func TestDoCrawlSite_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	siteURL := server.URL
	server.Close()

	var stdout, stderr bytes.Buffer
	exitCode := doCrawlSite(context.Background(), "", siteURL, crawler.SiteOptions{}, testLogger(), &stdout, &stderr)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "could not crawl")
}
