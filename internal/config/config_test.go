package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/statstream/papercrawler/internal/ingest"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.True(t, cfg.Logging.Development)
	require.Equal(t, 15*time.Second, cfg.HTTP.Timeout())
	require.Equal(t, 2*time.Second, cfg.HTTP.Delay())
	require.Equal(t, 500*time.Millisecond, cfg.HTTP.BackoffInitial())
	require.Equal(t, 10*time.Second, cfg.HTTP.BackoffMax())
	require.Equal(t, 2, cfg.Ingest.Concurrency)
	require.Equal(t, 5*time.Minute, cfg.Ingest.SourceTimeout())
	require.Equal(t, "none", cfg.Archive.Backend)
	require.Empty(t, cfg.DB.DSN, "no database by default")
	require.Len(t, cfg.Sources, 5, "built-in sources apply when none are configured")
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
logging:
  development: false
http:
  timeout_seconds: 45
  delay_seconds: 5
ingest:
  concurrency: 4
  source_timeout_seconds: 120
db:
  dsn: postgres://localhost/papers
  table: staging_papers
archive:
  backend: local
  base_dir: /tmp/pages
sources:
  - name: demo
    journal: Demo Journal
    base_url: https://example.org/articles
    page_param: page
    max_pages: 3
    order: newest_first
    strategies:
      - name: main
        item: ".entry"
        title: ".title"
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.False(t, cfg.Logging.Development)
	require.Equal(t, 45*time.Second, cfg.HTTP.Timeout())
	require.Equal(t, 4, cfg.Ingest.Concurrency)
	require.Equal(t, "staging_papers", cfg.DB.Table)
	require.Equal(t, "local", cfg.Archive.Backend)

	require.Len(t, cfg.Sources, 1, "configured sources replace the defaults")
	src := cfg.Sources[0]
	require.Equal(t, "demo", src.Name)
	require.Equal(t, "page", src.PageParam)
	require.True(t, src.Paginated())
	require.Equal(t, ingest.OrderNewestFirst, src.Order)
	require.Equal(t, ".entry", src.Strategies[0].Item)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "bad archive backend",
			yaml: "archive:\n  backend: s3\n",
		},
		{
			name: "local archive without base dir",
			yaml: "archive:\n  backend: local\n",
		},
		{
			name: "summary topic without project",
			yaml: "ingest:\n  summary_topic: runs\n",
		},
		{
			name: "source without strategies",
			yaml: "sources:\n  - name: demo\n    base_url: https://example.org\n",
		},
		{
			name: "duplicate source names",
			yaml: `sources:
  - name: demo
    base_url: https://example.org/a
    strategies: [{name: s, item: ".i", title: ".t"}]
  - name: demo
    base_url: https://example.org/b
    strategies: [{name: s, item: ".i", title: ".t"}]
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o600))
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestDefaultSourcesAreValid(t *testing.T) {
	t.Parallel()

	sources := DefaultSources()
	require.Len(t, sources, 5)

	byName := make(map[string]ingest.SourceDescriptor, len(sources))
	for _, src := range sources {
		require.NotEmpty(t, src.Name)
		require.NotEmpty(t, src.Journal)
		require.NotEmpty(t, src.BaseURL)
		require.NotEmpty(t, src.Strategies)
		byName[src.Name] = src
	}

	require.True(t, byName["jasa"].Paginated(), "JASA pages via startPage")
	require.Equal(t, "startPage", byName["jasa"].PageParam)
	require.NotEmpty(t, byName["jasa"].FeedURLs, "JASA has a feed fallback")
	require.Equal(t, ingest.OrderOldestFirst, byName["aos"].Order)
	require.False(t, byName["aos"].Paginated())
	require.NotEmpty(t, byName["jmlr"].Details.BibTeXLink)
	require.NotEmpty(t, byName["jrssb"].Headers.UserAgent, "OUP requires a browser profile")
	require.Equal(t, byName["jrssb"].Strategies, byName["biometrika"].Strategies)
}
