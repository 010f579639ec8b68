package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/resumatch/internal/cli"
	"github.com/hyperjump/resumatch/internal/config"
	"github.com/hyperjump/resumatch/internal/server"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func writeTestConfig(t *testing.T) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./data/documents.db"
  index_dir: "./data/index"
  index_type: bruteforce
embedding:
  provider: mock
  dimensions: 16
  cache_size: 100
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return dir, path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeResumes(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCLI_ingestMatchStats(t *testing.T) {
	dir, cfgPath := writeTestConfig(t)
	resumes := filepath.Join(dir, "resumes")
	writeResumes(t, resumes, map[string]string{
		"alice.txt": "Go developer with Kubernetes and PostgreSQL",
		"bob.md":    "Graphic designer, Figma, Illustrator",
		"notes.bin": "not a resume",
	})

	out, err := runCLI(t, "ingest", "--config", cfgPath, resumes)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(out, "Ingested ") != 2 {
		t.Fatalf("ingest output = %q, want two ingested files", out)
	}

	// A second run skips unchanged files.
	out, err = runCLI(t, "ingest", "--config", cfgPath, resumes)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "Ingested") {
		t.Errorf("second ingest output = %q, want nothing new", out)
	}

	out, err = runCLI(t, "match", "--config", cfgPath, "--top-k", "1", "Go developer with Kubernetes and PostgreSQL")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Top 1 matching resumes:") || !strings.Contains(out, "1. alice-") || !strings.Contains(out, "(score: 1.0000)") {
		t.Errorf("match output = %q", out)
	}

	out, err = runCLI(t, "stats", "--config", cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "2 resumes indexed") {
		t.Errorf("stats output = %q", out)
	}
}

func TestCLI_matchXLSXFromFile(t *testing.T) {
	dir, cfgPath := writeTestConfig(t)
	writeResumes(t, filepath.Join(dir, "resumes"), map[string]string{"carol.txt": "Data engineer, Spark"})
	if _, err := runCLI(t, "ingest", "--config", cfgPath, filepath.Join(dir, "resumes", "carol.txt")); err != nil {
		t.Fatal(err)
	}
	jd := filepath.Join(dir, "jd.txt")
	if err := os.WriteFile(jd, []byte("Data engineer, Spark"), 0600); err != nil {
		t.Fatal(err)
	}
	xlsx := filepath.Join(dir, "ranking.xlsx")

	out, err := runCLI(t, "match", "--config", cfgPath, "--file", jd, "--output", "xlsx", "--out", xlsx, "--preview")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Wrote 1 matches to") {
		t.Errorf("output = %q", out)
	}
	f, err := excelize.OpenFile(xlsx)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows("Matches")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || !strings.HasPrefix(rows[1][1], "carol-") || rows[1][3] != "Data engineer, Spark" {
		t.Errorf("rows = %v", rows)
	}
}

func TestCLI_matchRequiresText(t *testing.T) {
	_, cfgPath := writeTestConfig(t)
	if _, err := runCLI(t, "match", "--config", cfgPath); err == nil {
		t.Fatal("expected error without text or --file")
	}
	if _, err := runCLI(t, "match", "--config", cfgPath, "--top-k", "-1", "text"); err == nil {
		t.Fatal("expected error for negative --top-k")
	}
	if _, err := runCLI(t, "match", "--config", cfgPath, "--output", "csv", "text"); err == nil {
		t.Fatal("expected error for unknown output format")
	}
}

func TestCLI_version(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "resumatch version dev") {
		t.Errorf("version output = %q", out)
	}
}

func TestNewProvider(t *testing.T) {
	cfg := &config.Config{}
	cfg.Embedding.Provider = "mock"
	config.ApplyDefaults(cfg)
	cfg.Embedding.Dimensions = 8

	p, closeCache, err := newProvider(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer closeCache()
	defer p.Close()
	if p.Dimensions() != 8 {
		t.Errorf("Dimensions = %d", p.Dimensions())
	}
	a, err := p.Embed(context.Background(), "resume text")
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Embed(context.Background(), "resume text")
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("cached vector differs at %d", i)
		}
	}

	cfg.Embedding.Provider = "word2vec"
	if _, _, err := newProvider(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestAPIClient(t *testing.T) {
	_, cfgPath := writeTestConfig(t)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer components.Close()
	id, err := components.Indexer.Ingest(ctx, "dave", "SRE, Terraform, AWS")
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(server.NewServer(components.Engine, components.Indexer, cfg, zap.NewNop()).Handler())
	defer srv.Close()
	c := newAPIClient(srv.URL + "/")

	matches, err := c.match(ctx, "SRE, Terraform, AWS", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].DocumentID != id {
		t.Errorf("matches = %+v", matches)
	}
	if p := c.previews(ctx, matches); p[id] != "SRE, Terraform, AWS" {
		t.Errorf("previews = %v", p)
	}
	stats, err := c.stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Count != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if _, err := c.inboxList(ctx); err == nil {
		t.Error("expected error when the inbox is not enabled")
	}
}

func TestQueryText(t *testing.T) {
	if got, err := queryText("", []string{"senior", " go ", "engineer"}); err != nil || got != "senior  go  engineer" {
		t.Errorf("queryText = %q, %v", got, err)
	}
	if _, err := queryText("", []string{"  "}); err == nil {
		t.Error("expected error for blank args")
	}
	path := filepath.Join(t.TempDir(), "jd.md")
	if err := os.WriteFile(path, []byte("Platform engineer"), 0600); err != nil {
		t.Fatal(err)
	}
	if got, err := queryText(path, []string{"ignored"}); err != nil || got != "Platform engineer" {
		t.Errorf("queryText(file) = %q, %v", got, err)
	}
}

func TestOutputTarget(t *testing.T) {
	if got := outputTarget(cli.OutputXLSX, ""); got != "matches.xlsx" {
		t.Errorf("xlsx default = %q", got)
	}
	if got := outputTarget(cli.OutputText, ""); got != "" {
		t.Errorf("text default = %q", got)
	}
	if got := outputTarget(cli.OutputJSON, "out.json"); got != "out.json" {
		t.Errorf("explicit = %q", got)
	}
}

func TestLoadConfig_prefersWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug || resolved != filepath.Join(dir, "config.yaml") {
		t.Errorf("resolved = %s debug = %v", resolved, cfg.Debug)
	}
}
