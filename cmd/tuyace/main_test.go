package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/tuya-ce-core/internal/activity"
	"github.com/nerrad567/tuya-ce-core/internal/auth"
	"github.com/nerrad567/tuya-ce-core/internal/gapanalysis"
	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/config"
	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/database"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

var testDocuments = map[string]string{
	"/devices.json": `{"devices": {
		"kg": {"switch": [{"key": "switch_1"}], "sensor": [{"key": "cur_power", "device_class": "power"}]}
	}}`,
	"/countries.json": `[{"name": "Germany", "country_code": "49", "endpoint": "https://openapi.tuyaeu.com"}]`,
	"/units.json":     `{"temperature": {"°C": {"unit": "°C", "aliases": ["℃"], "device_classes": ["temperature"]}}}`,
}

const testDiagnostics = `{"data":{"devices":[
	{"id":"p1","category":"kg","function":{"switch_1":{"type":"Boolean","value":{}}},
	 "status_range":{"switch_1":{"type":"Boolean","value":{}},"add_ele":{"type":"Integer","value":{"min":0,"max":50000}}},
	 "status":{"switch_1":true,"add_ele":10}}
]}}`

// catalogServer serves the three catalog documents and counts requests.
func catalogServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	hits := &atomic.Int32{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc, ok := testDocuments[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		w.Write([]byte(doc)) //nolint:errcheck // Test server
	}))
	t.Cleanup(ts.Close)
	return ts, hits
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "tuyace.db")
	cfg.Catalog.BaseURL = baseURL + "/"
	cfg.Logging.Level = "error"
	return cfg
}

func TestRootCmd_Commands(t *testing.T) {
	root := newRootCmd()

	want := []string{"serve", "analyze", "refresh-config", "token", "version"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered (err = %v)", name, err)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "tuyace dev\n") {
		t.Errorf("version output = %q", out.String())
	}
}

func TestServe_InvalidConfig(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"serve", "--config", "/nonexistent/path/config.yaml"})

	err := root.ExecuteContext(context.Background())
	if err == nil {
		t.Fatal("serve should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "/nonexistent/path/config.yaml") {
		t.Errorf("error = %v, want the config path", err)
	}
}

func TestServe_MissingJWTSecret(t *testing.T) {
	t.Setenv("TUYACE_JWT_SECRET", "")
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  path: "` + filepath.Join(t.TempDir(), "tuyace.db") + `"
api:
  enabled: true
  port: 8080
`
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	root := newRootCmd()
	root.SetArgs([]string{"serve", "--config", configPath})
	err := root.ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "security.jwt.secret") {
		t.Errorf("Execute() error = %v, want jwt secret validation error", err)
	}
}

func TestRootOptions_Load(t *testing.T) {
	t.Run("defaults when no file is named", func(t *testing.T) {
		t.Setenv(configEnv, "")
		opts := &rootOptions{configPath: ""}

		cfg, err := opts.load(true)
		if err != nil {
			t.Fatalf("load() error = %v", err)
		}
		if cfg.MQTT.Topics.Prefix != "tuyace" {
			t.Errorf("Prefix = %q", cfg.MQTT.Topics.Prefix)
		}

		if _, err := opts.load(false); err == nil {
			t.Error("load(false) should require the config file")
		}
	})

	t.Run("named file must exist", func(t *testing.T) {
		t.Setenv(configEnv, filepath.Join(t.TempDir(), "missing.yaml"))
		opts := &rootOptions{}
		if _, err := opts.load(true); err == nil {
			t.Error("load() should fail for a named missing file")
		}
	})

	t.Run("flag beats environment", func(t *testing.T) {
		t.Setenv(configEnv, "/from/env.yaml")
		opts := &rootOptions{configPath: "/from/flag.yaml"}
		if got := opts.path(); got != "/from/flag.yaml" {
			t.Errorf("path() = %q", got)
		}
	})
}

func TestRunAnalyze(t *testing.T) {
	ts, hits := catalogServer(t)
	cfg := testConfig(t, ts.URL)

	input := filepath.Join(t.TempDir(), "diagnostics.json")
	if err := os.WriteFile(input, []byte(testDiagnostics), 0o600); err != nil {
		t.Fatalf("write diagnostics: %v", err)
	}

	var stdout, stderr bytes.Buffer
	opts := &analyzeOptions{input: input, save: true}
	if err := runAnalyze(context.Background(), cfg, opts, nil, &stdout, &stderr); err != nil {
		t.Fatalf("runAnalyze() error = %v", err)
	}

	var report gapanalysis.Report
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatalf("report is not JSON: %v\n%s", err, stdout.String())
	}
	if report.DeviceCount != 1 || report.Source != "cli:"+input {
		t.Errorf("report header = %d %q", report.DeviceCount, report.Source)
	}
	if _, ok := report.Gaps["kg"]["sensor"]["add_ele"]; !ok {
		t.Errorf("add_ele gap missing: %v", report.Gaps)
	}
	if !strings.Contains(stderr.String(), "1 devices, 1 gaps") {
		t.Errorf("summary = %q", stderr.String())
	}
	if hits.Load() != 3 {
		t.Errorf("catalog fetches = %d, want 3", hits.Load())
	}

	// The second run reads the stored documents and the saved report is listed.
	stdout.Reset()
	if err := runAnalyze(context.Background(), cfg, opts, nil, &stdout, &stderr); err != nil {
		t.Fatalf("second runAnalyze() error = %v", err)
	}
	if hits.Load() != 3 {
		t.Errorf("catalog fetched again: %d requests", hits.Load())
	}

	db, err := database.Open(context.Background(), database.Config{Path: cfg.Database.Path, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()
	summaries, err := gapanalysis.NewSQLiteRepository(db.DB).List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(summaries) != 2 || summaries[0].GapCount != 1 {
		t.Errorf("saved reports = %+v", summaries)
	}

	page, err := activity.NewSQLiteRepository(db.DB).List(context.Background(), activity.Filter{Action: activity.ActionAnalysis})
	if err != nil {
		t.Fatalf("activity List() error = %v", err)
	}
	if page.Total != 2 || page.Entries[0].Source != activity.SourceCLI {
		t.Errorf("activity = %+v", page)
	}
}

func TestRunAnalyze_StdinAndOutputFile(t *testing.T) {
	ts, _ := catalogServer(t)
	cfg := testConfig(t, ts.URL)
	output := filepath.Join(t.TempDir(), "report.json")

	var stdout, stderr bytes.Buffer
	opts := &analyzeOptions{input: "-", output: output, matchComponents: true}
	if err := runAnalyze(context.Background(), cfg, opts, strings.NewReader(testDiagnostics), &stdout, &stderr); err != nil {
		t.Fatalf("runAnalyze() error = %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want the report in the file only", stdout.String())
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var report gapanalysis.Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := report.Gaps["kg"]["sensor"]["add_ele"]["matches"]; !ok {
		t.Error("--match-components did not attach matches")
	}
}

func TestRunAnalyze_Errors(t *testing.T) {
	ts, _ := catalogServer(t)

	tests := []struct {
		name    string
		input   string
		stdin   string
		baseURL string
		wantErr string
	}{
		{"missing file", "/nonexistent/diag.json", "", ts.URL, "opening diagnostics"},
		{"no devices", "-", `{"data":{}}`, ts.URL, "invalid diagnostics"},
		{"catalog unreachable", "-", testDiagnostics, ts.URL + "/missing", "loading catalog"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, tt.baseURL)
			opts := &analyzeOptions{input: tt.input}
			err := runAnalyze(context.Background(), cfg, opts, strings.NewReader(tt.stdin), &bytes.Buffer{}, &bytes.Buffer{})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("runAnalyze() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestRunRefresh(t *testing.T) {
	ts, hits := catalogServer(t)
	cfg := testConfig(t, ts.URL)

	for i := 1; i <= 2; i++ {
		var stdout bytes.Buffer
		if err := runRefresh(context.Background(), cfg, &stdout, &bytes.Buffer{}); err != nil {
			t.Fatalf("runRefresh() error = %v", err)
		}
		if got := hits.Load(); got != int32(3*i) {
			t.Errorf("run %d: fetches = %d, want %d", i, got, 3*i)
		}
		out := stdout.String()
		if !strings.Contains(out, "categories:     1") || !strings.Contains(out, "devices:        remote") {
			t.Errorf("run %d output = %q", i, out)
		}
	}
}

func TestTokenCmd(t *testing.T) {
	t.Setenv(configEnv, "")
	t.Setenv("TUYACE_JWT_SECRET", testSecret)

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"token", "--subject", "ops", "--ttl", "5m"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	claims, err := auth.ParseToken(strings.TrimSpace(out.String()), testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "ops" || claims.Role != auth.RoleAdmin {
		t.Errorf("claims = %+v", claims)
	}
	if ttl := time.Until(claims.ExpiresAt.Time); ttl > 5*time.Minute || ttl < 4*time.Minute {
		t.Errorf("token lifetime = %v, want about 5m", ttl)
	}
}

func TestTokenCmd_NoSecret(t *testing.T) {
	t.Setenv(configEnv, "")
	t.Setenv("TUYACE_JWT_SECRET", "")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"token"})
	if err := root.Execute(); err == nil {
		t.Error("token should fail without a jwt secret")
	}
}
