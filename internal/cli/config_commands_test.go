package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lohnkonto/lohnkonto-client/internal/config"
)

func TestConfigShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.csv")
	cfg := config.Default()
	cfg.APIBaseURL = "http://payroll.internal:8000"
	cfg.OutputDestination = "/srv/exports"
	cfg.Overwrite = true
	if err := config.SaveConfigCSV(cfg, path); err != nil {
		t.Fatal(err)
	}

	out, err := executeCommand(t, "config", "show", "--config", path)
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}

	for _, want := range []string{
		"API Base URL:    http://payroll.internal:8000",
		"Output:    /srv/exports",
		"Overwrite: true",
		"Proxy Mode: no-proxy",
		"Configuration file: " + path,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigShow_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.csv")

	out, err := executeCommand(t, "config", "show", "--config", path, "--api-url", "svc.example:9000/")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out, "API Base URL:    http://svc.example:9000\n") {
		t.Errorf("flag not applied:\n%s", out)
	}
	if !strings.Contains(out, "file does not exist") {
		t.Errorf("missing file not reported:\n%s", out)
	}
}

func TestConfigShow_InvalidProxyMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.csv")
	if _, err := executeCommand(t, "config", "show", "--config", path, "--proxy-mode", "socks"); err == nil {
		t.Error("expected validation error for unknown proxy mode")
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.csv")

	root := NewRootCmd()
	AddCommands(root)
	answers := strings.Join([]string{
		"http://payroll.internal:8000", // service URL
		"/srv/exports",                 // output
		"y",                            // overwrite
		"",                             // notify (default no)
		"y",                            // configure proxy
		"basic",                        // proxy mode
		"proxy.corp",                   // host
		"3128",                         // port
		"alice",                        // user
	}, "\n") + "\n"

	var out strings.Builder
	root.SetIn(strings.NewReader(answers))
	root.SetOut(&out)
	root.SetArgs([]string{"config", "init", "--config", path})
	if err := root.Execute(); err != nil {
		t.Fatalf("config init failed: %v\n%s", err, out.String())
	}

	cfg, err := config.LoadConfigCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIBaseURL != "http://payroll.internal:8000" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.OutputDestination != "/srv/exports" || !cfg.Overwrite || cfg.Notify {
		t.Errorf("result settings = %q overwrite=%t notify=%t", cfg.OutputDestination, cfg.Overwrite, cfg.Notify)
	}
	if cfg.ProxyMode != "basic" || cfg.ProxyHost != "proxy.corp" || cfg.ProxyPort != 3128 || cfg.ProxyUser != "alice" {
		t.Errorf("proxy = %s %s:%d %s", cfg.ProxyMode, cfg.ProxyHost, cfg.ProxyPort, cfg.ProxyUser)
	}
	if !strings.Contains(out.String(), "LOHNKONTO_PROXY_PASSWORD") {
		t.Error("init did not explain how to provide the proxy password")
	}
}

func TestConfigInit_ExistingFileKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.csv")
	if err := os.WriteFile(path, []byte("key,value\napi_base_url,http://keep.me\n"), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := executeCommand(t, "config", "init", "--config", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "already exists") {
		t.Errorf("unexpected output:\n%s", out)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "http://keep.me") {
		t.Error("existing configuration was modified")
	}
}

func TestConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.csv")
	out, err := executeCommand(t, "config", "path", "--config", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, path+"\n") {
		t.Errorf("config path printed %q", out)
	}
}
