package cnx

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfigFile("", "", nil)
	if err != nil {
		t.Fatalf("LoadConfigFile error: %v", err)
	}
	if cfg.Backend != BackendMem {
		t.Errorf("Backend = %s, want mem", cfg.Backend)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %s, want info", cfg.Log.Level)
	}
	if cfg.File.Codec != "json" {
		t.Errorf("File.Codec = %s, want json", cfg.File.Codec)
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := writeConfigFile(t, `
backend: mongo
mongo:
  uri: mongodb://localhost:27017
  database: app
  collection: tasks
  timeout: 3s
`)

	cfg, err := LoadConfigFile(path, "", nil)
	if err != nil {
		t.Fatalf("LoadConfigFile error: %v", err)
	}
	if cfg.Backend != BackendMongo {
		t.Errorf("Backend = %s, want mongo", cfg.Backend)
	}
	if cfg.Mongo.Database != "app" {
		t.Errorf("Mongo.Database = %s, want app", cfg.Mongo.Database)
	}
	if cfg.Mongo.ConnectTimeout != 3*time.Second {
		t.Errorf("Mongo.ConnectTimeout = %v, want 3s", cfg.Mongo.ConnectTimeout)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "backend: file\nfile:\n  dir: /tmp/data\n")
	t.Setenv("CNX_BACKEND", "http")
	t.Setenv("CNX_HTTP_URL", "http://localhost:9000/tasks")

	cfg, err := LoadConfigFile(path, "CNX", nil)
	if err != nil {
		t.Fatalf("LoadConfigFile error: %v", err)
	}
	if cfg.Backend != BackendHTTP {
		t.Errorf("Backend = %s, want http", cfg.Backend)
	}
	if cfg.HTTP.BaseURL != "http://localhost:9000/tasks" {
		t.Errorf("HTTP.BaseURL = %s, want http://localhost:9000/tasks", cfg.HTTP.BaseURL)
	}
	if cfg.File.Dir != "/tmp/data" {
		t.Errorf("File.Dir = %s, want /tmp/data", cfg.File.Dir)
	}
}

func TestLoadConfigArgsOverrideEnv(t *testing.T) {
	t.Setenv("CNX_BACKEND", "file")

	cfg, err := LoadConfigFile("", "CNX", []string{"--backend=mem", "--file_dir", "/tmp/x"})
	if err != nil {
		t.Fatalf("LoadConfigFile error: %v", err)
	}
	if cfg.Backend != BackendMem {
		t.Errorf("Backend = %s, want mem", cfg.Backend)
	}
	if cfg.File.Dir != "/tmp/x" {
		t.Errorf("File.Dir = %s, want /tmp/x", cfg.File.Dir)
	}
}

func TestOpenConnectorMem(t *testing.T) {
	cfg, _ := LoadConfigFile("", "", nil)

	conn, closeFn, err := OpenConnector[echoEntity](context.Background(), cfg)
	if err != nil {
		t.Fatalf("OpenConnector error: %v", err)
	}
	defer closeFn(context.Background())

	ctx := context.Background()
	if err := conn.Save(ctx, "a", echoEntity{ID: "a", Value: "x"}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	got, found, err := conn.Fetch(ctx, "a")
	if err != nil || !found || got.Value != "x" {
		t.Errorf("Fetch = (%+v, %v, %v), want ({a x}, true, nil)", got, found, err)
	}
}

func TestOpenConnectorFile(t *testing.T) {
	cfg, _ := LoadConfigFile("", "", []string{"--backend=file", "--file_dir=" + t.TempDir(), "--file_codec=yaml"})

	conn, closeFn, err := OpenConnector[echoEntity](context.Background(), cfg)
	if err != nil {
		t.Fatalf("OpenConnector error: %v", err)
	}
	defer closeFn(context.Background())

	if _, ok := conn.(*FileConnector[echoEntity]); !ok {
		t.Errorf("connector type = %T, want *FileConnector", conn)
	}
}

func TestOpenConnectorUnknownBackend(t *testing.T) {
	cfg := &Config{Backend: "carrier-pigeon"}
	if _, _, err := OpenConnector[echoEntity](context.Background(), cfg); err == nil {
		t.Error("OpenConnector should reject an unknown backend")
	}
}

func TestOpenConnectorMongoRequiresCollection(t *testing.T) {
	cfg := &Config{Backend: BackendMongo}
	if _, _, err := OpenConnector[echoEntity](context.Background(), cfg); err == nil {
		t.Error("OpenConnector should require mongo.collection")
	}
}

func TestOpenConnectorNilConfig(t *testing.T) {
	if _, _, err := OpenConnector[echoEntity](context.Background(), nil); err == nil {
		t.Error("OpenConnector should reject a nil config")
	}
}

func TestParseArgsToMap(t *testing.T) {
	out := parseArgsToMap([]string{"--backend=mem", "--log_level", "debug", "--verbose"})
	if out["backend"] != "mem" {
		t.Errorf("backend = %v, want mem", out["backend"])
	}
	if out["log.level"] != "debug" {
		t.Errorf("log.level = %v, want debug", out["log.level"])
	}
	if out["verbose"] != "true" {
		t.Errorf("verbose = %v, want true", out["verbose"])
	}

	if got := parseArgsToMap(nil); got != nil {
		t.Errorf("parseArgsToMap(nil) = %v, want nil", got)
	}
}
