package rumproxy

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetConfig(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "rum-proxy.yaml")
	content := `
origin: https://main--helix-website--adobe.aem.live
publicUrl: https://www.aem.live
generationBudget: 90s
render:
  strategy: mobile
  timeout: 1m
redis:
  addr: redis:6379
  keyPrefix: rum-proxy/
rules:
  - prefix: /tools/rum/
    default: public, max-age=300
`
	if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := GetConfig(filename)
	if err != nil {
		t.Fatal(err)
	}
	if config.Origin != "https://main--helix-website--adobe.aem.live" {
		t.Fatalf("Origin is %s", config.Origin)
	}
	if config.GenerationBudget != 90*time.Second {
		t.Fatalf("Budget is %v", config.GenerationBudget)
	}
	if config.Render.Strategy != "mobile" || config.Render.Timeout != time.Minute {
		t.Fatalf("Render config is %+v", config.Render)
	}
	if len(config.Rules) != 1 || config.Rules[0].Default != "public, max-age=300" {
		t.Fatalf("Rules are %+v", config.Rules)
	}
	if config.Redis.Addr != "redis:6379" || config.Redis.KeyPrefix != "rum-proxy/" {
		t.Fatalf("Redis config is %+v", config.Redis)
	}
}

func TestGetConfigEmptyFilename(t *testing.T) {
	config, err := GetConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if config.Origin != "" || config.GenerationBudget != 0 {
		t.Fatalf("Config is %+v", config)
	}
}

func TestGetConfigMissingFile(t *testing.T) {
	if _, err := GetConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("PSI_KEY", "secret")
	t.Setenv("RUM_PROXY_REDIS_ADDR", "redis:6379")

	config, err := GetEnv()
	if err != nil {
		t.Fatal(err)
	}
	if config.PSIKey != "secret" || config.RedisAddr != "redis:6379" {
		t.Fatalf("Env config is %+v", config)
	}
}

func TestGetEnvRequiresKey(t *testing.T) {
	t.Setenv("PSI_KEY", "")
	os.Unsetenv("PSI_KEY")

	if _, err := GetEnv(); err == nil {
		t.Fatal("Expected error without PSI_KEY")
	}
}
