package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/twitter-reader/pkg/logging"
	"github.com/Sternrassler/twitter-reader/pkg/transport"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const credentialsJSON = `{
	"app_name": "collector",
	"consumer_key": "ck",
	"consumer_secret": "cs"
}`

func TestLoad_CredentialsFile(t *testing.T) {
	path := writeFile(t, "credentials.json", credentialsJSON)
	emptyEnv := writeFile(t, "empty.env", "")

	cfg, err := Load(path, emptyEnv)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Credentials.AppName != "collector" || cfg.Credentials.ConsumerKey != "ck" || cfg.Credentials.ConsumerSecret != "cs" {
		t.Errorf("credentials = %s", cfg.Credentials)
	}
	if cfg.Credentials.UserContext() {
		t.Error("UserContext() = true without access token")
	}

	// Defaults
	if cfg.BaseURL != transport.DefaultBaseURL {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.QuotaPollInterval != 5*time.Second {
		t.Errorf("QuotaPollInterval = %s, want 5s", cfg.QuotaPollInterval)
	}
	if cfg.CacheTTL != 24*time.Hour {
		t.Errorf("CacheTTL = %s, want 24h", cfg.CacheTTL)
	}
	if cfg.RedisOptions() != nil {
		t.Error("RedisOptions() != nil without redis_addr")
	}
}

func TestLoad_YAMLWithDurations(t *testing.T) {
	path := writeFile(t, "reader.yaml", `
app_name: collector
consumer_key: ck
consumer_secret: cs
quota_poll_interval: 2s
request_timeout: 1m
cache_ttl: 6h
redis_addr: localhost:6379
redis_db: 3
log_level: DEBUG
log_pretty: true
`)
	emptyEnv := writeFile(t, "empty.env", "")

	cfg, err := Load(path, emptyEnv)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.QuotaPollInterval != 2*time.Second || cfg.RequestTimeout != time.Minute || cfg.CacheTTL != 6*time.Hour {
		t.Errorf("durations = %s %s %s", cfg.QuotaPollInterval, cfg.RequestTimeout, cfg.CacheTTL)
	}

	opts := cfg.RedisOptions()
	if opts == nil || opts.Addr != "localhost:6379" || opts.DB != 3 {
		t.Errorf("RedisOptions() = %+v", opts)
	}

	lc := cfg.Logging()
	if lc.Level != logging.LevelDebug || !lc.Pretty {
		t.Errorf("Logging() = %+v", lc)
	}

	cc := cfg.Client()
	if cc.QuotaPollInterval != 2*time.Second || cc.Timeout != time.Minute || cc.CacheTTL != 6*time.Hour {
		t.Errorf("Client() = %+v", cc)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "credentials.json", credentialsJSON)
	emptyEnv := writeFile(t, "empty.env", "")

	t.Setenv("TWITTER_READER_CONSUMER_KEY", "from-env")
	t.Setenv("TWITTER_READER_TRANSPORT_RETRIES", "5")
	t.Setenv("TWITTER_READER_DEBUG", "true")

	cfg, err := Load(path, emptyEnv)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Credentials.ConsumerKey != "from-env" {
		t.Errorf("ConsumerKey = %q, want from-env", cfg.Credentials.ConsumerKey)
	}
	if cfg.TransportRetries != 5 {
		t.Errorf("TransportRetries = %d, want 5", cfg.TransportRetries)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}
}

func TestLoad_EnvFile(t *testing.T) {
	envFile := writeFile(t, "reader.env", strings.Join([]string{
		"TWITTER_READER_APP_NAME=from-dotenv",
		"TWITTER_READER_CONSUMER_KEY=ck",
		"TWITTER_READER_CONSUMER_SECRET=cs",
		"TWITTER_READER_ACCESS_TOKEN=at",
		"TWITTER_READER_ACCESS_TOKEN_SECRET=as",
	}, "\n"))

	// godotenv sets process variables; register them for restoration.
	for _, key := range []string{"APP_NAME", "CONSUMER_KEY", "CONSUMER_SECRET", "ACCESS_TOKEN", "ACCESS_TOKEN_SECRET"} {
		t.Setenv("TWITTER_READER_"+key, "")
		os.Unsetenv("TWITTER_READER_" + key)
	}

	cfg, err := Load("", envFile)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Credentials.AppName != "from-dotenv" {
		t.Errorf("AppName = %q, want from-dotenv", cfg.Credentials.AppName)
	}
	if !cfg.Credentials.UserContext() {
		t.Error("UserContext() = false with access token and secret")
	}
}

func TestLoad_Errors(t *testing.T) {
	emptyEnv := writeFile(t, "empty.env", "")

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing consumer secret",
			content: `{"app_name":"a","consumer_key":"k"}`,
			wantErr: "consumer secret is required",
		},
		{
			name:    "half user context",
			content: `{"app_name":"a","consumer_key":"k","consumer_secret":"s","access_token":"t"}`,
			wantErr: "access token",
		},
		{
			name:    "negative retries",
			content: `{"app_name":"a","consumer_key":"k","consumer_secret":"s","transport_retries":-1}`,
			wantErr: "transport_retries",
		},
		{
			name:    "invalid JSON",
			content: `{"app_name":`,
			wantErr: "read config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "config.json", tt.content)

			_, err := Load(path, emptyEnv)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingEnvFile(t *testing.T) {
	path := writeFile(t, "credentials.json", credentialsJSON)

	if _, err := Load(path, filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Error("Load() with a missing explicit env file succeeded")
	}
}
