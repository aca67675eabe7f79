// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file at `<root>/conf/.env`.
  2. `conf/trackgate.yaml` (optional; defaults cover a local MySQL setup).
  3. Environment variables prefixed `TRACKGATE_`, where `__` maps to “.”
     (e.g., `TRACKGATE_GATE__FAIL_CLOSED → gate.fail_closed`).

After merging, the tree is unmarshalled over Defaults(), secret references
are resolved, the result is validated, enriched with the runtime root path,
and cached in an `atomic.Pointer` for lock-free reads through `Get()`.

Instrumentation
---------------
  • DEBUG: root discovery, YAML read, env overlay.
  • ERROR: YAML parse, env overlay, unmarshal, validation failures.
  • INFO : final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const (
	envPrefix   = "TRACKGATE_"
	fileName    = "trackgate.yaml"
	vaultPrefix = "vault:"
	secretTTL   = 10 * time.Minute
)

var current atomic.Pointer[Config]

/*──────────────────────────── options ──────────────────────────────────────*/

// SecretSource reads one key of a KV secret.  vault.Client satisfies it.
type SecretSource interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

type options struct {
	root    string
	secrets func(context.Context) (SecretSource, error)
}

// Option customises Load.
type Option func(*options)

// WithRoot skips root discovery.
func WithRoot(dir string) Option { return func(o *options) { o.root = dir } }

// WithSecrets supplies the Vault client lazily; it is only called when a
// `vault:` reference is present.
func WithSecrets(fn func(context.Context) (SecretSource, error)) Option {
	return func(o *options) { o.secrets = fn }
}

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves TRACKGATE_ROOT or climbs directories until
// conf/trackgate.yaml is found.  Falls back to executable heuristic for
// production layout.
func rootDir() string {
	if r := os.Getenv(envPrefix + "ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", fileName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, resolves secrets, validates, and
// caches Config.
func Load(ctx context.Context, opts ...Option) (*Config, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	root := o.root
	if root == "" {
		root = rootDir()
	}
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", fileName)
	if _, err := os.Stat(yamlPath); err == nil {
		if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
			zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
			return nil, fmt.Errorf("config: %s: %w", yamlPath, err)
		}
		zap.S().Debugw("config yaml loaded", "file", yamlPath)
	} else {
		zap.S().Debugw("config yaml absent, using defaults", "file", yamlPath)
	}

	// Env overrides: TRACKGATE_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, envPrefix), "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := resolveSecrets(ctx, &cfg, o.secrets); err != nil {
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)

	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"driver", cfg.Database.Driver,
		"cache", cfg.Cache.Enabled,
		"decoder", cfg.Gate.Decoder,
		"fail_closed", cfg.Gate.FailClosed,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

/*──────────────────────────── secrets ─────────────────────────────────────*/

// ParseSecretRef splits `vault:mount/path#key`.  ok is false when s is not
// a reference at all.
func ParseSecretRef(s string) (path, key string, ok bool, err error) {
	ref, found := strings.CutPrefix(s, vaultPrefix)
	if !found {
		return "", "", false, nil
	}
	path, key, found = strings.Cut(ref, "#")
	if !found || path == "" || key == "" || !strings.Contains(path, "/") {
		return "", "", true, fmt.Errorf("config: malformed secret reference %q (want vault:mount/path#key)", s)
	}
	return path, key, true, nil
}

func resolveSecrets(ctx context.Context, cfg *Config, newSource func(context.Context) (SecretSource, error)) error {
	fields := map[string]*string{
		"database.dsn":      &cfg.Database.DSN,
		"database.password": &cfg.Database.Password,
	}

	var src SecretSource
	for name, ptr := range fields {
		path, key, isRef, err := ParseSecretRef(*ptr)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if !isRef {
			continue
		}
		if src == nil {
			if newSource == nil {
				return fmt.Errorf("config: %s references vault but no secret source is configured", name)
			}
			if src, err = newSource(ctx); err != nil {
				return fmt.Errorf("config: secret source: %w", err)
			}
		}
		val, err := src.GetKV(ctx, path, key, secretTTL)
		if err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
		*ptr = val
		zap.S().Debugw("config secret resolved", "field", name, "path", path)
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// Get returns the configuration stored by the last successful Load, or nil
// before the first one.
func Get() *Config { return current.Load() }
