// internal/config/model.go
//
// Typed configuration model for trackgate.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                             – dotenv values,
//   • `conf/trackgate.yaml`                       – primary static file,
//   • `TRACKGATE_`-prefixed environment overrides – highest precedence.
//
// Secret-bearing fields (database.dsn, database.password) may hold a
// `vault:mount/path#key` reference instead of a value.  The loader swaps
// the reference for the secret right after unmarshalling, so the cached
// Config never stores Vault URIs, only plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Defaults() seeds every field that has a sensible default; keys
//     missing from the merged tree keep the seeded value.

package config

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`

	// TrustedProxies lists CIDRs whose X-Forwarded-For is believed.
	TrustedProxies []string `koanf:"trusted_proxies" validate:"dive,cidr"`
}

//
// Database section
//

// Database holds the connection settings for the shared store.
//
// The DSN is kept in YAML so operators can tweak host, port, or flags
// without touching Vault.  When Password is set it is injected into the
// DSN at open time, keeping credentials out of flat files.
type Database struct {
	Driver   string `koanf:"driver"   validate:"required,oneof=mysql postgres"`
	DSN      string `koanf:"dsn"      validate:"required"`
	Password string `koanf:"password"`
	MaxOpen  int    `koanf:"max_open" validate:"gte=1"`
	MaxIdle  int    `koanf:"max_idle" validate:"gte=0,ltefield=MaxOpen"`
}

//
// Disable store and cache
//

// Store tunes the disable-state store.
type Store struct {
	// HardDelete removes rows on enable instead of closing them.
	HardDelete bool `koanf:"hard_delete"`
}

// Cache tunes the in-process decision cache.
type Cache struct {
	// Enabled must be false when several instances share one store.
	Enabled bool `koanf:"enabled"`
}

//
// Gate section
//

// Sqids configures obfuscated site ids.
type Sqids struct {
	Alphabet  string `koanf:"alphabet"   validate:"omitempty,min=3"`
	MinLength uint8  `koanf:"min_length"`
}

// Gate configures the tracking-request gate.
type Gate struct {
	Param             string `koanf:"param"              validate:"required"`
	Decoder           string `koanf:"decoder"            validate:"required,oneof=int sqids"`
	FailClosed        bool   `koanf:"fail_closed"`
	RejectUndecodable bool   `koanf:"reject_undecodable"`
	Sqids             Sqids  `koanf:"sqids"`
}

//
// Admin section
//

// Admin configures the administrative API.
type Admin struct {
	// Tokens maps bearer tokens to user ids.
	Tokens     map[string]int64 `koanf:"tokens"`
	Superusers []int64          `koanf:"superusers"`
}

//
// Geo, logging, paths
//

// Geo points at an optional GeoLite2-City database.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

// Log configures the zap logger.
type Log struct {
	Dir   string `koanf:"dir"`
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	Tee   bool   `koanf:"tee"`
}

// Paths is resolved at runtime, never set in YAML or env.  The loader
// discovers `Root` (repo root or TRACKGATE_ROOT override) so later code
// can build absolute file paths.
type Paths struct {
	Root string // TRACKGATE_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Store    Store    `koanf:"store"`
	Cache    Cache    `koanf:"cache"`
	Gate     Gate     `koanf:"gate"`
	Admin    Admin    `koanf:"admin"`
	Geo      Geo      `koanf:"geo"`
	Log      Log      `koanf:"log"`
	Paths    Paths    `koanf:"-"` // not loaded from config files
}

// Defaults returns the configuration used for keys the operator omits.
func Defaults() Config {
	return Config{
		HTTP:     HTTP{ListenAddr: ":8080"},
		Database: Database{Driver: "mysql", MaxOpen: 10, MaxIdle: 5},
		Cache:    Cache{Enabled: true},
		Gate:     Gate{Param: "idsite", Decoder: "int"},
		Log:      Log{Dir: "logs", Level: "info"},
	}
}
