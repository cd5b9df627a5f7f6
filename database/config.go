package database

import (
	"crypto/tls"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Driver selects the SQL backend a Manager talks to.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// SSLMode controls transport security for Postgres connections.
type SSLMode string

const (
	SSLOff     SSLMode = "off"
	SSLPrefer  SSLMode = "prefer"
	SSLRequire SSLMode = "require"
	// SSLCustom uses the tls.Config supplied through Config.WithTLSConfig.
	SSLCustom SSLMode = "custom"
)

// UnmarshalText accepts the mode names plus the boolean spellings
// "true" (require) and "false"/"disable" (off).
func (m *SSLMode) UnmarshalText(text []byte) error {
	switch v := strings.ToLower(strings.TrimSpace(string(text))); v {
	case "", "off", "false", "disable":
		*m = SSLOff
	case "true", "require":
		*m = SSLRequire
	case "prefer":
		*m = SSLPrefer
	case "custom":
		*m = SSLCustom
	default:
		return fmt.Errorf("unknown ssl mode %q", v)
	}
	return nil
}

func (m SSLMode) postgresMode() string {
	switch m {
	case SSLPrefer:
		return "prefer"
	case SSLRequire, SSLCustom:
		return "require"
	default:
		return "disable"
	}
}

const (
	DefaultPort           = 5432
	DefaultMaxConns       = 10
	DefaultConnectTimeout = 30 * time.Second
	DefaultAppName        = "norm"
)

// Config holds connection settings for a Manager. Only Database is required;
// WithDefaults fills in the rest. Env tags are relative to the caller's prefix.
type Config struct {
	Driver   Driver `env:"DRIVER" envDefault:"postgres"`
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"5432"`
	// Path is a unix socket directory used instead of Host when set.
	Path     string  `env:"SOCKET_PATH"`
	Database string  `env:"DATABASE"`
	Username string  `env:"USERNAME"`
	Password string  `env:"PASSWORD"`
	SSL      SSLMode `env:"SSL" envDefault:"off"`

	// Max is the pool size. Acquisition blocks once Max connections are in use.
	Max            int           `env:"MAX" envDefault:"10"`
	MaxLifetime    time.Duration `env:"MAX_LIFETIME"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"30s"`

	// Prepare enables automatic prepared statements. nil means true.
	Prepare            *bool  `env:"PREPARE" envDefault:"true"`
	TargetSessionAttrs string `env:"TARGET_SESSION_ATTRS"`
	// FetchTypes loads Types on every new connection. nil means true.
	FetchTypes      *bool    `env:"FETCH_TYPES" envDefault:"true"`
	Types           []string `env:"TYPES" envSeparator:","`
	ApplicationName string   `env:"APPLICATION_NAME" envDefault:"norm"`

	tlsConfig *tls.Config
}

// WithTLSConfig returns a copy of c using tlsConfig for SSLCustom.
func (c Config) WithTLSConfig(tlsConfig *tls.Config) Config {
	c.tlsConfig = tlsConfig
	return c
}

// WithDefaults returns a copy of c with zero values replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.Driver == "" {
		c.Driver = DriverPostgres
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.SSL == "" {
		c.SSL = SSLOff
	}
	if c.Max == 0 {
		c.Max = DefaultMaxConns
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Prepare == nil {
		c.Prepare = boolPtr(true)
	}
	if c.FetchTypes == nil {
		c.FetchTypes = boolPtr(true)
	}
	if c.ApplicationName == "" {
		c.ApplicationName = DefaultAppName
	}
	return c
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database) == "" {
		return invalidArgument("", "database is required")
	}
	switch c.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return invalidArgument("", "unknown driver %q", c.Driver)
	}
	switch c.SSL {
	case SSLOff, SSLPrefer, SSLRequire:
	case SSLCustom:
		if c.tlsConfig == nil {
			return invalidArgument("", "ssl mode custom requires a tls config")
		}
	default:
		return invalidArgument("", "unknown ssl mode %q", c.SSL)
	}
	if c.Driver == DriverPostgres && (c.Port < 1 || c.Port > math.MaxUint16) {
		return invalidArgument("", "port %d out of range", c.Port)
	}
	if c.Max < 1 {
		return invalidArgument("", "pool size must be positive, got %d", c.Max)
	}
	if c.MaxLifetime < 0 || c.IdleTimeout < 0 || c.ConnectTimeout < 0 {
		return invalidArgument("", "timeouts must not be negative")
	}
	return nil
}

func (c Config) prepare() bool {
	return c.Prepare == nil || *c.Prepare
}

func (c Config) fetchTypes() bool {
	return c.FetchTypes == nil || *c.FetchTypes
}

// postgresConnString renders c as a libpq keyword/value string.
func (c Config) postgresConnString() string {
	var parts []string
	add := func(key, value string) {
		if value == "" {
			return
		}
		parts = append(parts, key+"="+quoteConnValue(value))
	}

	host := c.Host
	if c.Path != "" {
		host = c.Path
	}
	add("host", host)
	add("port", strconv.Itoa(c.Port))
	add("dbname", c.Database)
	add("user", c.Username)
	add("password", c.Password)
	add("sslmode", c.SSL.postgresMode())
	if c.ConnectTimeout > 0 {
		add("connect_timeout", strconv.Itoa(int(math.Ceil(c.ConnectTimeout.Seconds()))))
	}
	add("target_session_attrs", c.TargetSessionAttrs)
	add("application_name", c.ApplicationName)

	return strings.Join(parts, " ")
}

func quoteConnValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// sqliteDSN renders the file path with the pragmas the pool relies on.
func (c Config) sqliteDSN() string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.ConnectTimeout.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	return c.Database + "?" + q.Encode()
}

func boolPtr(b bool) *bool {
	return &b
}
