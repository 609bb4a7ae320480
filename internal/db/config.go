package db

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"

	"github.com/go-sql-driver/mysql"
)

// Supported driver names. They are the names the drivers register with
// database/sql, so they can be passed straight to sqlx.Open.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Defaults applied by DefaultConfig.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 3306
)

// Config describes how the engine reaches the database.
//
// Params is an open set of driver overrides. For MySQL the well-known keys
// "charset" and "collation" replace the defaults (utf8mb4 / utf8mb4_general_ci);
// everything else is passed through as a DSN parameter. "buffered" is accepted
// and ignored: result sets are always read completely before a primitive returns.
type Config struct {
	Driver   string            `yaml:"driver"`
	User     string            `yaml:"user"`
	Password string            `yaml:"password"`
	Database string            `yaml:"database"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Params   map[string]string `yaml:"params"`

	// Autocommit leaves every statement to the server's autocommit. When false
	// (the default) a connection opens a transaction on its first statement and
	// keeps it until Commit or Rollback, the way a MySQL session with
	// autocommit=0 behaves.
	Autocommit bool `yaml:"autocommit"`

	// MaxOpenConns caps the pool. Zero means unlimited.
	MaxOpenConns int `yaml:"max_open_conns"`
}

// DefaultConfig returns a MySQL configuration pointing at 127.0.0.1:3306.
func DefaultConfig() Config {
	return Config{
		Driver: DriverMySQL,
		Host:   DefaultHost,
		Port:   DefaultPort,
	}
}

// DSN renders the data source name for the configured driver.
func (c Config) DSN() (string, error) {
	host := c.Host
	if host == "" {
		host = DefaultHost
	}
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}

	switch c.Driver {
	case DriverMySQL, "":
		cfg := mysql.NewConfig()
		cfg.User = c.User
		cfg.Passwd = c.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
		cfg.DBName = c.Database
		cfg.Collation = "utf8mb4_general_ci"
		// Report matched rows, not changed rows, so an update that rewrites a
		// row with identical values still counts as found.
		cfg.ClientFoundRows = true
		cfg.Params = map[string]string{"charset": "utf8mb4"}
		for k, v := range c.Params {
			switch k {
			case "collation":
				cfg.Collation = v
			case "buffered", "autocommit":
				// handled by the engine, not the server session
			default:
				cfg.Params[k] = v
			}
		}
		return cfg.FormatDSN(), nil

	case DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.User, c.Password),
			Host:   net.JoinHostPort(host, strconv.Itoa(port)),
			Path:   "/" + c.Database,
		}
		q := url.Values{}
		q.Set("sslmode", "disable")
		for k, v := range c.Params {
			if k == "buffered" || k == "autocommit" {
				continue
			}
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
		return u.String(), nil

	case DriverSQLite:
		if c.Database == "" {
			return "", fmt.Errorf("db: sqlite requires a database path")
		}
		q := url.Values{}
		q.Add("_pragma", "busy_timeout(5000)")
		q.Add("_pragma", "foreign_keys(1)")
		q.Add("_pragma", "journal_mode(WAL)")
		keys := make([]string, 0, len(c.Params))
		for k := range c.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if k == "buffered" || k == "autocommit" {
				continue
			}
			q.Add(k, c.Params[k])
		}
		return "file:" + c.Database + "?" + q.Encode(), nil
	}

	return "", fmt.Errorf("db: unsupported driver %q", c.Driver)
}

// autocommit reports whether statements should bypass the implicit transaction.
// The "autocommit" override in Params wins over the Autocommit field.
func (c Config) autocommit() bool {
	if v, ok := c.Params["autocommit"]; ok {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return c.Autocommit
}
