package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Backend identifies which store a DatabaseConfig points at
type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Environment variable names
const (
	EnvDBFilePath = "DB_FILE_PATH"
	EnvDBUser     = "DB_USER"
	EnvDBPassword = "DB_PASSWORD"
	EnvDBHost     = "DB_HOST"
	EnvDBName     = "DB_NAME"
	EnvDBPort     = "DB_PORT"
	EnvDBSSLMode  = "DB_SSLMODE"
)

const (
	defaultPostgresPort = 5432
	defaultSSLMode      = "disable"
)

var postgresVars = []string{EnvDBUser, EnvDBPassword, EnvDBHost, EnvDBName}

// ErrNoBackend is returned when neither backend's variables are present
var ErrNoBackend = errors.New("no database configured: set " + EnvDBFilePath + " or " + strings.Join(postgresVars, "/"))

// ErrConflictingBackends is returned when both backends are configured at once
var ErrConflictingBackends = errors.New(EnvDBFilePath + " cannot be combined with " + strings.Join(postgresVars, "/"))

// MissingVariablesError lists required variables absent from the environment
type MissingVariablesError struct {
	Backend Backend
	Names   []string
}

func (e *MissingVariablesError) Error() string {
	return fmt.Sprintf("%s backend is missing required environment variables: %s", e.Backend, strings.Join(e.Names, ", "))
}

// DatabaseConfig holds the resolved connection parameters for one backend
type DatabaseConfig struct {
	Backend Backend

	// sqlite
	FilePath string

	// postgres
	User     string
	Password string
	Host     string
	Port     int
	Name     string
	SSLMode  string
}

// LookupFunc matches os.LookupEnv
type LookupFunc func(key string) (string, bool)

// LoadDatabaseFromEnv resolves database settings from the process environment
func LoadDatabaseFromEnv() (*DatabaseConfig, error) {
	return LoadDatabase(os.LookupEnv)
}

// LoadDatabase resolves database settings using lookup.
// The two backends are mutually exclusive.
func LoadDatabase(lookup LookupFunc) (*DatabaseConfig, error) {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	filePath, hasFile := get(EnvDBFilePath)

	var present, missing []string
	values := make(map[string]string, len(postgresVars))
	for _, name := range postgresVars {
		if v, ok := get(name); ok {
			present = append(present, name)
			values[name] = v
		} else {
			missing = append(missing, name)
		}
	}

	switch {
	case hasFile && len(present) > 0:
		return nil, ErrConflictingBackends
	case hasFile:
		return &DatabaseConfig{Backend: BackendSQLite, FilePath: filePath}, nil
	case len(present) == 0:
		return nil, ErrNoBackend
	case len(missing) > 0:
		return nil, &MissingVariablesError{Backend: BackendPostgres, Names: missing}
	}

	cfg := &DatabaseConfig{
		Backend:  BackendPostgres,
		User:     values[EnvDBUser],
		Password: values[EnvDBPassword],
		Host:     values[EnvDBHost],
		Name:     values[EnvDBName],
		Port:     defaultPostgresPort,
		SSLMode:  defaultSSLMode,
	}
	if v, ok := get(EnvDBPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid %s %q", EnvDBPort, v)
		}
		cfg.Port = port
	}
	if v, ok := get(EnvDBSSLMode); ok {
		cfg.SSLMode = v
	}
	return cfg, nil
}

// Driver returns the database/sql driver name for the backend
func (c *DatabaseConfig) Driver() string {
	if c.Backend == BackendPostgres {
		return "pgx"
	}
	return "sqlite"
}

// ConnectionString returns the DSN handed to the driver
func (c *DatabaseConfig) ConnectionString() string {
	if c.Backend == BackendPostgres {
		return c.postgresURL(url.UserPassword(c.User, c.Password))
	}
	return sqliteDSN(c.FilePath)
}

// Redacted returns the connection string with the password masked
func (c *DatabaseConfig) Redacted() string {
	if c.Backend == BackendPostgres {
		return c.postgresURL(url.UserPassword(c.User, "xxxxx"))
	}
	return sqliteDSN(c.FilePath)
}

func (c *DatabaseConfig) postgresURL(user *url.Userinfo) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// sqliteURIEscaper escapes the characters that end or alter the path part of
// an SQLite URI filename. SQLite decodes %HH sequences back to bytes.
var sqliteURIEscaper = strings.NewReplacer("%", "%25", "?", "%3F", "#", "%23")

// sqliteDSN builds a modernc.org/sqlite DSN with WAL, a busy timeout and
// foreign keys enabled on every pooled connection.
func sqliteDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	return "file:" + sqliteURIEscaper.Replace(path) + "?" + q.Encode()
}
