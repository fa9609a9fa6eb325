package store

import "walktimes.dev/internal/appconf"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Config holds configuration options for the Client
type Config struct {
	Driver  string // "sqlite" or "pgx"
	DSN     string // file path or ":memory:" for sqlite, connection URL for pgx
	Env     appconf.Environment
	verbose bool
}

func NewConfig(driver, dsn string, env appconf.Environment, verbose bool) Config {
	return Config{
		Driver:  driver,
		DSN:     dsn,
		Env:     env,
		verbose: verbose,
	}
}
