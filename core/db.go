package core

// Supported database engines (DatabaseConfig.Engine).
const (
	EnginePostgres = "postgres" // lib/pq
	EnginePgx      = "pgx"      // jackc/pgx stdlib
	EngineSQLite   = "sqlite"   // modernc.org/sqlite
)

// IsPostgres reports whether `engine` speaks the PostgreSQL dialect.
func IsPostgres(engine string) bool {
	return engine == EnginePostgres || engine == EnginePgx
}
