package seed

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"time"

	_ "github.com/denisenkom/go-mssqldb" // for sqlserver
	_ "github.com/go-sql-driver/mysql"   // for mysql
	_ "github.com/lib/pq"                // for postgres
)

// DBConfig holds database connection configuration
type DBConfig struct {
	Type     string
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// DSN builds the driver specific connection string
func (c DBConfig) DSN() (string, error) {
	switch c.Type {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, c.Database), nil
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
			c.User, c.Password, c.Host, c.Port, c.Database), nil
	case "sqlserver":
		q := url.Values{}
		q.Set("database", c.Database)
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(c.User, c.Password),
			Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
			RawQuery: q.Encode(),
		}
		return u.String(), nil
	default:
		return "", fmt.Errorf("unsupported database type: %s", c.Type)
	}
}

// RowSource returns one sample row of a table as column name to value.
// A nil map without error means the table is absent or empty.
type RowSource interface {
	SampleRow(ctx context.Context, table string) (map[string]any, error)
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// sqlSource samples rows through database/sql
type sqlSource struct {
	db      *sql.DB
	dialect string
}

// sampleQuery returns the dialect's single row query for a table
func sampleQuery(dialect, table string) (string, error) {
	if !identRe.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	switch dialect {
	case "postgres":
		return fmt.Sprintf(`SELECT * FROM "%s" LIMIT 1`, table), nil
	case "mysql":
		return fmt.Sprintf("SELECT * FROM `%s` LIMIT 1", table), nil
	case "sqlserver":
		return fmt.Sprintf("SELECT TOP 1 * FROM [%s]", table), nil
	}
	return "", fmt.Errorf("unsupported database type: %s", dialect)
}

func (s *sqlSource) SampleRow(ctx context.Context, table string) (map[string]any, error) {
	query, err := sampleQuery(s.dialect, table)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		// missing tables surface as driver errors; treat them as no data
		return nil, nil
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if !rows.Next() {
		return nil, rows.Err()
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", table, err)
	}

	row := make(map[string]any, len(columns))
	for i, col := range columns {
		row[col] = normalizeValue(values[i])
	}
	return row, nil
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	}
	return v
}

// connect opens and pings the configured database
func connect(ctx context.Context, cfg DBConfig) (*sql.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(cfg.Type, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
