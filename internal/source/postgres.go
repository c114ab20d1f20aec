package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// pgUndefinedObject is the SQLSTATE returned for SHOW on an unrecognized
// configuration parameter. It maps to the "setting unavailable" outcome
// rather than an error.
const pgUndefinedObject = "42704"

// settingNamePattern restricts SHOW arguments to plain parameter names
// (including extension-qualified ones such as "pgaudit.log").
var settingNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// Config holds the connection parameters for a YugabyteDB (or PostgreSQL)
// cluster.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string

	// SSLMode is passed through to the driver ("disable", "require", ...).
	// Empty uses the driver default.
	SSLMode string

	// ConnectTimeout bounds connection establishment. Defaults to 10s.
	ConnectTimeout time.Duration
}

// DSN renders the config as a keyword/value connection string.
func (c Config) DSN() string {
	timeout := c.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	parts := []string{
		"host=" + quoteDSNValue(c.Host),
		"port=" + strconv.Itoa(c.Port),
		"dbname=" + quoteDSNValue(c.Database),
		"user=" + quoteDSNValue(c.User),
		"connect_timeout=" + strconv.Itoa(int(timeout.Seconds())),
	}
	if c.Password != "" {
		parts = append(parts, "password="+quoteDSNValue(c.Password))
	}
	if c.SSLMode != "" {
		parts = append(parts, "sslmode="+quoteDSNValue(c.SSLMode))
	}
	return strings.Join(parts, " ")
}

// quoteDSNValue single-quotes a DSN value, escaping backslashes and quotes.
func quoteDSNValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// PostgresSource implements SettingsSource over a single pgx-backed
// database/sql session. The benchmark run is sequential, so the pool is
// capped at one connection.
type PostgresSource struct {
	db  *sql.DB
	cfg Config

	infoOnce sync.Once
	info     map[string]string
}

// Open creates a PostgresSource for the given config. The connection is
// established lazily; call Ping to verify connectivity up front.
func Open(cfg Config) (*PostgresSource, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &PostgresSource{db: db, cfg: cfg}, nil
}

// Ping verifies that a session can be established.
func (s *PostgresSource) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s:%d: %w", s.cfg.Host, s.cfg.Port, err)
	}
	return nil
}

// Close releases the underlying session.
func (s *PostgresSource) Close() error {
	return s.db.Close()
}

// Setting implements SettingsSource using SHOW <name>.
func (s *PostgresSource) Setting(ctx context.Context, name string) (string, bool, error) {
	if !settingNamePattern.MatchString(name) {
		return "", false, fmt.Errorf("invalid setting name %q", name)
	}

	var value string
	err := s.db.QueryRowContext(ctx, "SHOW "+name).Scan(&value)
	if err == nil {
		return value, true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedObject {
		return "", false, nil
	}
	return "", false, fmt.Errorf("show %s: %w", name, err)
}

// Query implements SettingsSource. Every column value is rendered to a
// string; SQL NULL becomes "".
func (s *PostgresSource) Query(ctx context.Context, query string) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[strings.ToLower(col)] = formatValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// ClusterInfo implements SettingsSource. The snapshot is gathered once per
// source and reused; individual probe failures leave fields absent.
func (s *PostgresSource) ClusterInfo(ctx context.Context) map[string]string {
	s.infoOnce.Do(func() {
		info := map[string]string{
			"host":      s.cfg.Host,
			"port":      strconv.Itoa(s.cfg.Port),
			"database":  s.cfg.Database,
			"scan_user": s.cfg.User,
		}

		if rows, err := s.Query(ctx, "SELECT version();"); err == nil && len(rows) > 0 {
			info["version"] = rows[0]["version"]
		}
		if rows, err := s.Query(ctx, "SELECT current_user, current_database();"); err == nil && len(rows) > 0 {
			info["current_user"] = rows[0]["current_user"]
			info["current_database"] = rows[0]["current_database"]
		}
		for _, name := range []string{"data_directory", "config_file", "log_directory"} {
			if v, ok, err := s.Setting(ctx, name); err == nil && ok {
				info[name] = v
			}
		}
		if rows, err := s.Query(ctx,
			"SELECT pg_size_pretty(pg_database_size(current_database())) AS size;"); err == nil && len(rows) > 0 {
			info["database_size"] = rows[0]["size"]
		}
		if rows, err := s.Query(ctx,
			"SELECT count(*) AS connections FROM pg_stat_activity WHERE state = 'active';"); err == nil && len(rows) > 0 {
			info["active_connections"] = rows[0]["connections"]
		}

		s.info = info
	})
	return s.info
}

// formatValue renders a driver value as a string. NULL becomes "".
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}
