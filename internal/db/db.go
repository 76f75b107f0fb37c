package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// TimeFormat is the layout every timestamp column is written in. It sorts
// lexically in time order, so SQL comparisons on these columns are safe.
const TimeFormat = "2006-01-02T15:04:05.000Z"

func Open(dataDir string) (*sql.DB, error) {
	dbDir := filepath.Join(dataDir, "db")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	return OpenFile(filepath.Join(dbDir, "photoalbum.db"))
}

// OpenFile opens a local SQLite database at path.
func OpenFile(path string) (*sql.DB, error) {
	database, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA cache_size=-20000",
	}
	for _, p := range pragmas {
		if _, err := database.Exec(p); err != nil {
			database.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	database.SetMaxOpenConns(1)

	return database, nil
}

// OpenTurso connects to a remote libsql database.
func OpenTurso(url, token string) (*sql.DB, error) {
	if url == "" {
		return nil, fmt.Errorf("turso URL is required")
	}
	connStr := url
	if token != "" {
		connStr = url + "?authToken=" + token
	}
	database, err := sql.Open("libsql", connStr)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	if err := database.Ping(); err != nil {
		database.Close()
		return nil, fmt.Errorf("ping libsql: %w", err)
	}
	if _, err := database.Exec("PRAGMA foreign_keys=ON"); err != nil {
		database.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return database, nil
}

// Optimize refreshes the query planner statistics. Remote libsql servers may
// refuse it.
func Optimize(database *sql.DB) error {
	if _, err := database.Exec("PRAGMA optimize"); err != nil {
		return fmt.Errorf("optimize: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err came from a UNIQUE constraint. Both
// drivers surface the sqlite message text.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// SQLiteTime handles scanning time values from SQLite columns.
// SQLite stores timestamps as TEXT and different drivers may return
// string, time.Time, or int64; this wrapper normalises them all.
type SQLiteTime struct {
	Time time.Time
}

func (st *SQLiteTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		st.Time = time.Time{}
	case string:
		return st.parse(v)
	case []byte:
		return st.parse(string(v))
	case time.Time:
		st.Time = v
	case int64:
		st.Time = time.Unix(v, 0)
	default:
		return fmt.Errorf("SQLiteTime: unsupported type %T", src)
	}
	return nil
}

func (st *SQLiteTime) parse(v string) error {
	formats := []string{
		TimeFormat,
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	}
	var err error
	for _, f := range formats {
		st.Time, err = time.Parse(f, v)
		if err == nil {
			return nil
		}
	}
	return fmt.Errorf("SQLiteTime: cannot parse %q", v)
}

// NullTime scans a nullable timestamp column into a pointer.
type NullTime struct {
	Time *time.Time
}

func (nt *NullTime) Scan(src interface{}) error {
	if src == nil {
		nt.Time = nil
		return nil
	}
	var st SQLiteTime
	if err := st.Scan(src); err != nil {
		return err
	}
	nt.Time = &st.Time
	return nil
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func scanNullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func scanNullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
