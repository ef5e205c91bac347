package postgresengine

import (
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite"

	// sqliteTimeLayout is fixed width so that text comparison of stored times is chronological.
	sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

	pgUniqueViolation = "23505"
)

func init() {
	options := sqlite3.DialectOptions()
	options.TimeFormat = sqliteTimeLayout
	goqu.RegisterDialect(dialectSQLite, options)
}

// isDuplicateKeyError reports whether err is a primary key violation of one of the supported drivers.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlitelib.SQLITE_CONSTRAINT_UNIQUE
	}

	return false
}

// uuidFromColumn converts a scanned UUID column. pgx yields [16]byte, lib/pq []byte text and SQLite a string.
func uuidFromColumn(value any) (uuid.UUID, error) {
	switch v := value.(type) {
	case [16]byte:
		return v, nil
	case uuid.UUID:
		return v, nil
	case string:
		return uuid.Parse(v)
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}

		return uuid.ParseBytes(v)
	default:
		return uuid.Nil, fmt.Errorf("unsupported uuid column type %T", value)
	}
}

// timeFromColumn converts a scanned time column. SQLite stores sqliteTimeLayout text.
func timeFromColumn(value any) (*time.Time, error) {
	var t time.Time

	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		t = v
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, err
		}

		t = parsed
	case []byte:
		parsed, err := time.Parse(time.RFC3339Nano, string(v))
		if err != nil {
			return nil, err
		}

		t = parsed
	default:
		return nil, fmt.Errorf("unsupported time column type %T", value)
	}

	t = t.UTC()

	return &t, nil
}
