// Package sqlstore implements the session repository on database/sql, for
// PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/misaelnieto/itm-2025-soa-u5/internal/domain"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/session"
)

// Dialect selects the SQL flavour and driver.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// ParseDialect maps a STORE_DRIVER value to a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pq":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported sql dialect %q", name)
	}
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Options configures Open.
type Options struct {
	Dialect         Dialect
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// Timeout bounds every repository call and the initial ping.
	Timeout time.Duration
}

// Store is a session.Repository backed by a SQL database.
type Store struct {
	db      *sql.DB
	dialect Dialect
	timeout time.Duration
	now     func() time.Time
}

var _ session.Repository = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open connects and pings the database. Schema changes are applied by Migrate.
func Open(ctx context.Context, opts Options) (*Store, error) {
	dsn := strings.TrimSpace(opts.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if opts.Dialect == SQLite {
		dsn = sqliteDSN(dsn)
	}
	db, err := sql.Open(string(opts.Dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", opts.Dialect, err)
	}
	switch {
	case opts.Dialect == SQLite:
		// sqlite serializes writers; one connection avoids SQLITE_BUSY on upgrade
		db.SetMaxOpenConns(1)
	case opts.MaxOpenConns > 0:
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", opts.Dialect, err)
	}
	return &Store{db: db, dialect: opts.Dialect, timeout: timeout, now: time.Now}, nil
}

// sqliteDSN accepts a bare path or a sqlite:// URL and adds the pragmas the
// store relies on under concurrent writers.
func sqliteDSN(dsn string) string {
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	dsn = strings.TrimPrefix(dsn, "file:")
	if strings.Contains(dsn, "?") {
		return dsn
	}
	return dsn + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

// Close closes the pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Dialect reports the store's SQL flavour.
func (s *Store) Dialect() Dialect { return s.dialect }

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

const sessionColumns = `id, white_player, black_player, state, fen_state, pgn_state, version, created, updated`

func (s *Store) Create(ctx context.Context, whitePlayer, blackPlayer int64) (*domain.Session, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := fromMillis(toMillis(s.now()))
	sess := session.NewSession(whitePlayer, blackPlayer, now)

	query := s.dialect.rebind(`
		INSERT INTO sessions (white_player, black_player, state, fen_state, pgn_state, version, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	var id int64
	err := s.db.QueryRowContext(ctx, query,
		sess.WhitePlayer,
		sess.BlackPlayer,
		sess.State.String(),
		sess.FEN,
		sess.PGN,
		sess.Version,
		toMillis(now),
		toMillis(now),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	sess.ID = id
	created, updated := now, now
	sess.Created = &created
	sess.Updated = &updated
	return sess, nil
}

func (s *Store) List(ctx context.Context, limit int) ([]*domain.Session, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	limit = session.NormalizeLimit(limit)
	query := s.dialect.rebind(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY id LIMIT ?`)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Session, 0, limit)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*domain.Session, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := s.dialect.rebind(`SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`)
	sess, err := scanSession(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Store) ConditionalUpdate(ctx context.Context, upd session.Update) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := s.dialect.rebind(`
		UPDATE sessions
		SET state = ?, fen_state = ?, pgn_state = ?, version = version + 1, updated = ?
		WHERE id = ? AND version = ?`)
	res, err := s.db.ExecContext(ctx, query,
		upd.State.String(),
		upd.FEN,
		upd.PGN,
		toMillis(s.now()),
		upd.ID,
		upd.ExpectedVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("update session %d: %w", upd.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		sess    domain.Session
		state   string
		created sql.NullInt64
		updated sql.NullInt64
	)
	err := row.Scan(
		&sess.ID,
		&sess.WhitePlayer,
		&sess.BlackPlayer,
		&state,
		&sess.FEN,
		&sess.PGN,
		&sess.Version,
		&created,
		&updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	st, err := domain.ParseState(state)
	if err != nil {
		return nil, fmt.Errorf("decode session %d: %w", sess.ID, err)
	}
	sess.State = st
	if created.Valid {
		t := fromMillis(created.Int64)
		sess.Created = &t
	}
	if updated.Valid {
		t := fromMillis(updated.Int64)
		sess.Updated = &t
	}
	return &sess, nil
}
