package dal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// ErrTokenCollision is returned when a new order's tracking token is already taken.
var ErrTokenCollision = errors.New("order token already in use")

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store groups the repositories. Repositories obtained from the store passed to an
// InTx callback share that transaction.
type Store interface {
	Tenants() TenantRepository
	Products() ProductRepository
	Orders() OrderRepository
	Notifications() NotificationRepository
	Reports() ReportRepository

	InTx(ctx context.Context, fn func(Store) error) error
}

// Repository is the base embedded by every repository.
type Repository struct {
	db      querier
	dialect Dialect
}

func NewRepository(db querier, dialect Dialect) *Repository {
	return &Repository{db: db, dialect: dialect}
}

// rebind rewrites ? placeholders to $n for postgres.
func (r *Repository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (r *Repository) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return r.db.ExecContext(ctx, r.rebind(query), args...)
}

func (r *Repository) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, r.rebind(query), args...)
}

func (r *Repository) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return r.db.QueryRowContext(ctx, r.rebind(query), args...)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type sqlStore struct {
	q       querier
	db      *sql.DB // nil inside a transaction
	dialect Dialect
}

// NewStore wraps an open pool. DB.Store is the usual way in.
func NewStore(db *sql.DB, dialect Dialect) Store {
	return &sqlStore{q: db, db: db, dialect: dialect}
}

func (s *sqlStore) base() *Repository { return NewRepository(s.q, s.dialect) }

func (s *sqlStore) Tenants() TenantRepository { return &tenantRepository{s.base()} }

func (s *sqlStore) Products() ProductRepository { return &productRepository{s.base()} }

func (s *sqlStore) Orders() OrderRepository { return &orderRepository{s.base()} }

func (s *sqlStore) Notifications() NotificationRepository {
	return &notificationRepository{s.base()}
}

func (s *sqlStore) Reports() ReportRepository { return &reportRepository{s.base()} }

// InTx runs fn in a transaction, committing when fn returns nil. Calls nested in an
// existing transaction join it.
func (s *sqlStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlStore{q: tx, dialect: s.dialect}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
