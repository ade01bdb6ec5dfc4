package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists orders to SQLite.
// Items are stored as a JSON column.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens or creates the database at path.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// An in-memory database is per connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			customer TEXT,
			status TEXT NOT NULL,
			total TEXT NOT NULL,
			order_date TEXT NOT NULL,
			payment_method TEXT NOT NULL DEFAULT '',
			shipping_address TEXT NOT NULL DEFAULT '',
			items TEXT NOT NULL DEFAULT '[]'
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// FindByID implements Store.
func (s *SQLiteStore) FindByID(ctx context.Context, id int64) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, customer, status, total, order_date, payment_method, shipping_address, items
		FROM orders WHERE id = ?
	`, id)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order %d: %w", id, err)
	}
	return o, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, order *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	customer, err := encodeCustomer(order.Customer)
	if err != nil {
		return fmt.Errorf("encode customer: %w", err)
	}
	items, err := json.Marshal(itemsOrEmpty(order.Items))
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	args := []any{
		customer,
		order.Status,
		order.Total.String(),
		order.OrderDate.UTC().Format(time.RFC3339Nano),
		order.PaymentMethod,
		order.ShippingAddress,
		string(items),
	}

	if order.ID == 0 {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO orders (customer, status, total, order_date, payment_method, shipping_address, items)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, args...)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert order id: %w", err)
		}
		order.ID = id
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (id, customer, status, total, order_date, payment_method, shipping_address, items)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			customer = excluded.customer,
			status = excluded.status,
			total = excluded.total,
			order_date = excluded.order_date,
			payment_method = excluded.payment_method,
			shipping_address = excluded.shipping_address,
			items = excluded.items
	`, append([]any{order.ID}, args...)...)
	if err != nil {
		return fmt.Errorf("save order %d: %w", order.ID, err)
	}
	return nil
}

// Query implements Store. The predicate runs in Go over every row.
func (s *SQLiteStore) Query(ctx context.Context, pred Predicate) ([]*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer, status, total, order_date, payment_method, shipping_address, items
		FROM orders ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if pred == nil || pred(o) {
			out = append(out, o)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*Order, error) {
	var (
		o         Order
		customer  sql.NullString
		total     string
		orderDate string
		items     string
	)
	if err := row.Scan(&o.ID, &customer, &o.Status, &total, &orderDate,
		&o.PaymentMethod, &o.ShippingAddress, &items); err != nil {
		return nil, err
	}

	var err error
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total %q: %w", total, err)
	}
	if o.OrderDate, err = time.Parse(time.RFC3339Nano, orderDate); err != nil {
		return nil, fmt.Errorf("parse order date %q: %w", orderDate, err)
	}
	if customer.Valid {
		o.Customer = &Customer{}
		if err := json.Unmarshal([]byte(customer.String), o.Customer); err != nil {
			return nil, fmt.Errorf("decode customer: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	if len(o.Items) == 0 {
		o.Items = nil
	}
	return &o, nil
}

func encodeCustomer(c *Customer) (sql.NullString, error) {
	if c == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func itemsOrEmpty(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	return items
}

var _ Store = (*SQLiteStore)(nil)
