// Package memdb is an in-memory database.Querier for tests.
//
// InTx works on a snapshot of the tables and swaps it in only when the
// callback succeeds, so rollback behaviour matches PostgreSQL. Unique and
// foreign-key violations come back as *pgconn.PgError with the SQLSTATE
// codes PostgreSQL would use. A DB is not safe for concurrent use.
package memdb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/JonMunkholm/reviews/internal/database"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DB is an in-memory store. The zero value is not usable; call New.
type DB struct {
	queries

	// Fail, when set, is consulted before every statement. A non-nil
	// return is handed back to the caller as the statement's error.
	Fail func(op string) error

	// Commits counts successful InTx calls.
	Commits int
}

var _ database.Querier = (*DB)(nil)

// New returns an empty DB.
func New() *DB {
	db := &DB{}
	db.queries = queries{db: db, st: &state{}}
	return db
}

// InTx runs fn against a snapshot and commits it only if fn returns nil.
func (db *DB) InTx(ctx context.Context, fn func(database.Querier) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	tx := &queries{db: db, st: db.st.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	db.st = tx.st
	db.Commits++
	return nil
}

func (db *DB) Clients() []database.Client { return append([]database.Client(nil), db.st.clients...) }
func (db *DB) Customers() []database.Customer { return append([]database.Customer(nil), db.st.customers...) }
func (db *DB) Products() []database.Product { return append([]database.Product(nil), db.st.products...) }
func (db *DB) Orders() []database.Order { return append([]database.Order(nil), db.st.orders...) }
func (db *DB) OrderItems() []database.OrderItem { return append([]database.OrderItem(nil), db.st.items...) }

type state struct {
	seq       int32
	clients   []database.Client
	customers []database.Customer
	products  []database.Product
	orders    []database.Order
	items     []database.OrderItem
}

func (s *state) clone() *state {
	return &state{
		seq:       s.seq,
		clients:   append([]database.Client(nil), s.clients...),
		customers: append([]database.Customer(nil), s.customers...),
		products:  append([]database.Product(nil), s.products...),
		orders:    append([]database.Order(nil), s.orders...),
		items:     append([]database.OrderItem(nil), s.items...),
	}
}

func (s *state) nextID() int32 {
	s.seq++
	return s.seq
}

type queries struct {
	db *DB
	st *state
}

func (q *queries) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if q.db.Fail != nil {
		return q.db.Fail(op)
	}
	return nil
}

func now() pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: time.Now(), Valid: true}
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{
		Severity:       "ERROR",
		Code:           "23505",
		Message:        fmt.Sprintf("duplicate key value violates unique constraint %q", constraint),
		ConstraintName: constraint,
	}
}

func foreignKeyViolation(constraint string) error {
	return &pgconn.PgError{
		Severity:       "ERROR",
		Code:           "23503",
		Message:        fmt.Sprintf("insert or update violates foreign key constraint %q", constraint),
		ConstraintName: constraint,
	}
}

func (q *queries) clientByID(id int32) int {
	for i := range q.st.clients {
		if q.st.clients[i].ID == id {
			return i
		}
	}
	return -1
}

func (q *queries) UpsertClient(ctx context.Context, arg database.UpsertClientParams) (database.Client, error) {
	if err := q.check(ctx, "UpsertClient"); err != nil {
		return database.Client{}, err
	}

	existing := -1
	for i, c := range q.st.clients {
		if c.Email == arg.Email {
			existing = i
			continue
		}
		if c.Shop == arg.Shop {
			return database.Client{}, uniqueViolation("clients_shop_key")
		}
	}

	if existing >= 0 {
		c := &q.st.clients[existing]
		c.Shop = arg.Shop
		c.FirstName = arg.FirstName
		c.LastName = arg.LastName
		c.UpdatedAt = now()
		return *c, nil
	}

	c := database.Client{
		ID:        q.st.nextID(),
		Uuid:      arg.Uuid,
		Email:     arg.Email,
		Shop:      arg.Shop,
		FirstName: arg.FirstName,
		LastName:  arg.LastName,
		IsActive:  true,
		CreatedAt: now(),
		UpdatedAt: now(),
	}
	q.st.clients = append(q.st.clients, c)
	return c, nil
}

func (q *queries) UpsertCustomer(ctx context.Context, arg database.UpsertCustomerParams) (database.Customer, error) {
	if err := q.check(ctx, "UpsertCustomer"); err != nil {
		return database.Customer{}, err
	}
	if q.clientByID(arg.ClientID) < 0 {
		return database.Customer{}, foreignKeyViolation("customers_client_id_fkey")
	}

	for i := range q.st.customers {
		c := &q.st.customers[i]
		if c.ClientID == arg.ClientID && c.Email == arg.Email {
			c.FirstName = arg.FirstName
			c.LastName = arg.LastName
			c.Location = arg.Location
			c.UpdatedAt = now()
			return *c, nil
		}
	}

	c := database.Customer{
		ID:        q.st.nextID(),
		Uuid:      arg.Uuid,
		ClientID:  arg.ClientID,
		Email:     arg.Email,
		FirstName: arg.FirstName,
		LastName:  arg.LastName,
		Location:  arg.Location,
		CreatedAt: now(),
		UpdatedAt: now(),
	}
	q.st.customers = append(q.st.customers, c)
	return c, nil
}

func (q *queries) UpsertProduct(ctx context.Context, arg database.UpsertProductParams) (database.Product, error) {
	if err := q.check(ctx, "UpsertProduct"); err != nil {
		return database.Product{}, err
	}
	if q.clientByID(arg.ClientID) < 0 {
		return database.Product{}, foreignKeyViolation("products_client_id_fkey")
	}

	for i := range q.st.products {
		p := &q.st.products[i]
		if p.ClientID == arg.ClientID && p.Reference == arg.Reference {
			if arg.Name.Valid {
				p.Name = arg.Name
			}
			if arg.Price.Valid {
				p.Price = arg.Price
			}
			if arg.Attributes != nil {
				p.Attributes = arg.Attributes
			}
			p.UpdatedAt = now()
			return *p, nil
		}
	}

	p := database.Product{
		ID:         q.st.nextID(),
		Uuid:       arg.Uuid,
		ClientID:   arg.ClientID,
		Reference:  arg.Reference,
		Name:       arg.Name,
		Price:      arg.Price,
		Attributes: arg.Attributes,
		CreatedAt:  now(),
		UpdatedAt:  now(),
	}
	q.st.products = append(q.st.products, p)
	return p, nil
}

func (q *queries) UpsertOrder(ctx context.Context, arg database.UpsertOrderParams) (database.Order, error) {
	if err := q.check(ctx, "UpsertOrder"); err != nil {
		return database.Order{}, err
	}
	if q.clientByID(arg.ClientID) < 0 {
		return database.Order{}, foreignKeyViolation("orders_client_id_fkey")
	}
	found := false
	for _, c := range q.st.customers {
		if c.ID == arg.CustomerID {
			found = true
			break
		}
	}
	if !found {
		return database.Order{}, foreignKeyViolation("orders_customer_id_fkey")
	}

	for i := range q.st.orders {
		o := &q.st.orders[i]
		if o.ClientID == arg.ClientID && o.OrderRef == arg.OrderRef {
			o.CustomerID = arg.CustomerID
			o.CustomerEmail = arg.CustomerEmail
			o.CustomerName = arg.CustomerName
			o.Total = arg.Total
			o.UpdatedAt = now()
			return *o, nil
		}
	}

	o := database.Order{
		ID:            q.st.nextID(),
		Uuid:          arg.Uuid,
		ClientID:      arg.ClientID,
		CustomerID:    arg.CustomerID,
		OrderRef:      arg.OrderRef,
		CustomerEmail: arg.CustomerEmail,
		CustomerName:  arg.CustomerName,
		Total:         arg.Total,
		CreatedAt:     now(),
		UpdatedAt:     now(),
	}
	q.st.orders = append(q.st.orders, o)
	return o, nil
}

func (q *queries) DeleteOrderItems(ctx context.Context, orderID int32) error {
	if err := q.check(ctx, "DeleteOrderItems"); err != nil {
		return err
	}
	kept := q.st.items[:0:0]
	for _, it := range q.st.items {
		if it.OrderID != orderID {
			kept = append(kept, it)
		}
	}
	q.st.items = kept
	return nil
}

func (q *queries) InsertOrderItem(ctx context.Context, arg database.InsertOrderItemParams) error {
	if err := q.check(ctx, "InsertOrderItem"); err != nil {
		return err
	}
	if arg.Quantity <= 0 {
		return &pgconn.PgError{
			Severity:       "ERROR",
			Code:           "23514",
			Message:        `new row for relation "order_items" violates check constraint "order_items_quantity_check"`,
			ConstraintName: "order_items_quantity_check",
		}
	}
	for _, it := range q.st.items {
		if it.OrderID == arg.OrderID && it.Position == arg.Position {
			return uniqueViolation("order_items_order_id_position_key")
		}
	}
	q.st.items = append(q.st.items, database.OrderItem{
		ID:        q.st.nextID(),
		OrderID:   arg.OrderID,
		ProductID: arg.ProductID,
		Position:  arg.Position,
		Quantity:  arg.Quantity,
		UnitPrice: arg.UnitPrice,
	})
	return nil
}

func (q *queries) ListUnsentOrders(ctx context.Context, limit int32) ([]database.ListUnsentOrdersRow, error) {
	if err := q.check(ctx, "ListUnsentOrders"); err != nil {
		return nil, err
	}

	var pending []database.Order
	for _, o := range q.st.orders {
		if !o.MailSent {
			pending = append(pending, o)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		if !pending[i].CreatedAt.Time.Equal(pending[j].CreatedAt.Time) {
			return pending[i].CreatedAt.Time.Before(pending[j].CreatedAt.Time)
		}
		return pending[i].ID < pending[j].ID
	})
	if limit > 0 && int(limit) < len(pending) {
		pending = pending[:limit]
	}

	rows := make([]database.ListUnsentOrdersRow, 0, len(pending))
	for _, o := range pending {
		var shop string
		if i := q.clientByID(o.ClientID); i >= 0 {
			shop = q.st.clients[i].Shop
		}
		rows = append(rows, database.ListUnsentOrdersRow{
			ID:            o.ID,
			OrderRef:      o.OrderRef,
			CustomerEmail: o.CustomerEmail,
			CustomerName:  o.CustomerName,
			Total:         o.Total,
			Shop:          shop,
			CreatedAt:     o.CreatedAt,
		})
	}
	return rows, nil
}

func (q *queries) ListOrderItems(ctx context.Context, orderID int32) ([]database.ListOrderItemsRow, error) {
	if err := q.check(ctx, "ListOrderItems"); err != nil {
		return nil, err
	}

	var items []database.OrderItem
	for _, it := range q.st.items {
		if it.OrderID == orderID {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Position < items[j].Position })

	rows := make([]database.ListOrderItemsRow, 0, len(items))
	for _, it := range items {
		for _, p := range q.st.products {
			if p.ID == it.ProductID {
				rows = append(rows, database.ListOrderItemsRow{
					Reference: p.Reference,
					Name:      p.Name,
					Quantity:  it.Quantity,
				})
				break
			}
		}
	}
	return rows, nil
}

func (q *queries) MarkOrderMailSent(ctx context.Context, arg database.MarkOrderMailSentParams) (int64, error) {
	if err := q.check(ctx, "MarkOrderMailSent"); err != nil {
		return 0, err
	}
	for i := range q.st.orders {
		o := &q.st.orders[i]
		if o.ID == arg.ID && !o.MailSent {
			o.MailSent = true
			o.MailSentAt = arg.MailSentAt
			o.UpdatedAt = now()
			return 1, nil
		}
	}
	return 0, nil
}

func (q *queries) CountRows(ctx context.Context) (database.CountRowsRow, error) {
	if err := q.check(ctx, "CountRows"); err != nil {
		return database.CountRowsRow{}, err
	}
	return database.CountRowsRow{
		Clients:    int64(len(q.st.clients)),
		Customers:  int64(len(q.st.customers)),
		Products:   int64(len(q.st.products)),
		Orders:     int64(len(q.st.orders)),
		OrderItems: int64(len(q.st.items)),
	}, nil
}
