package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const upsertOrder = `
INSERT INTO orders (uuid, client_id, customer_id, order_ref, customer_email, customer_name, total)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (client_id, order_ref) DO UPDATE
SET customer_id    = EXCLUDED.customer_id,
    customer_email = EXCLUDED.customer_email,
    customer_name  = EXCLUDED.customer_name,
    total          = EXCLUDED.total,
    updated_at     = now()
RETURNING id, uuid, client_id, customer_id, order_ref, customer_email, customer_name,
          total, mail_sent, mail_sent_at, created_at, updated_at
`

type UpsertOrderParams struct {
	Uuid          pgtype.UUID
	ClientID      int32
	CustomerID    int32
	OrderRef      string
	CustomerEmail string
	CustomerName  pgtype.Text
	Total         pgtype.Numeric
}

// UpsertOrder creates an order or refreshes the one with the same reference
// for the client. The mail_sent flag is never touched here.
func (q *Queries) UpsertOrder(ctx context.Context, arg UpsertOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, upsertOrder,
		arg.Uuid,
		arg.ClientID,
		arg.CustomerID,
		arg.OrderRef,
		arg.CustomerEmail,
		arg.CustomerName,
		arg.Total,
	)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.Uuid,
		&i.ClientID,
		&i.CustomerID,
		&i.OrderRef,
		&i.CustomerEmail,
		&i.CustomerName,
		&i.Total,
		&i.MailSent,
		&i.MailSentAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const deleteOrderItems = `
DELETE FROM order_items WHERE order_id = $1
`

func (q *Queries) DeleteOrderItems(ctx context.Context, orderID int32) error {
	_, err := q.db.Exec(ctx, deleteOrderItems, orderID)
	return err
}

const insertOrderItem = `
INSERT INTO order_items (order_id, product_id, position, quantity, unit_price)
VALUES ($1, $2, $3, $4, $5)
`

type InsertOrderItemParams struct {
	OrderID   int32
	ProductID int32
	Position  int32
	Quantity  int32
	UnitPrice pgtype.Numeric
}

func (q *Queries) InsertOrderItem(ctx context.Context, arg InsertOrderItemParams) error {
	_, err := q.db.Exec(ctx, insertOrderItem,
		arg.OrderID,
		arg.ProductID,
		arg.Position,
		arg.Quantity,
		arg.UnitPrice,
	)
	return err
}

const listUnsentOrders = `
SELECT o.id, o.order_ref, o.customer_email, o.customer_name, o.total, c.shop, o.created_at
FROM orders o
JOIN clients c ON c.id = o.client_id
WHERE o.mail_sent = false
ORDER BY o.created_at, o.id
LIMIT NULLIF($1::int, 0)
`

type ListUnsentOrdersRow struct {
	ID            int32
	OrderRef      string
	CustomerEmail string
	CustomerName  pgtype.Text
	Total         pgtype.Numeric
	Shop          string
	CreatedAt     pgtype.Timestamptz
}

// ListUnsentOrders returns orders still waiting for their review email,
// oldest first. A zero limit returns all of them.
func (q *Queries) ListUnsentOrders(ctx context.Context, limit int32) ([]ListUnsentOrdersRow, error) {
	rows, err := q.db.Query(ctx, listUnsentOrders, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListUnsentOrdersRow
	for rows.Next() {
		var i ListUnsentOrdersRow
		if err := rows.Scan(
			&i.ID,
			&i.OrderRef,
			&i.CustomerEmail,
			&i.CustomerName,
			&i.Total,
			&i.Shop,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listOrderItems = `
SELECT p.reference, p.name, oi.quantity
FROM order_items oi
JOIN products p ON p.id = oi.product_id
WHERE oi.order_id = $1
ORDER BY oi.position
`

type ListOrderItemsRow struct {
	Reference string
	Name      pgtype.Text
	Quantity  int32
}

func (q *Queries) ListOrderItems(ctx context.Context, orderID int32) ([]ListOrderItemsRow, error) {
	rows, err := q.db.Query(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListOrderItemsRow
	for rows.Next() {
		var i ListOrderItemsRow
		if err := rows.Scan(&i.Reference, &i.Name, &i.Quantity); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markOrderMailSent = `
UPDATE orders
SET mail_sent = true, mail_sent_at = $2, updated_at = now()
WHERE id = $1 AND mail_sent = false
`

type MarkOrderMailSentParams struct {
	ID         int32
	MailSentAt pgtype.Timestamptz
}

// MarkOrderMailSent flags an order as emailed and returns the number of
// rows changed. Zero means the order was already marked.
func (q *Queries) MarkOrderMailSent(ctx context.Context, arg MarkOrderMailSentParams) (int64, error) {
	result, err := q.db.Exec(ctx, markOrderMailSent, arg.ID, arg.MailSentAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
