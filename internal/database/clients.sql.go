package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const upsertClient = `
INSERT INTO clients (uuid, email, shop, first_name, last_name)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (email) DO UPDATE
SET shop       = EXCLUDED.shop,
    first_name = EXCLUDED.first_name,
    last_name  = EXCLUDED.last_name,
    updated_at = now()
RETURNING id, uuid, email, shop, first_name, last_name, is_active, created_at, updated_at
`

type UpsertClientParams struct {
	Uuid      pgtype.UUID
	Email     string
	Shop      string
	FirstName string
	LastName  string
}

// UpsertClient creates a client or refreshes the one with the same email.
// Uuid is only used on insert.
func (q *Queries) UpsertClient(ctx context.Context, arg UpsertClientParams) (Client, error) {
	row := q.db.QueryRow(ctx, upsertClient,
		arg.Uuid,
		arg.Email,
		arg.Shop,
		arg.FirstName,
		arg.LastName,
	)
	var i Client
	err := row.Scan(
		&i.ID,
		&i.Uuid,
		&i.Email,
		&i.Shop,
		&i.FirstName,
		&i.LastName,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const countRows = `
SELECT
    (SELECT count(*) FROM clients)     AS clients,
    (SELECT count(*) FROM customers)   AS customers,
    (SELECT count(*) FROM products)    AS products,
    (SELECT count(*) FROM orders)      AS orders,
    (SELECT count(*) FROM order_items) AS order_items
`

type CountRowsRow struct {
	Clients    int64
	Customers  int64
	Products   int64
	Orders     int64
	OrderItems int64
}

func (q *Queries) CountRows(ctx context.Context) (CountRowsRow, error) {
	row := q.db.QueryRow(ctx, countRows)
	var i CountRowsRow
	err := row.Scan(
		&i.Clients,
		&i.Customers,
		&i.Products,
		&i.Orders,
		&i.OrderItems,
	)
	return i, err
}
