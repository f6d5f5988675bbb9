package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const upsertProduct = `
INSERT INTO products (uuid, client_id, reference, name, price, attributes)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (client_id, reference) DO UPDATE
SET name       = COALESCE(EXCLUDED.name, products.name),
    price      = COALESCE(EXCLUDED.price, products.price),
    attributes = COALESCE(EXCLUDED.attributes, products.attributes),
    updated_at = now()
RETURNING id, uuid, client_id, reference, name, price, attributes, created_at, updated_at
`

type UpsertProductParams struct {
	Uuid       pgtype.UUID
	ClientID   int32
	Reference  string
	Name       pgtype.Text
	Price      pgtype.Numeric
	Attributes []byte
}

// UpsertProduct creates a product or updates the one with the same
// reference for the client. NULL name, price or attributes keep the stored value.
func (q *Queries) UpsertProduct(ctx context.Context, arg UpsertProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, upsertProduct,
		arg.Uuid,
		arg.ClientID,
		arg.Reference,
		arg.Name,
		arg.Price,
		arg.Attributes,
	)
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Uuid,
		&i.ClientID,
		&i.Reference,
		&i.Name,
		&i.Price,
		&i.Attributes,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
