package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const upsertCustomer = `
INSERT INTO customers (uuid, client_id, email, first_name, last_name, location)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (client_id, email) DO UPDATE
SET first_name = EXCLUDED.first_name,
    last_name  = EXCLUDED.last_name,
    location   = EXCLUDED.location,
    updated_at = now()
RETURNING id, uuid, client_id, email, first_name, last_name, location, created_at, updated_at
`

type UpsertCustomerParams struct {
	Uuid      pgtype.UUID
	ClientID  int32
	Email     string
	FirstName pgtype.Text
	LastName  pgtype.Text
	Location  pgtype.Text
}

func (q *Queries) UpsertCustomer(ctx context.Context, arg UpsertCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, upsertCustomer,
		arg.Uuid,
		arg.ClientID,
		arg.Email,
		arg.FirstName,
		arg.LastName,
		arg.Location,
	)
	var i Customer
	err := row.Scan(
		&i.ID,
		&i.Uuid,
		&i.ClientID,
		&i.Email,
		&i.FirstName,
		&i.LastName,
		&i.Location,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
