package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Client struct {
	ID        int32
	Uuid      pgtype.UUID
	Email     string
	Shop      string
	FirstName string
	LastName  string
	IsActive  bool
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

type Customer struct {
	ID        int32
	Uuid      pgtype.UUID
	ClientID  int32
	Email     string
	FirstName pgtype.Text
	LastName  pgtype.Text
	Location  pgtype.Text
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

type Product struct {
	ID         int32
	Uuid       pgtype.UUID
	ClientID   int32
	Reference  string
	Name       pgtype.Text
	Price      pgtype.Numeric
	Attributes []byte
	CreatedAt  pgtype.Timestamptz
	UpdatedAt  pgtype.Timestamptz
}

type Order struct {
	ID            int32
	Uuid          pgtype.UUID
	ClientID      int32
	CustomerID    int32
	OrderRef      string
	CustomerEmail string
	CustomerName  pgtype.Text
	Total         pgtype.Numeric
	MailSent      bool
	MailSentAt    pgtype.Timestamptz
	CreatedAt     pgtype.Timestamptz
	UpdatedAt     pgtype.Timestamptz
}

type OrderItem struct {
	ID        int32
	OrderID   int32
	ProductID int32
	Position  int32
	Quantity  int32
	UnitPrice pgtype.Numeric
}
