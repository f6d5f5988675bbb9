package database

import (
	"context"
)

// Querier lists every statement of this package.
// *Queries satisfies it, as does the in-memory implementation in memdb.
type Querier interface {
	UpsertClient(ctx context.Context, arg UpsertClientParams) (Client, error)
	UpsertCustomer(ctx context.Context, arg UpsertCustomerParams) (Customer, error)
	UpsertProduct(ctx context.Context, arg UpsertProductParams) (Product, error)
	UpsertOrder(ctx context.Context, arg UpsertOrderParams) (Order, error)
	DeleteOrderItems(ctx context.Context, orderID int32) error
	InsertOrderItem(ctx context.Context, arg InsertOrderItemParams) error
	ListUnsentOrders(ctx context.Context, limit int32) ([]ListUnsentOrdersRow, error)
	ListOrderItems(ctx context.Context, orderID int32) ([]ListOrderItemsRow, error)
	MarkOrderMailSent(ctx context.Context, arg MarkOrderMailSentParams) (int64, error)
	CountRows(ctx context.Context) (CountRowsRow, error)
}

var _ Querier = (*Queries)(nil)
