package fulfillment

import (
	"context"

	"github.com/rahulkrishna-web/homerun-shipping-app/shopify"
)

// CommerceAPI is the slice of the remote platform's order/fulfillment API the
// engine consumes. *shopify.Client implements it; tests use fakes.
type CommerceAPI interface {
	GetOrder(ctx context.Context, orderId int64) (*shopify.Order, error)
	FindOrderByName(ctx context.Context, name string) (*shopify.Order, error)
	UpdateOrderTags(ctx context.Context, orderId int64, tags string) error
	ListFulfillmentOrders(ctx context.Context, orderId int64) ([]shopify.FulfillmentOrder, error)
	CreateFulfillmentEvent(ctx context.Context, orderId, fulfillmentId int64, status string) error
	CreateFulfillment(ctx context.Context, req shopify.FulfillmentRequest) (*shopify.Fulfillment, error)
	ReopenFulfillment(ctx context.Context, orderId, fulfillmentId int64) error
	MarkFulfillmentOrderAction(ctx context.Context, fulfillmentOrderId int64, action string) error
}
