package application

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"ordermesh/internal/service/order/domain"
	"ordermesh/internal/service/order/domain/port"
)

var testNow = time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ---- fakes ----

type fakeOrderRepo struct {
	created       *domain.Order
	createdEvents []domain.Event
	updated       *domain.Order
	updatedEvents []domain.Event
	deleted       *domain.Order
	deletedEvents []domain.Event

	stored    *domain.Order
	updateErr error
}

func (f *fakeOrderRepo) CreateWithEvents(_ context.Context, order *domain.Order, events []domain.Event) error {
	f.created = order
	f.createdEvents = events
	return nil
}

func (f *fakeOrderRepo) UpdateWithEvents(_ context.Context, order *domain.Order, events []domain.Event) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = order
	f.updatedEvents = events
	order.Version++
	return nil
}

func (f *fakeOrderRepo) DeleteWithEvents(_ context.Context, order *domain.Order, events []domain.Event) error {
	f.deleted = order
	f.deletedEvents = events
	return nil
}

func (f *fakeOrderRepo) FindByID(_ context.Context, id string) (*domain.Order, error) {
	if f.stored == nil || f.stored.ID != id {
		return nil, domain.ErrOrderNotFound
	}
	return f.stored, nil
}

func (f *fakeOrderRepo) Search(_ context.Context, _ domain.OrderQuery) ([]*domain.Order, int64, error) {
	return nil, 0, nil
}

type fakeProductService struct {
	products []port.ProductDetails
	err      error
}

func (f *fakeProductService) GetProductsBatch(_ context.Context, _ []string) ([]port.ProductDetails, error) {
	return f.products, f.err
}

type fakeCustomerService struct {
	exists bool
	err    error
}

func (f *fakeCustomerService) Exists(_ context.Context, _ string) (bool, error) {
	return f.exists, f.err
}

func testProducts() []port.ProductDetails {
	return []port.ProductDetails{
		{ID: "p-1", Name: "Keyboard", SKU: "KB-1", Price: d("15.00"), Stock: 100, MinimumStock: 10, IsActive: true},
		{ID: "p-2", Name: "Mouse", SKU: "MS-2", Price: d("10.00"), Stock: 200, MinimumStock: 20, IsActive: true},
	}
}

func newTestService(repo *fakeOrderRepo, products *fakeProductService, customers *fakeCustomerService) *OrderApplicationService {
	svc := NewOrderApplicationService(
		repo,
		products,
		customers,
		port.NoDiscount{},
		port.NoopLocker{},
		domain.PricingPolicy{
			TaxRate:               d("0.15"),
			FreeShippingThreshold: d("100.00"),
			FlatShippingFee:       d("10.00"),
		},
		time.Second,
		otel.Tracer("test"),
	)
	svc.now = func() time.Time { return testNow }
	return svc
}

func createRequest() *CreateOrderRequest {
	return &CreateOrderRequest{
		CustomerID: "c-1",
		Items: []ItemRequest{
			{ProductID: "p-1", Quantity: 2},
			{ProductID: "p-2", Quantity: 2},
		},
		ShippingAddress: AddressRequest{Line1: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"},
	}
}

// ---- CreateOrder ----

func TestCreateOrder_Success(t *testing.T) {
	repo := &fakeOrderRepo{}
	svc := newTestService(repo, &fakeProductService{products: testProducts()}, &fakeCustomerService{exists: true})

	resp, err := svc.CreateOrder(context.Background(), createRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, resp.Status)
	assert.True(t, d("50.00").Equal(resp.SubTotal))
	assert.True(t, d("7.50").Equal(resp.TaxAmount))
	assert.True(t, d("10.00").Equal(resp.ShippingCost))
	assert.True(t, d("67.50").Equal(resp.TotalAmount))
	assert.Equal(t, "Keyboard", resp.Items[0].ProductName, "item carries the product snapshot")

	require.NotNil(t, repo.created)
	require.Len(t, repo.createdEvents, 1)
	created, ok := repo.createdEvents[0].(domain.OrderCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, repo.created.ID, created.OrderID)
	assert.Len(t, created.Items, 2)
	assert.Equal(t, 2, created.Items[0].Quantity)
}

func TestCreateOrder_ValidationBeforeAnyIO(t *testing.T) {
	repo := &fakeOrderRepo{}
	svc := newTestService(repo, &fakeProductService{}, &fakeCustomerService{exists: true})

	_, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{CustomerID: "c-1"})
	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Nil(t, repo.created, "nothing may be persisted on validation failure")
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	repo := &fakeOrderRepo{}
	// 只返回 p-1，p-2 缺失
	svc := newTestService(repo, &fakeProductService{products: testProducts()[:1]}, &fakeCustomerService{exists: true})

	_, err := svc.CreateOrder(context.Background(), createRequest())
	require.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.Nil(t, repo.created)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	repo := &fakeOrderRepo{}
	products := testProducts()
	products[1].Stock = 1
	svc := newTestService(repo, &fakeProductService{products: products}, &fakeCustomerService{exists: true})

	_, err := svc.CreateOrder(context.Background(), createRequest())
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "p-2", stockErr.ProductID)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 2, stockErr.Requested)
	assert.Nil(t, repo.created, "whole order fails, no partial fulfilment")
}

func TestCreateOrder_InactiveProduct(t *testing.T) {
	repo := &fakeOrderRepo{}
	products := testProducts()
	products[0].IsActive = false
	svc := newTestService(repo, &fakeProductService{products: products}, &fakeCustomerService{exists: true})

	_, err := svc.CreateOrder(context.Background(), createRequest())
	var ruleErr *domain.BusinessRuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "product.inactive", ruleErr.Rule)
}

func TestCreateOrder_CustomerNotFound(t *testing.T) {
	repo := &fakeOrderRepo{}
	svc := newTestService(repo, &fakeProductService{products: testProducts()}, &fakeCustomerService{exists: false})

	_, err := svc.CreateOrder(context.Background(), createRequest())
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)
	assert.Nil(t, repo.created)
}

func TestCreateOrder_CustomerServiceDownFailsOpen(t *testing.T) {
	repo := &fakeOrderRepo{}
	customers := &fakeCustomerService{err: &domain.UnavailableError{Service: "customer-service"}}
	svc := newTestService(repo, &fakeProductService{products: testProducts()}, customers)

	_, err := svc.CreateOrder(context.Background(), createRequest())
	require.NoError(t, err, "order creation must not depend on the auxiliary customer check")
	assert.NotNil(t, repo.created)
}

func TestCreateOrder_ProductServiceTimeout(t *testing.T) {
	repo := &fakeOrderRepo{}
	products := &fakeProductService{err: context.DeadlineExceeded}
	svc := newTestService(repo, products, &fakeCustomerService{exists: true})

	_, err := svc.CreateOrder(context.Background(), createRequest())
	var unavailable *domain.UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "product-service", unavailable.Service)
}

// ---- UpdateOrder ----

func pendingStoredOrder(t *testing.T) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder("o-1", "c-1", []domain.OrderItem{
		{ID: "i-1", ProductID: "p-1", ProductName: "Keyboard", ProductSKU: "KB-1", Quantity: 2, UnitPrice: d("15.00")},
		{ID: "i-2", ProductID: "p-2", ProductName: "Mouse", ProductSKU: "MS-2", Quantity: 2, UnitPrice: d("10.00")},
	}, domain.ShippingAddress{Line1: "1 Main St"}, "", testNow)
	require.NoError(t, err)
	order.RecalculateTotals(domain.PricingPolicy{
		TaxRate:               d("0.15"),
		FreeShippingThreshold: d("100.00"),
		FlatShippingFee:       d("10.00"),
	})
	return order
}

func TestUpdateOrder_RejectedWhenNotPending(t *testing.T) {
	for _, status := range []domain.Status{domain.StatusConfirmed, domain.StatusShipped, domain.StatusDelivered, domain.StatusCancelled} {
		order := pendingStoredOrder(t)
		order.Status = status
		repo := &fakeOrderRepo{stored: order}
		svc := newTestService(repo, &fakeProductService{products: testProducts()}, &fakeCustomerService{exists: true})

		notes := "new notes"
		_, err := svc.UpdateOrder(context.Background(), "o-1", &UpdateOrderRequest{Notes: &notes})
		var ruleErr *domain.BusinessRuleError
		require.ErrorAs(t, err, &ruleErr, "status %s", status)
		assert.Equal(t, "order.immutable", ruleErr.Rule)
		assert.Nil(t, repo.updated)
	}
}

func TestUpdateOrder_NotFound(t *testing.T) {
	repo := &fakeOrderRepo{}
	svc := newTestService(repo, &fakeProductService{}, &fakeCustomerService{exists: true})

	_, err := svc.UpdateOrder(context.Background(), "missing", &UpdateOrderRequest{})
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestUpdateOrder_ItemsRecomputeShipping(t *testing.T) {
	repo := &fakeOrderRepo{stored: pendingStoredOrder(t)}
	svc := newTestService(repo, &fakeProductService{products: testProducts()}, &fakeCustomerService{exists: true})

	// 7 × 15.00 = 105.00，跨过免运费阈值
	resp, err := svc.UpdateOrder(context.Background(), "o-1", &UpdateOrderRequest{
		Items: []ItemRequest{{ProductID: "p-1", Quantity: 7}},
	})
	require.NoError(t, err)

	assert.True(t, d("105.00").Equal(resp.SubTotal))
	assert.True(t, resp.ShippingCost.IsZero(), "shipping must be recomputed from the new subtotal")
	assert.True(t, d("15.75").Equal(resp.TaxAmount))
	assert.True(t, d("120.75").Equal(resp.TotalAmount))
	require.Len(t, resp.Items, 1, "absent product lines are removed")
}

func TestUpdateOrder_StatusTransitionPublishesEvent(t *testing.T) {
	repo := &fakeOrderRepo{stored: pendingStoredOrder(t)}
	svc := newTestService(repo, &fakeProductService{products: testProducts()}, &fakeCustomerService{exists: true})

	confirmed := domain.StatusConfirmed
	resp, err := svc.UpdateOrder(context.Background(), "o-1", &UpdateOrderRequest{Status: &confirmed})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, resp.Status)

	require.Len(t, repo.updatedEvents, 1)
	evt, ok := repo.updatedEvents[0].(domain.OrderStatusUpdatedEvent)
	require.True(t, ok)
	assert.Equal(t, domain.StatusPending, evt.PreviousStatus)
	assert.Equal(t, domain.StatusConfirmed, evt.NewStatus)
}

func TestUpdateOrder_VersionConflict(t *testing.T) {
	repo := &fakeOrderRepo{stored: pendingStoredOrder(t), updateErr: domain.ErrVersionConflict}
	svc := newTestService(repo, &fakeProductService{products: testProducts()}, &fakeCustomerService{exists: true})

	notes := "racing update"
	_, err := svc.UpdateOrder(context.Background(), "o-1", &UpdateOrderRequest{Notes: &notes})
	require.ErrorIs(t, err, domain.ErrVersionConflict)
}

// ---- ChangeOrderStatus ----

func TestChangeOrderStatus_CancellationEmitsRestockEvent(t *testing.T) {
	order := pendingStoredOrder(t)
	order.Status = domain.StatusConfirmed
	repo := &fakeOrderRepo{stored: order}
	svc := newTestService(repo, &fakeProductService{}, &fakeCustomerService{exists: true})

	resp, err := svc.ChangeOrderStatus(context.Background(), "o-1", &ChangeStatusRequest{
		Status: domain.StatusCancelled,
		Reason: "customer request",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, resp.Status)

	require.Len(t, repo.updatedEvents, 2)
	cancelled, ok := repo.updatedEvents[1].(domain.OrderCancelledEvent)
	require.True(t, ok)
	assert.Len(t, cancelled.Items, 2, "cancellation carries the lines for stock restore")
	assert.Equal(t, "customer request", cancelled.Reason)
}

func TestChangeOrderStatus_InvalidTransition(t *testing.T) {
	repo := &fakeOrderRepo{stored: pendingStoredOrder(t)}
	svc := newTestService(repo, &fakeProductService{}, &fakeCustomerService{exists: true})

	_, err := svc.ChangeOrderStatus(context.Background(), "o-1", &ChangeStatusRequest{Status: domain.StatusDelivered})
	var stateErr *domain.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Nil(t, repo.updated)
}

// ---- DeleteOrder ----

func TestDeleteOrder_PendingOnly(t *testing.T) {
	repo := &fakeOrderRepo{stored: pendingStoredOrder(t)}
	svc := newTestService(repo, &fakeProductService{}, &fakeCustomerService{exists: true})

	require.NoError(t, svc.DeleteOrder(context.Background(), "o-1"))
	require.NotNil(t, repo.deleted)
	require.Len(t, repo.deletedEvents, 1)
	cancelled, ok := repo.deletedEvents[0].(domain.OrderCancelledEvent)
	require.True(t, ok)
	assert.Equal(t, "order deleted", cancelled.Reason)
	assert.Len(t, cancelled.Items, 2)
}

func TestDeleteOrder_RejectedWhenNotPending(t *testing.T) {
	order := pendingStoredOrder(t)
	order.Status = domain.StatusShipped
	repo := &fakeOrderRepo{stored: order}
	svc := newTestService(repo, &fakeProductService{}, &fakeCustomerService{exists: true})

	err := svc.DeleteOrder(context.Background(), "o-1")
	var ruleErr *domain.BusinessRuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Nil(t, repo.deleted)
}

// ---- ListOrders ----

func TestListOrders_ClampsAndValidates(t *testing.T) {
	repo := &fakeOrderRepo{}
	svc := newTestService(repo, &fakeProductService{}, &fakeCustomerService{exists: true})

	resp, err := svc.ListOrders(context.Background(), &ListOrdersRequest{Page: -1, PageSize: 9999})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 20, resp.PageSize)

	_, err = svc.ListOrders(context.Background(), &ListOrdersRequest{Status: "ARCHIVED"})
	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
}
