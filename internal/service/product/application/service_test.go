package application

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordermesh/internal/service/product/domain"
)

type fakeProductRepo struct {
	products map[string]*domain.Product
	adjusted []string // "id:delta" 记录调用顺序
	failFor  string
}

func newFakeRepo(products ...*domain.Product) *fakeProductRepo {
	byID := make(map[string]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &fakeProductRepo{products: byID}
}

func (f *fakeProductRepo) FindByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeProductRepo) FindByIDs(_ context.Context, ids []string) ([]*domain.Product, error) {
	var out []*domain.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) AdjustStock(_ context.Context, id string, delta int) (*domain.Product, error) {
	if id == f.failFor {
		return nil, errors.New("db unavailable")
	}
	p, ok := f.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	p.Stock += delta
	p.Version++
	return p, nil
}

func (f *fakeProductRepo) Save(_ context.Context, p *domain.Product) error {
	f.products[p.ID] = p
	return nil
}

func demoProduct(id string, stock, minimum int) *domain.Product {
	return &domain.Product{
		ID: id, Name: "Demo " + id, SKU: "SKU-" + id,
		Price: decimal.RequireFromString("9.99"),
		Stock: stock, MinimumStock: minimum, IsActive: true, Version: 1,
	}
}

func TestGetProductsBatch_ReturnsOnlyExisting(t *testing.T) {
	repo := newFakeRepo(demoProduct("p-1", 10, 2))
	svc := NewProductApplicationService(repo)

	views, err := svc.GetProductsBatch(context.Background(), []string{"p-1", "p-missing"})
	require.NoError(t, err)
	require.Len(t, views, 1, "missing ids are not an error, the caller compares counts")
	assert.Equal(t, "p-1", views[0].ID)
	assert.Equal(t, 10, views[0].Stock)
}

func TestApplyOrderCreated_DecrementsPerLine(t *testing.T) {
	repo := newFakeRepo(demoProduct("p-1", 10, 2), demoProduct("p-2", 5, 1))
	svc := NewProductApplicationService(repo)

	err := svc.ApplyOrderCreated(context.Background(), OrderCreatedMessage{
		EventID: "e-1",
		OrderID: "o-1",
		Items: []StockMovementItem{
			{ProductID: "p-1", Quantity: 3},
			{ProductID: "p-2", Quantity: 5},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, repo.products["p-1"].Stock)
	assert.Equal(t, 0, repo.products["p-2"].Stock)
}

func TestApplyOrderCreated_AllowsNegativeStock(t *testing.T) {
	repo := newFakeRepo(demoProduct("p-1", 2, 1))
	svc := NewProductApplicationService(repo)

	err := svc.ApplyOrderCreated(context.Background(), OrderCreatedMessage{
		EventID: "e-1",
		OrderID: "o-1",
		Items:   []StockMovementItem{{ProductID: "p-1", Quantity: 5}},
	})
	require.NoError(t, err, "oversell is recorded, not rejected")
	assert.Equal(t, -3, repo.products["p-1"].Stock)
}

func TestApplyOrderCreated_PropagatesRepoFailure(t *testing.T) {
	repo := newFakeRepo(demoProduct("p-1", 10, 2))
	repo.failFor = "p-1"
	svc := NewProductApplicationService(repo)

	err := svc.ApplyOrderCreated(context.Background(), OrderCreatedMessage{
		EventID: "e-1",
		Items:   []StockMovementItem{{ProductID: "p-1", Quantity: 1}},
	})
	require.Error(t, err, "failure must bubble up so the consumer can retry")
}

func TestApplyOrderCancelled_RestoresStock(t *testing.T) {
	repo := newFakeRepo(demoProduct("p-1", 7, 2))
	svc := NewProductApplicationService(repo)

	err := svc.ApplyOrderCancelled(context.Background(), OrderCancelledMessage{
		EventID: "e-2",
		OrderID: "o-1",
		Items:   []StockMovementItem{{ProductID: "p-1", Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, repo.products["p-1"].Stock)
}
