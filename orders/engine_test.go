package orders

import (
	"testing"

	"merx/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func catalogLookup(products map[string]models.Product) func(string) (models.Product, error) {
	return func(id string) (models.Product, error) {
		p, ok := products[id]
		if !ok {
			return models.Product{}, mongo.ErrNoDocuments
		}
		return p, nil
	}
}

func TestPurchaseRequestValidate(t *testing.T) {
	valid := PurchaseRequest{
		Products:      []PurchaseLine{{ProductID: "p1", Quantity: 1}},
		PaymentMethod: "credit-card",
		UserID:        "u1",
	}

	tests := []struct {
		name    string
		mutate  func(*PurchaseRequest)
		wantErr error
	}{
		{"ok", func(r *PurchaseRequest) {}, nil},
		{"empty product list", func(r *PurchaseRequest) { r.Products = nil }, ErrNoProducts},
		{"missing payment method", func(r *PurchaseRequest) { r.PaymentMethod = "" }, ErrNoPaymentMethod},
		{"unknown payment method", func(r *PurchaseRequest) { r.PaymentMethod = "cash" }, ErrBadPaymentMethod},
		{"missing user id", func(r *PurchaseRequest) { r.UserID = "" }, ErrNoUserID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			req.Products = append([]PurchaseLine(nil), valid.Products...)
			tt.mutate(&req)
			assert.Equal(t, tt.wantErr, req.Validate())
		})
	}
}

func TestValidationOrder(t *testing.T) {
	// An empty product list wins over every other missing field.
	req := PurchaseRequest{}
	assert.Equal(t, ErrNoProducts, req.Validate())

	// With products present, payment method is checked before the user id.
	req.Products = []PurchaseLine{{ProductID: "p1", Quantity: 1}}
	assert.Equal(t, ErrNoPaymentMethod, req.Validate())
}

func TestBuildItemsTotal(t *testing.T) {
	lookup := catalogLookup(map[string]models.Product{
		"p1": {ProductID: "p1", Name: "Widget", Category: "tools", Price: 100.00},
		"p2": {ProductID: "p2", Name: "Gadget", Category: "toys", Price: 250.00},
	})

	items, total, err := buildItems([]PurchaseLine{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
	}, lookup)

	require.NoError(t, err)
	assert.Equal(t, 450.00, total)
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 1, items[1].Quantity)
	assert.Equal(t, "Widget", items[0].Name)
	assert.Equal(t, "tools", items[0].Category)
	assert.Equal(t, 100.00, items[0].Price)
}

func TestBuildItemsPreservesLineOrder(t *testing.T) {
	lookup := catalogLookup(map[string]models.Product{
		"a": {ProductID: "a", Price: 1},
		"b": {ProductID: "b", Price: 2},
		"c": {ProductID: "c", Price: 3},
	})

	items, _, err := buildItems([]PurchaseLine{
		{ProductID: "c", Quantity: 1},
		{ProductID: "a", Quantity: 1},
		{ProductID: "b", Quantity: 1},
	}, lookup)

	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"},
		[]string{items[0].ProductID, items[1].ProductID, items[2].ProductID})
}

func TestBuildItemsBadLines(t *testing.T) {
	lookup := catalogLookup(map[string]models.Product{
		"p1": {ProductID: "p1", Price: 10},
	})

	tests := []struct {
		name  string
		lines []PurchaseLine
	}{
		{"missing product id", []PurchaseLine{{Quantity: 1}}},
		{"zero quantity", []PurchaseLine{{ProductID: "p1", Quantity: 0}}},
		{"negative quantity", []PurchaseLine{{ProductID: "p1", Quantity: -2}}},
		{"bad line after good line", []PurchaseLine{{ProductID: "p1", Quantity: 1}, {ProductID: "p1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := buildItems(tt.lines, lookup)
			assert.Equal(t, ErrBadLine, err)
			assert.Nil(t, items)
			assert.Zero(t, total)
		})
	}
}

func TestBuildItemsUnknownProduct(t *testing.T) {
	lookup := catalogLookup(map[string]models.Product{
		"p1": {ProductID: "p1", Price: 10},
	})

	items, total, err := buildItems([]PurchaseLine{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "ghost", Quantity: 3},
	}, lookup)

	require.Error(t, err)
	var notFound *ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost", notFound.ProductID)
	assert.Equal(t, "Product not found: ghost", err.Error())
	assert.Nil(t, items)
	assert.Zero(t, total)
}

func TestSnapshotIndependentOfCatalog(t *testing.T) {
	product := models.Product{
		ProductID: "p1",
		Name:      "Original",
		Category:  "books",
		Price:     100.00,
		Images:    []models.Image{{PublicID: "img1", URL: "https://cdn/img1"}},
	}
	catalog := map[string]models.Product{"p1": product}

	items, total, err := buildItems([]PurchaseLine{{ProductID: "p1", Quantity: 2}}, catalogLookup(catalog))
	require.NoError(t, err)
	require.Equal(t, 200.00, total)

	// Simulate a later catalog edit, including in-place image mutation.
	product.Name = "Renamed"
	product.Price = 150.00
	product.Images[0].URL = "https://cdn/replaced"
	catalog["p1"] = product

	assert.Equal(t, "Original", items[0].Name)
	assert.Equal(t, 100.00, items[0].Price)
	assert.Equal(t, "https://cdn/img1", items[0].Images[0].URL)
}

func TestSortByHistory(t *testing.T) {
	history := []string{"o3", "o1", "o2"}
	orders := []models.Order{
		{OrderID: "o1"}, {OrderID: "o2"}, {OrderID: "o3"},
	}

	sorted := sortByHistory(orders, history)

	assert.Equal(t, []string{"o3", "o1", "o2"},
		[]string{sorted[0].OrderID, sorted[1].OrderID, sorted[2].OrderID})
	// Input untouched.
	assert.Equal(t, "o1", orders[0].OrderID)
}
