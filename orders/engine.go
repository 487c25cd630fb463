package orders

import (
	"errors"
	"fmt"

	"merx/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// PurchaseLine is one requested (product, quantity) pair.
type PurchaseLine struct {
	ProductID string `json:"product"`
	Quantity  int    `json:"quantity"`
}

// PurchaseRequest is the order-creation payload.
type PurchaseRequest struct {
	Products      []PurchaseLine `json:"products"`
	PaymentMethod string         `json:"paymentMethod"`
	UserID        string         `json:"userId"`
}

var (
	ErrNoProducts       = errors.New("At least one product is required")
	ErrNoPaymentMethod  = errors.New("Payment method is required")
	ErrBadPaymentMethod = errors.New("Invalid payment method")
	ErrNoUserID         = errors.New("User ID is required")
	ErrBadLine          = errors.New("Each product requires a productId and quantity")
)

// ProductNotFoundError identifies which line's product reference failed to
// resolve.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("Product not found: %s", e.ProductID)
}

// Validate runs the request-shape checks that need no database access, in
// the order callers report them.
func (r PurchaseRequest) Validate() error {
	if len(r.Products) == 0 {
		return ErrNoProducts
	}
	if r.PaymentMethod == "" {
		return ErrNoPaymentMethod
	}
	if !models.PaymentMethod(r.PaymentMethod).Valid() {
		return ErrBadPaymentMethod
	}
	if r.UserID == "" {
		return ErrNoUserID
	}
	return nil
}

// buildItems resolves every line through lookup and snapshots the product's
// descriptive fields at this moment, accumulating the order total. Any
// failure aborts the whole order; there are no partial results. lookup
// returns mongo.ErrNoDocuments for an absent product.
func buildItems(lines []PurchaseLine, lookup func(id string) (models.Product, error)) ([]models.OrderItem, float64, error) {
	items := make([]models.OrderItem, 0, len(lines))
	var total float64

	for _, line := range lines {
		if line.ProductID == "" || line.Quantity < 1 {
			return nil, 0, ErrBadLine
		}

		product, err := lookup(line.ProductID)
		if err == mongo.ErrNoDocuments {
			return nil, 0, &ProductNotFoundError{ProductID: line.ProductID}
		}
		if err != nil {
			return nil, 0, err
		}

		total += product.Price * float64(line.Quantity)

		// Copy the image list so later catalog edits can't reach into the
		// order's snapshot through the shared slice.
		images := append([]models.Image(nil), product.Images...)
		items = append(items, models.OrderItem{
			ProductID: product.ProductID,
			Quantity:  line.Quantity,
			Name:      product.Name,
			Category:  product.Category,
			Price:     product.Price,
			Images:    images,
		})
	}

	return items, total, nil
}
