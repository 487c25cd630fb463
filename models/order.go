package models

import "time"

type PaymentMethod string

const (
	PaymentCreditCard   PaymentMethod = "credit-card"
	PaymentPaypal       PaymentMethod = "paypal"
	PaymentBankTransfer PaymentMethod = "bank-transfer"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCreditCard, PaymentPaypal, PaymentBankTransfer:
		return true
	}
	return false
}

type OrderStatus string

const (
	StatusPending    OrderStatus = "Pending"
	StatusProcessing OrderStatus = "Processing"
	StatusCompleted  OrderStatus = "Completed"
	StatusCancelled  OrderStatus = "Cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// OrderItem carries a point-in-time copy of the product's descriptive
// fields. Catalog edits or deletions after purchase never touch it.
type OrderItem struct {
	ProductID string  `json:"product" bson:"product"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	Name      string  `json:"name" bson:"name"`
	Category  string  `json:"category" bson:"category"`
	Price     float64 `json:"price" bson:"price"`
	Images    []Image `json:"images" bson:"images"`
}

type Order struct {
	OrderID       string        `json:"orderid" bson:"orderid"`
	UserID        string        `json:"userid" bson:"userid"`
	Items         []OrderItem   `json:"products" bson:"products"`
	PaymentMethod PaymentMethod `json:"paymentMethod" bson:"payment_method"`
	Total         float64       `json:"totalAmount" bson:"total"`
	Status        OrderStatus   `json:"status" bson:"status"`
	PurchasedAt   time.Time     `json:"purchaseDate" bson:"purchased_at"`
}
