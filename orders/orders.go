package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"merx/db"
	"merx/models"
	"merx/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Service is the order engine: it validates purchase requests, snapshots
// catalog state into immutable line items, and walks orders through the
// status machine.
type Service struct {
	db     *db.Mongo
	policy StatusPolicy
	secret []byte // signs receipt QR payloads
}

func NewService(mongo *db.Mongo, policy StatusPolicy, secret []byte) *Service {
	return &Service{db: mongo, policy: policy, secret: secret}
}

// CreateOrder handles POST /api/orders. All validation happens before any
// write; a failed request never leaves a partial order behind.
func (s *Service) CreateOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	if err := req.Validate(); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var user models.User
	err := s.db.Users.FindOne(r.Context(), bson.M{"userid": req.UserID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		log.Printf("orders: user lookup failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error processing transaction")
		return
	}

	items, total, err := buildItems(req.Products, func(id string) (models.Product, error) {
		var product models.Product
		err := s.db.Products.FindOne(r.Context(), bson.M{"productid": id}).Decode(&product)
		return product, err
	})
	if err != nil {
		var notFound *ProductNotFoundError
		switch {
		case errors.As(err, &notFound):
			utils.RespondWithError(w, http.StatusNotFound, notFound.Error())
		case err == ErrBadLine:
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("orders: product lookup failed: %v", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Error processing transaction")
		}
		return
	}

	order := models.Order{
		OrderID:       utils.NewID("o"),
		UserID:        user.UserID,
		Items:         items,
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
		Total:         total,
		Status:        models.StatusPending,
		PurchasedAt:   time.Now(),
	}

	if err := s.persistOrder(r.Context(), order); err != nil {
		log.Printf("orders: persist failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error processing transaction")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"message":     "Transaction created successfully",
		"transaction": order,
	})
}

// persistOrder writes the order and appends it to the purchaser's history.
// Both writes run inside one Mongo transaction when the deployment supports
// sessions (replica set); on standalone servers they fall back to the
// original sequential behaviour, where a crash between the two writes
// leaves an order unlinked from the history index.
func (s *Service) persistOrder(ctx context.Context, order models.Order) error {
	session, err := s.db.Client.StartSession()
	if err == nil {
		defer session.EndSession(ctx)
		_, txErr := session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
			if _, err := s.db.Orders.InsertOne(sc, order); err != nil {
				return nil, err
			}
			_, err := s.db.Users.UpdateOne(sc,
				bson.M{"userid": order.UserID},
				bson.M{"$push": bson.M{"orders": order.OrderID}},
			)
			return nil, err
		})
		if txErr == nil {
			return nil
		}
		if !transactionsUnsupported(txErr) {
			return txErr
		}
		// Standalone deployment: fall through to sequential writes.
	}

	if _, err := s.db.Orders.InsertOne(ctx, order); err != nil {
		return err
	}
	_, err = s.db.Users.UpdateOne(ctx,
		bson.M{"userid": order.UserID},
		bson.M{"$push": bson.M{"orders": order.OrderID}},
	)
	return err
}

func transactionsUnsupported(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Transaction numbers are only allowed") ||
		strings.Contains(msg, "transactions are not supported")
}

// GetUserOrders handles GET /api/orders/:userid. The stored snapshots
// are authoritative; nothing is re-joined against the current catalog.
func (s *Service) GetUserOrders(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := ps.ByName("userid")

	var user models.User
	err := s.db.Users.FindOne(r.Context(), bson.M{"userid": userID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		log.Printf("orders: user lookup failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching transactions")
		return
	}

	orders := []models.Order{}
	if len(user.Orders) > 0 {
		cursor, err := s.db.Orders.Find(r.Context(), bson.M{"orderid": bson.M{"$in": user.Orders}})
		if err != nil {
			log.Printf("orders: history fetch failed: %v", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching transactions")
			return
		}
		if err := cursor.All(r.Context(), &orders); err != nil {
			log.Printf("orders: history decode failed: %v", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching transactions")
			return
		}
		orders = sortByHistory(orders, user.Orders)
	}

	utils.RespondWithJSON(w, http.StatusOK, orders)
}

// sortByHistory returns orders in the sequence the user's history list
// records them.
func sortByHistory(orders []models.Order, history []string) []models.Order {
	position := make(map[string]int, len(history))
	for i, id := range history {
		position[id] = i
	}
	sorted := make([]models.Order, len(orders))
	copy(sorted, orders)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if position[sorted[j].OrderID] < position[sorted[i].OrderID] {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	return sorted
}

// Purchaser is the slice of the user record the admin listing exposes
// alongside each order.
type Purchaser struct {
	UserID   string `json:"userid"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AdminOrder is an order with its purchaser resolved for display. User is
// nil when the account has been deleted since the purchase.
type AdminOrder struct {
	models.Order
	User *Purchaser `json:"user"`
}

// attachPurchasers joins each order to its purchaser. Orders whose user no
// longer exists keep a nil User; the order record itself is authoritative.
func attachPurchasers(orders []models.Order, users []models.User) []AdminOrder {
	byID := make(map[string]Purchaser, len(users))
	for _, u := range users {
		byID[u.UserID] = Purchaser{UserID: u.UserID, Username: u.Username, Email: u.Email}
	}

	out := make([]AdminOrder, len(orders))
	for i, order := range orders {
		out[i] = AdminOrder{Order: order}
		if p, ok := byID[order.UserID]; ok {
			out[i].User = &p
		}
	}
	return out
}

// GetAllOrders handles GET /api/orders (admin). Returns every order in the
// system, newest first, with the purchaser's username and email resolved
// through one batch user fetch.
func (s *Service) GetAllOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cursor, err := s.db.Orders.Find(r.Context(), bson.M{},
		options.Find().SetSort(bson.D{{Key: "purchased_at", Value: -1}}))
	if err != nil {
		log.Printf("orders: list error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching transactions")
		return
	}
	defer cursor.Close(r.Context())

	orders := []models.Order{}
	if err := cursor.All(r.Context(), &orders); err != nil {
		log.Printf("orders: decode error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching transactions")
		return
	}

	userIDs := make([]string, 0, len(orders))
	seen := make(map[string]bool, len(orders))
	for _, order := range orders {
		if !seen[order.UserID] {
			seen[order.UserID] = true
			userIDs = append(userIDs, order.UserID)
		}
	}

	users := []models.User{}
	if len(userIDs) > 0 {
		userCursor, err := s.db.Users.Find(r.Context(), bson.M{"userid": bson.M{"$in": userIDs}})
		if err != nil {
			log.Printf("orders: purchaser fetch failed: %v", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching transactions")
			return
		}
		if err := userCursor.All(r.Context(), &users); err != nil {
			log.Printf("orders: purchaser decode failed: %v", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching transactions")
			return
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, attachPurchasers(orders, users))
}

// UpdateOrderStatus handles PATCH /api/orders/:orderid/status. Status is
// the only mutable field of an order. Concurrent updates are last-write-
// wins; there is no version check.
func (s *Service) UpdateOrderStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	orderID := ps.ByName("orderid")

	var input struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	newStatus := models.OrderStatus(input.Status)
	if !newStatus.Valid() {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid status value")
		return
	}

	var order models.Order
	err := s.db.Orders.FindOne(r.Context(), bson.M{"orderid": orderID}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Order not found")
		return
	}
	if err != nil {
		log.Printf("orders: status lookup failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error updating transaction")
		return
	}

	if !s.policy.Allowed(order.Status, newStatus) {
		utils.RespondWithError(w, http.StatusBadRequest, "Status transition not allowed")
		return
	}

	if _, err := s.db.Orders.UpdateOne(r.Context(),
		bson.M{"orderid": orderID},
		bson.M{"$set": bson.M{"status": newStatus}},
	); err != nil {
		log.Printf("orders: status update failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error updating transaction")
		return
	}
	order.Status = newStatus

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message":     "Transaction updated successfully",
		"transaction": order,
	})
}
