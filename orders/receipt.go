package orders

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"

	"merx/middleware"
	"merx/models"
	"merx/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// receiptPayload builds the signed QR payload: orderid|userid|signature.
func (s *Service) receiptPayload(order models.Order) string {
	data := fmt.Sprintf("%s|%s", order.OrderID, order.UserID)
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(data))
	sig := base64.StdEncoding.EncodeToString(h.Sum(nil))
	return fmt.Sprintf("%s|%s", data, sig)
}

// OrderReceipt handles GET /api/receipts/:orderid. Only the purchaser
// or an admin may download a receipt.
func (s *Service) OrderReceipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	orderID := ps.ByName("orderid")

	var order models.Order
	err := s.db.Orders.FindOne(r.Context(), bson.M{"orderid": orderID}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Order not found")
		return
	}
	if err != nil {
		log.Printf("orders: receipt lookup failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching transaction")
		return
	}

	callerID := middleware.UserIDFromContext(r.Context())
	callerRole := middleware.RoleFromContext(r.Context())
	if callerID != order.UserID && callerRole != string(models.RoleAdmin) {
		utils.RespondWithError(w, http.StatusForbidden, "Admin privileges required")
		return
	}

	qrPNG, err := qrcode.Encode(s.receiptPayload(order), qrcode.Medium, 256)
	if err != nil {
		log.Printf("orders: qr encode failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate receipt")
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Order Receipt")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Order ID: %s", order.OrderID))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Date: %s", order.PurchasedAt.Format("2006-01-02 15:04")))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Payment: %s", order.PaymentMethod))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Status: %s", order.Status))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(80, 8, "Item")
	pdf.Cell(25, 8, "Qty")
	pdf.Cell(30, 8, "Price")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 12)
	for _, item := range order.Items {
		pdf.Cell(80, 8, item.Name)
		pdf.Cell(25, 8, fmt.Sprintf("%d", item.Quantity))
		pdf.Cell(30, 8, fmt.Sprintf("%.2f", item.Price))
		pdf.Ln(8)
	}
	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Total: %.2f", order.Total))

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 40, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		log.Printf("orders: pdf render failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate receipt")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=receipt-"+order.OrderID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
