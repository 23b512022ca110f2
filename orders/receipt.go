package orders

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"verdant/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

var receiptSecret = func() string {
	if s := os.Getenv("RECEIPT_HMAC_SECRET"); s != "" {
		return s
	}
	return "dev_only_receipt_secret"
}()

// receiptPayload returns a signed payload string: orderID|customerID|timestamp|signature
func receiptPayload(orderID, customerID string) string {
	data := fmt.Sprintf("%s|%s|%d", orderID, customerID, time.Now().Unix())

	h := hmac.New(sha256.New, []byte(receiptSecret))
	h.Write([]byte(data))
	sig := base64.StdEncoding.EncodeToString(h.Sum(nil))

	return fmt.Sprintf("%s|%s", data, sig)
}

// PrintReceipt renders a PDF receipt for an order, with a signed QR code the
// farmer can scan at handover.
func PrintReceipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	order, err := loadOrderFor(ctx, ps.ByName("orderid"), userID)
	if err != nil {
		writeOrderError(w, err)
		return
	}

	qrPNG, err := qrcode.Encode(receiptPayload(order.OrderID, order.CustomerID), qrcode.Medium, 256)
	if err != nil {
		log.Println("receipt QR error:", err)
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Order Receipt")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Order: %s", order.OrderID))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Status: %s", order.Status))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Placed: %s", order.CreatedAt.Format("02 Jan 2006 15:04")))
	pdf.Ln(8)
	if order.ShippingAddress != "" {
		pdf.Cell(0, 10, fmt.Sprintf("Deliver to: %s", order.ShippingAddress))
		pdf.Ln(8)
	}
	pdf.Ln(4)

	for _, item := range order.Items {
		pdf.Cell(0, 8, fmt.Sprintf("%s  x%d %s  Rs %.2f", item.ProductName, item.Quantity, item.Unit, item.Total))
		pdf.Ln(7)
	}
	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Total: Rs %.2f (%s)", order.TotalAmount, order.PaymentMethod))

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 40, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		log.Println("receipt PDF error:", err)
		http.Error(w, "Failed to generate PDF", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=receipt-"+order.OrderID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
