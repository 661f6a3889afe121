package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	rzputils "github.com/razorpay/razorpay-go/utils"
)

// OrderRequest is what the orchestrator asks the gateway to create.
type OrderRequest struct {
	Amount   int64  // smallest currency unit (paise)
	Currency string
	Receipt  string
	Notes    map[string]string
}

type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
	Status   string `json:"status,omitempty"`
}

// Gateway is the payment provider. A nil Gateway means payments are not
// configured and paid registration is unavailable.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)
	// VerifySignature checks the checkout callback signature for orderID|paymentID.
	VerifySignature(orderID, paymentID, signature string) bool
	// KeyID is the public key the frontend checkout needs.
	KeyID() string
}

// Signature = hex(HMAC-SHA256(secret, orderID + "|" + paymentID))，給測試和假 gateway 簽名用
func Signature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature 交給 SDK 的 utils 驗（constant time）
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	return rzputils.VerifyPaymentSignature(map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}, signature, secret)
}
