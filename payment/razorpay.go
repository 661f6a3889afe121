package payment

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
)

// placeholder value shipped in the sample .env
const placeholderKeyID = "your_razorpay_key_id"

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string // 空的就用 SDK 預設的 https://api.razorpay.com
}

// Razorpay wraps the official SDK client for the Orders API.
type Razorpay struct {
	cfg    RazorpayConfig
	client *razorpay.Client
}

// New returns nil (payments disabled) when the keys are missing or still
// the placeholder.
func New(cfg RazorpayConfig) Gateway {
	if cfg.KeyID == "" || cfg.KeySecret == "" || cfg.KeyID == placeholderKeyID {
		return nil
	}
	return NewRazorpay(cfg, NewHTTPClient(15*time.Second))
}

// NewRazorpay 的 httpClient 會換掉 SDK 內建的，呼叫紀錄才進得了 zap
func NewRazorpay(cfg RazorpayConfig, httpClient *http.Client) *Razorpay {
	rc := razorpay.NewClient(cfg.KeyID, cfg.KeySecret)
	if httpClient != nil {
		rc.Order.Request.HTTPClient = httpClient
	}
	if base := strings.TrimRight(cfg.BaseURL, "/"); base != "" {
		rc.Order.Request.BaseURL = base
	}
	return &Razorpay{cfg: cfg, client: rc}
}

func (r *Razorpay) KeyID() string { return r.cfg.KeyID }

func (r *Razorpay) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifySignature(r.cfg.KeySecret, orderID, paymentID, signature)
}

// CreateOrder 的 SDK 不吃 context，只能在送出前檢查一次
func (r *Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}

	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		notes := make(map[string]interface{}, len(req.Notes))
		for k, v := range req.Notes {
			notes[k] = v
		}
		data["notes"] = notes
	}

	body, err := r.client.Order.Create(data, nil)
	if err != nil {
		return Order{}, fmt.Errorf("razorpay: create order: %w", err)
	}
	return orderFrom(body)
}

// orderFrom 把 SDK 回的 map 轉成 Order；JSON 數字解出來是 float64
func orderFrom(body map[string]interface{}) (Order, error) {
	var o Order
	o.ID, _ = body["id"].(string)
	if o.ID == "" {
		return Order{}, fmt.Errorf("razorpay: order without id")
	}
	if amount, ok := body["amount"].(float64); ok {
		o.Amount = int64(amount)
	}
	o.Currency, _ = body["currency"].(string)
	o.Receipt, _ = body["receipt"].(string)
	o.Status, _ = body["status"].(string)
	return o, nil
}
