package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignature_KnownVector(t *testing.T) {
	// echo -n "order_1|pay_1" | openssl dgst -sha256 -hmac secret
	sig := Signature("secret", "order_1", "pay_1")
	assert.Equal(t, "52115a0d3400de9e86aade1f1b6eba9e8974604f4e267a9e9a16633a4c8dd2cb", sig)
	assert.True(t, VerifySignature("secret", "order_1", "pay_1", sig))

	assert.False(t, VerifySignature("secret", "order_1", "pay_2", sig))
	assert.False(t, VerifySignature("other", "order_1", "pay_1", sig))
	assert.False(t, VerifySignature("secret", "order_1", "pay_1", ""))
	// 大小寫不同也算錯（逐 byte 比對）
	assert.False(t, VerifySignature("secret", "order_1", "pay_1", upper(sig)))
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'f' {
			b[i] = c - 32
		}
	}
	return string(b)
}

func TestNew_DisabledWithoutKeys(t *testing.T) {
	assert.Nil(t, New(RazorpayConfig{}))
	assert.Nil(t, New(RazorpayConfig{KeyID: "rzp_test", KeySecret: ""}))
	assert.Nil(t, New(RazorpayConfig{KeyID: "your_razorpay_key_id", KeySecret: "x"}))

	g := New(RazorpayConfig{KeyID: "rzp_test", KeySecret: "x"})
	require.NotNil(t, g)
	assert.Equal(t, "rzp_test", g.KeyID())
}

func TestRazorpay_CreateOrder(t *testing.T) {
	var got struct {
		Amount   int64             `json:"amount"`
		Currency string            `json:"currency"`
		Receipt  string            `json:"receipt"`
		Notes    map[string]string `json:"notes"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/orders"), r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test", user)
		assert.Equal(t, "sek", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "order_ABC", "amount": got.Amount, "currency": got.Currency, "receipt": got.Receipt, "status": "created",
		})
	}))
	defer srv.Close()

	rp := NewRazorpay(RazorpayConfig{KeyID: "rzp_test", KeySecret: "sek", BaseURL: srv.URL + "/"}, NewHTTPClient(0))
	o, err := rp.CreateOrder(context.Background(), OrderRequest{
		Amount: 15000, Currency: "INR", Receipt: "evt_1_usr_2", Notes: map[string]string{"eventId": "e1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "order_ABC", o.ID)
	assert.Equal(t, int64(15000), o.Amount)
	assert.Equal(t, "INR", o.Currency)
	assert.Equal(t, "created", o.Status)
	assert.Equal(t, "evt_1_usr_2", got.Receipt)
	assert.Equal(t, "e1", got.Notes["eventId"])

	sig := Signature("sek", "order_ABC", "pay_1")
	assert.True(t, rp.VerifySignature("order_ABC", "pay_1", sig))
}

func TestRazorpay_CreateOrderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	}))
	defer srv.Close()

	rp := NewRazorpay(RazorpayConfig{KeyID: "k", KeySecret: "s", BaseURL: srv.URL}, srv.Client())
	_, err := rp.CreateOrder(context.Background(), OrderRequest{Amount: 1, Currency: "INR"})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "razorpay:"), err.Error())
}

func TestRazorpay_CreateOrderCanceledContext(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rp := NewRazorpay(RazorpayConfig{KeyID: "k", KeySecret: "s", BaseURL: srv.URL}, srv.Client())
	_, err := rp.CreateOrder(ctx, OrderRequest{Amount: 100, Currency: "INR"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
