package payment_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"toko-checkout/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePayPal serves the three endpoints the gateway uses.
type fakePayPal struct {
	tokenCalls    int32
	createBody    map[string]interface{}
	createStatus  int
	createReply   string
	captureStatus int
	captureReply  string
}

func (f *fakePayPal) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenCalls, 1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		f.createBody = map[string]interface{}{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f.createBody))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.createStatus)
		w.Write([]byte(f.createReply))
	})
	mux.HandleFunc("/v2/checkout/orders/PAY-1/capture", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.captureStatus)
		w.Write([]byte(f.captureReply))
	})
	return mux
}

func newGateway(t *testing.T, fake *fakePayPal) *payment.PayPalGateway {
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	return payment.NewPayPalGateway(payment.PayPalConfig{
		BaseURL:      srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
		Timeout:      2 * time.Second,
	}, nil)
}

const approvedOrder = `{"id":"PAY-1","status":"CREATED","links":[
	{"href":"https://paypal.test/self","rel":"self"},
	{"href":"https://paypal.test/approve?token=PAY-1","rel":"approve"}]}`

func TestPayPalGateway_CreateAuthorization(t *testing.T) {
	fake := &fakePayPal{createStatus: http.StatusCreated, createReply: approvedOrder}
	gw := newGateway(t, fake)

	auth, err := gw.CreateAuthorization(context.Background(), 155, "usd", "https://shop.test/return", "https://shop.test/cancel")
	require.NoError(t, err)
	assert.Equal(t, "PAY-1", auth.ProviderOrderID)
	assert.Equal(t, "https://paypal.test/approve?token=PAY-1", auth.ApprovalURL)

	assert.Equal(t, "CAPTURE", fake.createBody["intent"])
	units := fake.createBody["purchase_units"].([]interface{})
	amount := units[0].(map[string]interface{})["amount"].(map[string]interface{})
	assert.Equal(t, "155.00", amount["value"])
	assert.Equal(t, "USD", amount["currency_code"])
	appCtx := fake.createBody["application_context"].(map[string]interface{})
	assert.Equal(t, "PAY_NOW", appCtx["user_action"])
	assert.Equal(t, "https://shop.test/return", appCtx["return_url"])

	// The token is reused for the second call.
	_, err = gw.CreateAuthorization(context.Background(), 10, "USD", "https://shop.test/return", "https://shop.test/cancel")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.tokenCalls))
}

func TestPayPalGateway_CreateAuthorizationFailures(t *testing.T) {
	t.Run("provider rejection keeps message", func(t *testing.T) {
		fake := &fakePayPal{
			createStatus: http.StatusUnprocessableEntity,
			createReply:  `{"name":"UNPROCESSABLE_ENTITY","message":"The requested action could not be performed.","details":[{"issue":"CURRENCY_NOT_SUPPORTED","description":"Currency code is not supported."}]}`,
		}
		_, err := newGateway(t, fake).CreateAuthorization(context.Background(), 155, "XYZ", "https://r", "https://c")
		var perr *payment.Error
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, payment.OpCreate, perr.Op)
		assert.Equal(t, http.StatusUnprocessableEntity, perr.StatusCode)
		assert.Contains(t, perr.Message, "Currency code is not supported.")
	})

	t.Run("missing approval link", func(t *testing.T) {
		fake := &fakePayPal{createStatus: http.StatusCreated, createReply: `{"id":"PAY-1","status":"CREATED","links":[]}`}
		_, err := newGateway(t, fake).CreateAuthorization(context.Background(), 155, "USD", "https://r", "https://c")
		var perr *payment.Error
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, "provider returned no approval link", perr.Message)
	})

	t.Run("invalid arguments never reach provider", func(t *testing.T) {
		fake := &fakePayPal{}
		gw := newGateway(t, fake)
		_, err := gw.CreateAuthorization(context.Background(), 0, "USD", "https://r", "https://c")
		assert.Error(t, err)
		_, err = gw.CreateAuthorization(context.Background(), 10, "USD", "", "https://c")
		assert.Error(t, err)
		assert.Equal(t, int32(0), atomic.LoadInt32(&fake.tokenCalls))
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newGateway(t, &fakePayPal{}).CreateAuthorization(ctx, 10, "USD", "https://r", "https://c")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPayPalGateway_CaptureAuthorization(t *testing.T) {
	t.Run("completed", func(t *testing.T) {
		fake := &fakePayPal{
			captureStatus: http.StatusCreated,
			captureReply:  `{"id":"PAY-1","status":"COMPLETED","purchase_units":[{"payments":{"captures":[{"id":"CAP-9","status":"COMPLETED"}]}}]}`,
		}
		capture, err := newGateway(t, fake).CaptureAuthorization(context.Background(), "PAY-1")
		require.NoError(t, err)
		assert.True(t, capture.Completed())
		assert.Equal(t, "CAP-9", capture.CaptureID)
	})

	t.Run("pending is not an error", func(t *testing.T) {
		fake := &fakePayPal{captureStatus: http.StatusOK, captureReply: `{"id":"PAY-1","status":"PAYER_ACTION_REQUIRED"}`}
		capture, err := newGateway(t, fake).CaptureAuthorization(context.Background(), "PAY-1")
		require.NoError(t, err)
		assert.False(t, capture.Completed())
		assert.Equal(t, "PAYER_ACTION_REQUIRED", capture.Status)
	})

	t.Run("rejected", func(t *testing.T) {
		fake := &fakePayPal{captureStatus: http.StatusUnprocessableEntity, captureReply: `{"name":"UNPROCESSABLE_ENTITY","message":"Order already captured."}`}
		_, err := newGateway(t, fake).CaptureAuthorization(context.Background(), "PAY-1")
		var perr *payment.Error
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, payment.OpCapture, perr.Op)
		assert.Equal(t, "Order already captured.", perr.Message)
	})
}
