package payment

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PayPalSandboxURL is the REST endpoint used when none is configured.
const PayPalSandboxURL = "https://api-m.sandbox.paypal.com"

const defaultPayPalTimeout = 10 * time.Second

// PayPalConfig holds the REST credentials and endpoint.
type PayPalConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// PayPalGateway implements Gateway against the PayPal Orders v2 API.
type PayPalGateway struct {
	cfg    PayPalConfig
	logger *zap.Logger
	now    func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewPayPalGateway creates a gateway. Calls are bounded by cfg.Timeout or the
// context deadline, whichever is sooner.
func NewPayPalGateway(cfg PayPalConfig, logger *zap.Logger) *PayPalGateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = PayPalSandboxURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultPayPalTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayPalGateway{cfg: cfg, logger: logger, now: time.Now}
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalCreateOrder struct {
	Intent             string `json:"intent"`
	ApplicationContext struct {
		UserAction string `json:"user_action"`
		ReturnURL  string `json:"return_url"`
		CancelURL  string `json:"cancel_url"`
	} `json:"application_context"`
	PurchaseUnits []paypalPurchaseUnit `json:"purchase_units"`
}

type paypalPurchaseUnit struct {
	Amount paypalAmount `json:"amount"`
}

type paypalOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

type paypalError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Details []struct {
		Issue       string `json:"issue"`
		Description string `json:"description"`
	} `json:"details"`
	ErrorDescription string `json:"error_description"`
}

// CreateAuthorization creates a CAPTURE-intent order and returns its approval link.
func (g *PayPalGateway) CreateAuthorization(ctx context.Context, amount int64, currency, returnURL, cancelURL string) (*Authorization, error) {
	switch {
	case amount <= 0:
		return nil, &Error{Op: OpCreate, Message: "amount must be positive"}
	case len(currency) != 3:
		return nil, &Error{Op: OpCreate, Message: "currency must be a three-letter code"}
	case returnURL == "" || cancelURL == "":
		return nil, &Error{Op: OpCreate, Message: "return and cancel URLs are required"}
	}

	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var req paypalCreateOrder
	req.Intent = "CAPTURE"
	req.ApplicationContext.UserAction = "PAY_NOW"
	req.ApplicationContext.ReturnURL = returnURL
	req.ApplicationContext.CancelURL = cancelURL
	req.PurchaseUnits = []paypalPurchaseUnit{{Amount: paypalAmount{
		CurrencyCode: strings.ToUpper(currency),
		Value:        decimal.NewFromInt(amount).StringFixed(2),
	}}}

	var order paypalOrder
	if err := g.post(ctx, OpCreate, "/v2/checkout/orders", token, req, &order); err != nil {
		return nil, err
	}

	var approval string
	for _, l := range order.Links {
		if l.Rel == "approve" {
			approval = l.Href
			break
		}
	}
	if order.ID == "" || approval == "" {
		return nil, &Error{Op: OpCreate, Message: "provider returned no approval link"}
	}

	g.logger.Info("paypal order created", zap.String("provider_order_id", order.ID), zap.Int64("amount", amount), zap.String("currency", currency))
	return &Authorization{ProviderOrderID: order.ID, ApprovalURL: approval, Status: order.Status}, nil
}

// CaptureAuthorization captures an approved order.
func (g *PayPalGateway) CaptureAuthorization(ctx context.Context, providerOrderID string) (*Capture, error) {
	if providerOrderID == "" {
		return nil, &Error{Op: OpCapture, Message: "provider order id is required"}
	}
	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var order paypalOrder
	if err := g.post(ctx, OpCapture, "/v2/checkout/orders/"+providerOrderID+"/capture", token, nil, &order); err != nil {
		return nil, err
	}

	capture := &Capture{Status: order.Status}
	if len(order.PurchaseUnits) > 0 && len(order.PurchaseUnits[0].Payments.Captures) > 0 {
		capture.CaptureID = order.PurchaseUnits[0].Payments.Captures[0].ID
	}
	if capture.Completed() && capture.CaptureID == "" {
		return nil, &Error{Op: OpCapture, Message: "provider returned no capture id"}
	}

	g.logger.Info("paypal order captured", zap.String("provider_order_id", providerOrderID), zap.String("status", capture.Status))
	return capture, nil
}

func (g *PayPalGateway) accessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token != "" && g.now().Before(g.tokenExpiry) {
		return g.token, nil
	}

	timeout, err := g.timeout(ctx, OpToken)
	if err != nil {
		return "", err
	}

	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	args.Set("grant_type", "client_credentials")

	agent := fiber.Post(g.cfg.BaseURL + "/v1/oauth2/token")
	agent.BasicAuth(g.cfg.ClientID, g.cfg.ClientSecret)
	agent.Form(args)
	agent.Timeout(timeout)

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := g.decode(OpToken, agent, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", &Error{Op: OpToken, Message: "provider returned no access token"}
	}

	g.token = out.AccessToken
	// Refresh a minute early so a token never expires mid-request.
	g.tokenExpiry = g.now().Add(time.Duration(out.ExpiresIn)*time.Second - time.Minute)
	return g.token, nil
}

func (g *PayPalGateway) post(ctx context.Context, op Operation, path, token string, payload interface{}, out interface{}) error {
	timeout, err := g.timeout(ctx, op)
	if err != nil {
		return err
	}

	agent := fiber.Post(g.cfg.BaseURL + path)
	agent.Set(fiber.HeaderAuthorization, "Bearer "+token)
	if payload != nil {
		agent.JSON(payload)
	} else {
		agent.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	agent.Timeout(timeout)

	return g.decode(op, agent, out)
}

func (g *PayPalGateway) decode(op Operation, agent *fiber.Agent, out interface{}) error {
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return &Error{Op: op, Message: "request to provider failed", Err: errors.Join(errs...)}
	}
	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		g.logger.Warn("paypal request rejected", zap.String("op", string(op)), zap.Int("status", code))
		return &Error{Op: op, StatusCode: code, Message: providerMessage(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Op: op, Message: "malformed provider response", Err: err}
	}
	return nil
}

func (g *PayPalGateway) timeout(ctx context.Context, op Operation) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, &Error{Op: op, Message: "request canceled", Err: err}
	}
	d := g.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < d {
			d = remaining
		}
	}
	if d <= 0 {
		return 0, &Error{Op: op, Message: "request deadline exceeded", Err: context.DeadlineExceeded}
	}
	return d, nil
}

func providerMessage(body []byte) string {
	var perr paypalError
	if err := json.Unmarshal(body, &perr); err != nil {
		if s := strings.TrimSpace(string(body)); s != "" {
			return s
		}
		return "provider rejected the request"
	}
	msg := perr.Message
	if msg == "" {
		msg = perr.ErrorDescription
	}
	if len(perr.Details) > 0 && perr.Details[0].Description != "" {
		msg = strings.TrimSpace(msg + " " + perr.Details[0].Description)
	}
	if msg == "" {
		msg = perr.Name
	}
	if msg == "" {
		msg = "provider rejected the request"
	}
	return msg
}
