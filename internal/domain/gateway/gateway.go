// Package gateway integrates the VNPay-style payment gateway: it builds the
// outbound signed redirect URL and settles verified callbacks against the
// order workflow. The engine never calls the gateway directly; it only
// constructs URLs and reacts to callbacks.
package gateway

import (
	"context"
	"net/url"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/order"
	"github.com/xenking/storefront-checkout/internal/domain/signature"
)

// Gateway parameter names, fixed by the wire contract. The callback must
// carry its digest under the exact field name used outbound.
const (
	ParamVersion      = "vnp_Version"
	ParamCommand      = "vnp_Command"
	ParamMerchantCode = "vnp_TmnCode"
	ParamAmount       = "vnp_Amount"
	ParamCreateDate   = "vnp_CreateDate"
	ParamExpireDate   = "vnp_ExpireDate"
	ParamCurrency     = "vnp_CurrCode"
	ParamIPAddr       = "vnp_IpAddr"
	ParamLocale       = "vnp_Locale"
	ParamOrderInfo    = "vnp_OrderInfo"
	ParamOrderType    = "vnp_OrderType"
	ParamReturnURL    = "vnp_ReturnUrl"
	ParamTxnRef       = "vnp_TxnRef"
	ParamResponseCode = "vnp_ResponseCode"
	ParamTransaction  = "vnp_TransactionNo"
	ParamSecureHash   = "vnp_SecureHash"
)

const (
	protocolVersion = "2.1.0"
	commandPay      = "pay"
	// responseSuccess is the gateway's code for a completed payment.
	responseSuccess = "00"
	dateFormat      = "20060102150405"
	linkTTL         = 15 * time.Minute
)

var (
	// ErrInvalidSignature is returned when a callback's digest does not
	// verify. The callback is rejected without touching any state.
	ErrInvalidSignature = errors.New("invalid gateway signature")
	// ErrMissingTxnRef is returned when a verified callback carries no
	// transaction reference.
	ErrMissingTxnRef = errors.New("missing transaction reference")
)

// Config holds the merchant credentials and endpoints. HashSecret is shared
// only with the gateway and never leaves this package.
type Config struct {
	MerchantCode string
	HashSecret   string
	PaymentURL   string
	ReturnURL    string
	Locale       string
	Currency     string
}

// Settler applies a verified gateway outcome. Implemented by order.Workflow.
// On order.ErrAlreadySettled the settled payment is returned alongside the
// error so duplicate callbacks can still report its state.
type Settler interface {
	SettlePayment(ctx context.Context, orderID string, outcome order.PaymentStatus, txnCode, payload string) (*order.Payment, error)
}

// Gateway builds signed redirect URLs and processes gateway callbacks.
type Gateway struct {
	cfg     Config
	settler Settler
	now     func() time.Time
}

// New creates a Gateway.
func New(cfg Config, settler Settler) *Gateway {
	if cfg.Locale == "" {
		cfg.Locale = "vn"
	}
	if cfg.Currency == "" {
		cfg.Currency = "VND"
	}
	return &Gateway{cfg: cfg, settler: settler, now: time.Now}
}

// BuildRedirectURL assembles the signed payment URL for an order's pending
// payment. The order ID doubles as the gateway transaction reference. Extra
// parameters override nothing; required fields always win.
func (g *Gateway) BuildRedirectURL(o *order.Order, clientIP string, extra url.Values) string {
	now := g.now()

	params := url.Values{}
	for name, vals := range extra {
		params[name] = vals
	}
	params.Set(ParamVersion, protocolVersion)
	params.Set(ParamCommand, commandPay)
	params.Set(ParamMerchantCode, g.cfg.MerchantCode)
	params.Set(ParamAmount, minorUnits(o.Payment.Amount))
	params.Set(ParamCreateDate, now.Format(dateFormat))
	params.Set(ParamExpireDate, now.Add(linkTTL).Format(dateFormat))
	params.Set(ParamCurrency, g.cfg.Currency)
	params.Set(ParamIPAddr, clientIP)
	params.Set(ParamLocale, g.cfg.Locale)
	params.Set(ParamOrderInfo, "Payment for order "+o.ID)
	params.Set(ParamOrderType, "other")
	params.Set(ParamReturnURL, g.cfg.ReturnURL)
	params.Set(ParamTxnRef, o.ID)

	query := signature.Canonicalize(params)
	digest := signature.Sign(params, g.cfg.HashSecret)

	return g.cfg.PaymentURL + "?" + query + "&" + ParamSecureHash + "=" + digest
}

// CallbackOutcome is the result of processing a gateway callback.
type CallbackOutcome struct {
	OrderID string
	Payment *order.Payment
	// Duplicate is true when the callback repeated an already-applied
	// settlement; nothing changed.
	Duplicate bool
}

// HandleCallback verifies the callback signature and settles the referenced
// payment. It fails closed on a bad or missing digest. Response code "00"
// completes the payment; anything else fails it. The handler is idempotent:
// a repeated callback for a settled payment reports Duplicate without
// writing anything.
func (g *Gateway) HandleCallback(ctx context.Context, params url.Values) (*CallbackOutcome, error) {
	provided := params.Get(ParamSecureHash)
	if !signature.Verify(params, g.cfg.HashSecret, ParamSecureHash, provided) {
		return nil, ErrInvalidSignature
	}

	txnRef := params.Get(ParamTxnRef)
	if txnRef == "" {
		return nil, ErrMissingTxnRef
	}

	outcome := order.PaymentFailed
	if params.Get(ParamResponseCode) == responseSuccess {
		outcome = order.PaymentCompleted
	}

	p, err := g.settler.SettlePayment(ctx, txnRef, outcome, params.Get(ParamTransaction), params.Encode())
	if err != nil {
		// A Duplicate outcome always carries the settled payment; without
		// one the callback cannot be acknowledged.
		if errors.Is(err, order.ErrAlreadySettled) && p != nil {
			return &CallbackOutcome{OrderID: txnRef, Payment: p, Duplicate: true}, nil
		}
		return nil, err
	}

	return &CallbackOutcome{OrderID: txnRef, Payment: p}, nil
}

func minorUnits(amount decimal.Decimal) string {
	return amount.Mul(decimal.NewFromInt(100)).Truncate(0).String()
}
