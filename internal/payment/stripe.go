package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

// StripeProvider はStripe Checkoutを使用したProviderの実装。
type StripeProvider struct {
	api           *client.API
	webhookSecret string
	currency      string
}

// NewStripeProvider はStripeProviderを生成する。
// secretKeyはAPI呼び出しに、webhookSecretはWebhook署名検証に使用する。
func NewStripeProvider(secretKey, webhookSecret, currency string) *StripeProvider {
	api := &client.API{}
	api.Init(secretKey, nil)

	return &StripeProvider{
		api:           api,
		webhookSecret: webhookSecret,
		currency:      currency,
	}
}

// CreateSession はStripe Checkoutセッションを作成する。
// 一回払いモードで、計算済みの明細とメタデータを添付する。
func (p *StripeProvider) CreateSession(ctx context.Context, req *SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.UserID),
		LineItems:         make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.LineItems)),
	}
	params.Context = ctx

	for _, item := range req.LineItems {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			productData.Description = stripe.String(item.Description)
		}
		if len(item.Images) > 0 {
			productData.Images = stripe.StringSlice(item.Images)
		}

		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(p.currency),
				UnitAmount:  stripe.Int64(item.UnitAmountCents),
				ProductData: productData,
			},
		})
	}

	params.AddMetadata(MetadataKeyUserID, req.UserID)
	params.AddMetadata(MetadataKeyVendorID, req.VendorID)
	params.AddMetadata(MetadataKeySubtotal, fmt.Sprintf("%d", req.SubtotalCents))
	params.AddMetadata(MetadataKeyPlatformFee, fmt.Sprintf("%d", req.PlatformFeeCents))
	params.AddMetadata(MetadataKeyCartItems, req.CartItemsJSON)

	session, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe checkout session: %w", err)
	}

	return &Session{ID: session.ID, URL: session.URL}, nil
}

// VerifyEvent は生のWebhookペイロードをStripeの署名スキームで検証する。
// 署名が正しい場合のみイベントを解析して返す。
func (p *StripeProvider) VerifyEvent(payload []byte, signatureHeader string) (*Event, error) {
	stripeEvent, err := webhook.ConstructEvent(payload, signatureHeader, p.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	event := &Event{Type: string(stripeEvent.Type)}

	if event.Type != EventCheckoutCompleted {
		return event, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(stripeEvent.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("failed to parse checkout session payload: %w", err)
	}

	completed := &CompletedSession{
		ID:                session.ID,
		ClientReferenceID: session.ClientReferenceID,
		AmountTotalCents:  session.AmountTotal,
		Metadata:          session.Metadata,
	}
	if session.PaymentIntent != nil {
		completed.PaymentIntentID = session.PaymentIntent.ID
	}
	if session.CustomerDetails != nil {
		completed.CustomerEmail = session.CustomerDetails.Email
	}

	event.Session = completed
	return event, nil
}
