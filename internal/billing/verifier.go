package billing

import (
	"encoding/json"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// DefaultWebhookTolerance is the signature timestamp tolerance used when none is configured.
const DefaultWebhookTolerance = webhook.DefaultTolerance

// Verifier authenticates webhook deliveries against the shared signing secret.
//
// Stripe signs `timestamp + "." + body` with HMAC-SHA256 and sends
// `t=<unix>,v1=<hex>` in the Stripe-Signature header. Verification runs over
// the exact bytes received; the body is decoded only after it passes.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

// NewVerifier creates a Verifier. A zero tolerance uses DefaultWebhookTolerance.
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultWebhookTolerance
	}
	return &Verifier{secret: secret, tolerance: tolerance}
}

// Configured reports whether a signing secret is available.
func (v *Verifier) Configured() bool {
	return v != nil && v.secret != ""
}

// Verify checks payload against signatureHeader and decodes it into a SubscriptionEvent.
//
// Returns ErrMissingSecret or ErrMissingSignature when either is absent, and a
// *VerificationError when the signature, timestamp or body is rejected.
func (v *Verifier) Verify(payload []byte, signatureHeader string) (*SubscriptionEvent, error) {
	if !v.Configured() {
		return nil, ErrMissingSecret
	}
	if signatureHeader == "" {
		return nil, ErrMissingSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance: v.tolerance,
		// Endpoints are pinned to an older API version; the fields read here are stable across versions.
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, &VerificationError{Err: err}
	}

	return decodeEvent(event)
}

func decodeEvent(event stripe.Event) (*SubscriptionEvent, error) {
	ev := &SubscriptionEvent{
		ID:   event.ID,
		Type: EventType(event.Type),
	}
	if event.Created > 0 {
		ev.Created = time.Unix(event.Created, 0).UTC()
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return ev, nil
	}

	companyID, err := companyIDFromObject(ev.Type, event.Data.Raw)
	if err != nil {
		return nil, &VerificationError{Err: err}
	}
	ev.CompanyID = companyID

	return ev, nil
}

// invoiceObject covers both the legacy top-level subscription_details and the
// parent.subscription_details layout of newer API versions.
type invoiceObject struct {
	Metadata            map[string]string    `json:"metadata"`
	SubscriptionDetails *subscriptionDetails `json:"subscription_details"`
	Parent              *struct {
		SubscriptionDetails *subscriptionDetails `json:"subscription_details"`
	} `json:"parent"`
}

type subscriptionDetails struct {
	Metadata map[string]string `json:"metadata"`
}

// companyIDFromObject resolves the company identifier from the event object.
// Unhandled event types resolve to "".
func companyIDFromObject(eventType EventType, raw json.RawMessage) (string, error) {
	switch eventType {
	case EventCheckoutCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(raw, &session); err != nil {
			return "", err
		}
		return session.Metadata[MetadataCompanyID], nil

	case EventPaymentFailed:
		var invoice invoiceObject
		if err := json.Unmarshal(raw, &invoice); err != nil {
			return "", err
		}
		if invoice.SubscriptionDetails != nil {
			if id := invoice.SubscriptionDetails.Metadata[MetadataCompanyID]; id != "" {
				return id, nil
			}
		}
		if invoice.Parent != nil && invoice.Parent.SubscriptionDetails != nil {
			if id := invoice.Parent.SubscriptionDetails.Metadata[MetadataCompanyID]; id != "" {
				return id, nil
			}
		}
		return invoice.Metadata[MetadataCompanyID], nil

	case EventSubscriptionDeleted:
		var subscription stripe.Subscription
		if err := json.Unmarshal(raw, &subscription); err != nil {
			return "", err
		}
		return subscription.Metadata[MetadataCompanyID], nil
	}

	return "", nil
}
