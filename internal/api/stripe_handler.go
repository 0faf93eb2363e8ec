package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"medmatch/internal/service"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

type StripeWebhookHandler struct {
	StripeSecret        string
	subscriptionService *service.SubscriptionService
}

func NewStripeWebhookHandler(stripeSecret string, subscriptionService *service.SubscriptionService) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		StripeSecret:        stripeSecret,
		subscriptionService: subscriptionService,
	}
}

// HandleWebhook processes the two subscription lifecycle events we care
// about: a completed checkout activates the pending subscription, a deleted
// subscription drops the hospital back to the free plan.
func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("Error reading body: %v", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sigHeader, h.StripeSecret)
	if err != nil {
		log.Printf("Webhook signature verification failed: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			log.Printf("Error parsing checkout.session: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if sess.ID == "" {
			log.Printf("No session ID in checkout.session.completed")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		stripeSubscriptionID := ""
		if sess.Subscription != nil {
			stripeSubscriptionID = sess.Subscription.ID
		}
		if err := h.subscriptionService.ActivateFromCheckout(r.Context(), sess.ID, stripeSubscriptionID); err != nil {
			log.Printf("DB error activating subscription for session %s: %v", sess.ID, err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			log.Printf("Error parsing subscription: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if sub.ID == "" {
			log.Printf("No subscription ID in customer.subscription.deleted")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := h.subscriptionService.CancelFromStripe(r.Context(), sub.ID); err != nil {
			log.Printf("DB error cancelling subscription %s: %v", sub.ID, err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

	default:
		log.Printf("Unhandled event type: %s", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}
