package service

import (
	"context"
	"os"
	"time"

	"medmatch/internal/db"
	"medmatch/internal/entities"
	apperrors "medmatch/internal/errors"
	"medmatch/internal/repository"
	"medmatch/internal/utils"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/checkout/session"
)

// Monthly plan prices in euro cents.
var planAmounts = map[utils.HospitalPlan]int64{
	utils.PlanGold:    49900,
	utils.PlanPremium: 99900,
}

type SubscriptionService struct {
	HospitalRepo *repository.HospitalRepository
	now          func() time.Time
}

func NewSubscriptionService(hospitalRepo *repository.HospitalRepository) *SubscriptionService {
	return &SubscriptionService{HospitalRepo: hospitalRepo, now: time.Now}
}

// Checkout opens a Stripe subscription checkout for a paid plan and records
// the pending subscription row. The webhook flips it to active once the
// hospital pays.
func (s *SubscriptionService) Checkout(ctx context.Context, hospitalID string, req *entities.SubscriptionRequest) (*entities.StripeSessionResponse, error) {
	plan, err := utils.ParseHospitalPlan(req.PlanTier)
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	amount, ok := planAmounts[plan]
	if !ok {
		return nil, apperrors.Validation("plan_tier must be gold or premium")
	}

	hospital, err := s.HospitalRepo.GetHospitalByID(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	if hospital == nil {
		return nil, apperrors.NotFound("hospital not found")
	}

	sessionURL, sessionID, err := createSubscriptionCheckoutSession(amount, string(plan), hospital.Email)
	if err != nil {
		return nil, err
	}

	subscription := &db.Subscription{
		ID:              uuid.NewString(),
		HospitalID:      hospitalID,
		PlanTier:        string(plan),
		StripeSessionID: sessionID,
	}
	if err := s.HospitalRepo.CreatePendingSubscription(ctx, subscription); err != nil {
		return nil, err
	}

	return &entities.StripeSessionResponse{
		URL:       sessionURL,
		SessionID: sessionID,
		PlanTier:  string(plan),
	}, nil
}

// Current reports the hospital's effective plan, falling back to free.
func (s *SubscriptionService) Current(ctx context.Context, hospitalID string) (*entities.SubscriptionResponse, error) {
	tier, err := s.HospitalRepo.GetActivePlanTier(ctx, hospitalID, s.now())
	if err != nil {
		return nil, err
	}
	plan, err := utils.ParseHospitalPlan(tier)
	if err != nil {
		return nil, err
	}
	return &entities.SubscriptionResponse{PlanTier: string(plan)}, nil
}

// ActivateFromCheckout handles the checkout.session.completed webhook event.
func (s *SubscriptionService) ActivateFromCheckout(ctx context.Context, sessionID, stripeSubscriptionID string) error {
	periodEnd := s.now().AddDate(0, 1, 0)
	return s.HospitalRepo.ActivateSubscriptionBySessionID(ctx, sessionID, stripeSubscriptionID, &periodEnd)
}

// CancelFromStripe handles the customer.subscription.deleted webhook event.
func (s *SubscriptionService) CancelFromStripe(ctx context.Context, stripeSubscriptionID string) error {
	return s.HospitalRepo.CancelSubscriptionByStripeID(ctx, stripeSubscriptionID)
}

func createSubscriptionCheckoutSession(amount int64, planName, customerEmail string) (string, string, error) {
	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String("eur"),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("MedMatch " + planName + " plan"),
					},
					UnitAmount: stripe.Int64(amount),
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String("month"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:          stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:    stripe.String(frontendURL + "/subscription/confirmation?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:     stripe.String(frontendURL + "/subscription/failed?session_id={CHECKOUT_SESSION_ID}"),
		CustomerEmail: stripe.String(customerEmail),
	}

	sess, err := session.New(params)
	if err != nil {
		return "", "", err
	}
	return sess.URL, sess.ID, nil
}
