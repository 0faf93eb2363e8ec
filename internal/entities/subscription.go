package entities

type SubscriptionRequest struct {
	PlanTier string `json:"plan_tier"`
}

type StripeSessionResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
	PlanTier  string `json:"plan_tier"`
}

type SubscriptionResponse struct {
	PlanTier string `json:"plan_tier"`
}
