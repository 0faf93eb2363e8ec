package utils

import (
	"fmt"
	"strings"
)

// HospitalPlan is a hospital subscription tier. The ordinal order
// free < gold < premium is the whole access model: a hospital may book a
// doctor iff its plan ordinal is at least the doctor's required plan ordinal.
type HospitalPlan string

const (
	PlanFree    HospitalPlan = "free"
	PlanGold    HospitalPlan = "gold"
	PlanPremium HospitalPlan = "premium"
)

// DoctorTier is a doctor's visibility rank, silver < gold < platinum.
type DoctorTier string

const (
	TierSilver   DoctorTier = "silver"
	TierGold     DoctorTier = "gold"
	TierPlatinum DoctorTier = "platinum"
)

var planOrdinals = map[HospitalPlan]int{
	PlanFree:    0,
	PlanGold:    1,
	PlanPremium: 2,
}

var tierOrdinals = map[DoctorTier]int{
	TierSilver:   0,
	TierGold:     1,
	TierPlatinum: 2,
}

// ParseHospitalPlan maps a stored plan tier string onto the fixed enumeration.
// Legacy aliases from older subscription rows are folded in: basic -> gold,
// enterprise -> premium. Unknown strings are rejected at this boundary.
func ParseHospitalPlan(s string) (HospitalPlan, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "free", "":
		return PlanFree, nil
	case "gold", "basic":
		return PlanGold, nil
	case "premium", "enterprise":
		return PlanPremium, nil
	}
	return "", fmt.Errorf("unknown hospital plan tier %q", s)
}

func (p HospitalPlan) Ordinal() int {
	return planOrdinals[p]
}

func (t DoctorTier) Ordinal() int {
	return tierOrdinals[t]
}

// RequiredPlan returns the minimum hospital plan that may book this tier.
func (t DoctorTier) RequiredPlan() HospitalPlan {
	switch t {
	case TierPlatinum:
		return PlanPremium
	case TierGold:
		return PlanGold
	default:
		return PlanFree
	}
}

// HasAccess reports whether a hospital on plan p may book a doctor that
// requires plan required.
func HasAccess(p HospitalPlan, required HospitalPlan) bool {
	return p.Ordinal() >= required.Ordinal()
}

// DeriveDoctorTier ranks a doctor from rating, experience and completed
// assignments. The tier is recomputed on every search, never stored.
func DeriveDoctorTier(rating float64, yearsOfExperience, completedAssignments int) DoctorTier {
	if rating >= 4.8 && yearsOfExperience >= 15 && completedAssignments >= 400 {
		return TierPlatinum
	}
	if rating >= 4.6 && yearsOfExperience >= 10 && completedAssignments >= 200 {
		return TierGold
	}
	return TierSilver
}

// DefaultConsultationFee is the listed fee for a doctor who has not set one.
func DefaultConsultationFee(yearsOfExperience int) int {
	return 1000 + yearsOfExperience*100
}
