package service

import (
	"context"
	"sort"
	"time"

	"medmatch/internal/entities"
	apperrors "medmatch/internal/errors"
	"medmatch/internal/repository"
	"medmatch/internal/utils"
)

type SearchService struct {
	DoctorRepo   *repository.DoctorRepository
	HospitalRepo *repository.HospitalRepository
	now          func() time.Time
}

func NewSearchService(doctorRepo *repository.DoctorRepository, hospitalRepo *repository.HospitalRepository) *SearchService {
	return &SearchService{DoctorRepo: doctorRepo, HospitalRepo: hospitalRepo, now: time.Now}
}

// FindDoctors lists doctors for a hospital, each annotated with the derived
// tier and whether the hospital's plan can book them. Inaccessible doctors
// stay visible as an upsell, but sort below every accessible one; within each
// group higher tiers come first and ties keep the rating order from the query.
func (s *SearchService) FindDoctors(ctx context.Context, hospitalID, specialty, date string) (*entities.SearchResponse, error) {
	if date != "" {
		if err := utils.ValidateDate(date); err != nil {
			return nil, apperrors.Validation(err.Error())
		}
	}

	planTier, err := s.HospitalRepo.GetActivePlanTier(ctx, hospitalID, s.now())
	if err != nil {
		return nil, err
	}
	plan, err := utils.ParseHospitalPlan(planTier)
	if err != nil {
		return nil, err
	}

	doctors, err := s.DoctorRepo.ListDoctors(ctx, specialty)
	if err != nil {
		return nil, err
	}

	results := make([]entities.DoctorSearchResult, 0, len(doctors))
	for i := range doctors {
		d := &doctors[i]
		tier := utils.DeriveDoctorTier(d.AverageRating, d.YearsOfExperience, d.CompletedAssignments)
		required := tier.RequiredPlan()

		fee := d.ConsultationFee
		if fee <= 0 {
			fee = utils.DefaultConsultationFee(d.YearsOfExperience)
		}

		slots := []string{}
		if date != "" {
			slots, err = s.DoctorRepo.ListAvailableSlotTimes(ctx, d.ID, date)
			if err != nil {
				return nil, err
			}
			if slots == nil {
				slots = []string{}
			}
		}

		results = append(results, entities.DoctorSearchResult{
			ID:                   d.ID,
			Name:                 d.FirstName + " " + d.LastName,
			Specialty:            d.Specialty,
			Tier:                 string(tier),
			RequiredPlan:         string(required),
			Accessible:           utils.HasAccess(plan, required),
			YearsOfExperience:    d.YearsOfExperience,
			Rating:               d.AverageRating,
			CompletedAssignments: d.CompletedAssignments,
			ConsultationFee:      fee,
			AvailableSlots:       slots,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Accessible != results[j].Accessible {
			return results[i].Accessible
		}
		return utils.DoctorTier(results[i].Tier).Ordinal() > utils.DoctorTier(results[j].Tier).Ordinal()
	})

	return &entities.SearchResponse{
		Doctors:              results,
		HospitalSubscription: string(plan),
	}, nil
}
