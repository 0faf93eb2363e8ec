package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"medmatch/internal/db"
	"medmatch/internal/entities"
	apperrors "medmatch/internal/errors"
	"medmatch/internal/repository"
	"medmatch/internal/utils"

	"github.com/google/uuid"
)

const (
	patternDaily   = "daily"
	patternWeekly  = "weekly"
	patternCustom  = "custom"
	patternMonthly = "monthly"
)

type ScheduleService struct {
	Repo *repository.DoctorRepository
}

func NewScheduleService(repo *repository.DoctorRepository) *ScheduleService {
	return &ScheduleService{Repo: repo}
}

// TemplatesConflict reports whether two recurring schedule rules can produce
// overlapping slots. The checks short-circuit in order: disjoint validity
// windows never conflict, then disjoint times of day never conflict, and only
// then is the recurrence pairing consulted.
//
// The pairing is deliberately coarse. Monthly rules fire on one day a month,
// but which weekday that is drifts year over year, so monthly is treated as
// conflicting with daily and with other monthly rules while weekday-set rules
// get the benefit of the doubt. Daily conflicts with everything. Two
// weekday-set rules conflict only when their sets share a day.
func TemplatesConflict(a, b *db.AvailabilityTemplate) bool {
	if !utils.DateRangesOverlap(a.ValidFrom, a.ValidUntil, b.ValidFrom, b.ValidUntil) {
		return false
	}
	if !utils.TimeRangesOverlap(a.StartTime, a.EndTime, b.StartTime, b.EndTime) {
		return false
	}

	if a.RecurrencePattern == patternMonthly || b.RecurrencePattern == patternMonthly {
		other := b
		if b.RecurrencePattern == patternMonthly {
			other = a
		}
		switch other.RecurrencePattern {
		case patternMonthly, patternDaily:
			return true
		default:
			return false
		}
	}

	if a.RecurrencePattern == patternDaily || b.RecurrencePattern == patternDaily {
		return true
	}

	return utils.DaySetsIntersect(a.RecurrenceDays, b.RecurrenceDays)
}

func (s *ScheduleService) CreateTemplate(ctx context.Context, doctorID string, req *entities.TemplateRequest) (*entities.TemplateResponse, error) {
	t := &db.AvailabilityTemplate{
		ID:                uuid.NewString(),
		DoctorID:          doctorID,
		TemplateName:      req.TemplateName,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		RecurrencePattern: req.RecurrencePattern,
		RecurrenceDays:    utils.NormalizeDays(req.RecurrenceDays),
		ValidFrom:         req.ValidFrom,
		ValidUntil:        req.ValidUntil,
	}
	if err := validateTemplate(t); err != nil {
		return nil, err
	}

	existing, err := s.Repo.ListTemplatesByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if TemplatesConflict(t, &existing[i]) {
			return nil, apperrors.Conflict(
				fmt.Sprintf("template conflicts with existing template %q", existing[i].TemplateName))
		}
	}

	if err := s.Repo.CreateTemplate(ctx, t); err != nil {
		return nil, err
	}
	return templateToResponse(t), nil
}

func (s *ScheduleService) UpdateTemplate(ctx context.Context, doctorID, templateID string, req *entities.TemplateRequest) (*entities.TemplateResponse, error) {
	current, err := s.Repo.GetTemplateByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if current == nil || current.DoctorID != doctorID {
		return nil, apperrors.NotFound("template not found")
	}

	t := &db.AvailabilityTemplate{
		ID:                templateID,
		DoctorID:          doctorID,
		TemplateName:      req.TemplateName,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		RecurrencePattern: req.RecurrencePattern,
		RecurrenceDays:    utils.NormalizeDays(req.RecurrenceDays),
		ValidFrom:         req.ValidFrom,
		ValidUntil:        req.ValidUntil,
	}
	if err := validateTemplate(t); err != nil {
		return nil, err
	}

	existing, err := s.Repo.ListTemplatesByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].ID == templateID {
			continue
		}
		if TemplatesConflict(t, &existing[i]) {
			return nil, apperrors.Conflict(
				fmt.Sprintf("template conflicts with existing template %q", existing[i].TemplateName))
		}
	}

	if err := s.Repo.UpdateTemplate(ctx, t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("template not found")
		}
		return nil, err
	}
	return templateToResponse(t), nil
}

func (s *ScheduleService) DeleteTemplate(ctx context.Context, doctorID, templateID string) error {
	err := s.Repo.DeleteTemplate(ctx, templateID, doctorID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound("template not found")
	}
	return err
}

func (s *ScheduleService) ListTemplates(ctx context.Context, doctorID string) ([]entities.TemplateResponse, error) {
	templates, err := s.Repo.ListTemplatesByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	responses := make([]entities.TemplateResponse, 0, len(templates))
	for i := range templates {
		responses = append(responses, *templateToResponse(&templates[i]))
	}
	return responses, nil
}

// CreateSlot adds a one-off manual slot after checking it does not overlap any
// existing slot on the same date.
func (s *ScheduleService) CreateSlot(ctx context.Context, doctorID string, req *entities.SlotRequest) (*entities.SlotResponse, error) {
	if err := validateSlotTimes(req.SlotDate, req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	taken, err := s.Repo.HasAvailabilityOverlap(ctx, doctorID, req.SlotDate, req.StartTime, req.EndTime, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.Conflict("slot overlaps an existing slot on the same date")
	}

	slot := &db.AvailabilitySlot{
		ID:        uuid.NewString(),
		DoctorID:  doctorID,
		SlotDate:  req.SlotDate,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    db.SlotAvailable,
		IsManual:  true,
		Notes:     req.Notes,
	}
	if err := s.Repo.CreateSlot(ctx, slot); err != nil {
		return nil, err
	}
	return slotToResponse(slot), nil
}

func (s *ScheduleService) UpdateSlot(ctx context.Context, doctorID, slotID string, req *entities.SlotRequest) (*entities.SlotResponse, error) {
	if err := validateSlotTimes(req.SlotDate, req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	current, err := s.Repo.GetSlotByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if current == nil || current.DoctorID != doctorID {
		return nil, apperrors.NotFound("slot not found")
	}
	if current.Status != db.SlotAvailable {
		return nil, apperrors.Conflict("only available slots can be modified")
	}

	taken, err := s.Repo.HasAvailabilityOverlap(ctx, doctorID, req.SlotDate, req.StartTime, req.EndTime, slotID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.Conflict("slot overlaps an existing slot on the same date")
	}

	current.SlotDate = req.SlotDate
	current.StartTime = req.StartTime
	current.EndTime = req.EndTime
	current.Notes = req.Notes
	if err := s.Repo.UpdateSlot(ctx, current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("slot not found")
		}
		return nil, err
	}
	return slotToResponse(current), nil
}

// BlockSlot takes an available slot off the market, for time off or personal
// leave. The slot keeps its times and can be unblocked later.
func (s *ScheduleService) BlockSlot(ctx context.Context, doctorID, slotID string) (*entities.SlotResponse, error) {
	current, err := s.Repo.GetSlotByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if current == nil || current.DoctorID != doctorID {
		return nil, apperrors.NotFound("slot not found")
	}
	if current.Status != db.SlotAvailable {
		return nil, apperrors.Conflict("only available slots can be blocked")
	}
	if err := s.Repo.SetSlotStatus(ctx, slotID, doctorID, db.SlotAvailable, db.SlotBlocked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Conflict("slot is no longer available")
		}
		return nil, err
	}
	current.Status = db.SlotBlocked
	return slotToResponse(current), nil
}

// UnblockSlot puts a blocked slot back on the market.
func (s *ScheduleService) UnblockSlot(ctx context.Context, doctorID, slotID string) (*entities.SlotResponse, error) {
	current, err := s.Repo.GetSlotByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if current == nil || current.DoctorID != doctorID {
		return nil, apperrors.NotFound("slot not found")
	}
	if current.Status != db.SlotBlocked {
		return nil, apperrors.Conflict("only blocked slots can be unblocked")
	}
	if err := s.Repo.SetSlotStatus(ctx, slotID, doctorID, db.SlotBlocked, db.SlotAvailable); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Conflict("slot is no longer blocked")
		}
		return nil, err
	}
	current.Status = db.SlotAvailable
	return slotToResponse(current), nil
}

func (s *ScheduleService) DeleteSlot(ctx context.Context, doctorID, slotID string) error {
	current, err := s.Repo.GetSlotByID(ctx, slotID)
	if err != nil {
		return err
	}
	if current == nil || current.DoctorID != doctorID {
		return apperrors.NotFound("slot not found")
	}
	if current.Status == db.SlotBooked {
		return apperrors.Conflict("booked slots cannot be deleted")
	}
	err = s.Repo.DeleteSlot(ctx, slotID, doctorID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound("slot not found")
	}
	return err
}

func (s *ScheduleService) ListSlots(ctx context.Context, doctorID string) ([]entities.SlotResponse, error) {
	slots, err := s.Repo.ListSlotsByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	responses := make([]entities.SlotResponse, 0, len(slots))
	for i := range slots {
		responses = append(responses, *slotToResponse(&slots[i]))
	}
	return responses, nil
}

// MaterializeSlots walks every calendar day in [startDate, endDate] and
// generates concrete slots from each template active on that day. Daily
// templates fire every day, weekly and custom templates fire on their weekday
// set, monthly templates fire on the day-of-month their validity window
// starts. Days where the doctor already has an overlapping slot are skipped
// and counted, so the job can run repeatedly without duplicating anything.
func (s *ScheduleService) MaterializeSlots(ctx context.Context, startDate, endDate string) (*entities.MaterializationSummary, error) {
	if err := utils.ValidateDate(startDate); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if err := utils.ValidateDate(endDate); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if startDate > endDate {
		return nil, apperrors.Validation("start_date must not be after end_date")
	}

	templates, err := s.Repo.ListTemplatesActiveBetween(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}

	summary := &entities.MaterializationSummary{
		StartDate:          startDate,
		EndDate:            endDate,
		TemplatesProcessed: len(templates),
	}

	start, _ := time.Parse(utils.DateLayout, startDate)
	end, _ := time.Parse(utils.DateLayout, endDate)

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		date := utils.FormatDate(day)
		for i := range templates {
			t := &templates[i]
			if !templateFiresOn(t, day, date) {
				continue
			}

			taken, err := s.Repo.HasAvailabilityOverlap(ctx, t.DoctorID, date, t.StartTime, t.EndTime, "")
			if err != nil {
				return nil, err
			}
			if taken {
				summary.SkippedExisting++
				continue
			}

			slot := &db.AvailabilitySlot{
				ID:         uuid.NewString(),
				DoctorID:   t.DoctorID,
				TemplateID: &t.ID,
				SlotDate:   date,
				StartTime:  t.StartTime,
				EndTime:    t.EndTime,
				Status:     db.SlotAvailable,
			}
			if err := s.Repo.CreateSlot(ctx, slot); err != nil {
				return nil, err
			}
			summary.SlotsCreated++
		}
	}

	log.Printf("Materialized %d slots between %s and %s (%d skipped)",
		summary.SlotsCreated, startDate, endDate, summary.SkippedExisting)
	return summary, nil
}

// templateFiresOn reports whether the template generates a slot on this day.
// The validity window is inclusive on both ends.
func templateFiresOn(t *db.AvailabilityTemplate, day time.Time, date string) bool {
	if date < t.ValidFrom {
		return false
	}
	if t.ValidUntil != nil && date > *t.ValidUntil {
		return false
	}

	switch t.RecurrencePattern {
	case patternDaily:
		return true
	case patternWeekly, patternCustom:
		token := utils.WeekdayToken(day)
		for _, d := range t.RecurrenceDays {
			if d == token {
				return true
			}
		}
		return false
	case patternMonthly:
		from, err := time.Parse(utils.DateLayout, t.ValidFrom)
		if err != nil {
			return false
		}
		return day.Day() == from.Day()
	}
	return false
}

func validateTemplate(t *db.AvailabilityTemplate) error {
	if t.TemplateName == "" {
		return apperrors.Validation("template_name is required")
	}
	if err := utils.ValidateTime(t.StartTime); err != nil {
		return apperrors.Validation(err.Error())
	}
	if err := utils.ValidateTime(t.EndTime); err != nil {
		return apperrors.Validation(err.Error())
	}
	if t.StartTime >= t.EndTime {
		return apperrors.Validation("start_time must be before end_time")
	}
	if err := utils.ValidateDate(t.ValidFrom); err != nil {
		return apperrors.Validation(err.Error())
	}
	if t.ValidUntil != nil {
		if err := utils.ValidateDate(*t.ValidUntil); err != nil {
			return apperrors.Validation(err.Error())
		}
		if t.ValidFrom > *t.ValidUntil {
			return apperrors.Validation("valid_from must not be after valid_until")
		}
	}

	switch t.RecurrencePattern {
	case patternDaily, patternMonthly:
	case patternWeekly, patternCustom:
		if len(t.RecurrenceDays) == 0 {
			return apperrors.Validation("recurrence_days is required for weekly and custom templates")
		}
	default:
		return apperrors.Validation("recurrence_pattern must be daily, weekly, custom or monthly")
	}
	return nil
}

func validateSlotTimes(date, startTime, endTime string) error {
	if err := utils.ValidateDate(date); err != nil {
		return apperrors.Validation(err.Error())
	}
	if err := utils.ValidateTime(startTime); err != nil {
		return apperrors.Validation(err.Error())
	}
	if err := utils.ValidateTime(endTime); err != nil {
		return apperrors.Validation(err.Error())
	}
	if startTime >= endTime {
		return apperrors.Validation("start_time must be before end_time")
	}
	return nil
}

func templateToResponse(t *db.AvailabilityTemplate) *entities.TemplateResponse {
	days := t.RecurrenceDays
	if days == nil {
		days = []string{}
	}
	return &entities.TemplateResponse{
		ID:                t.ID,
		DoctorID:          t.DoctorID,
		TemplateName:      t.TemplateName,
		StartTime:         t.StartTime,
		EndTime:           t.EndTime,
		RecurrencePattern: t.RecurrencePattern,
		RecurrenceDays:    days,
		ValidFrom:         t.ValidFrom,
		ValidUntil:        t.ValidUntil,
	}
}

func slotToResponse(s *db.AvailabilitySlot) *entities.SlotResponse {
	return &entities.SlotResponse{
		ID:                 s.ID,
		DoctorID:           s.DoctorID,
		SlotDate:           s.SlotDate,
		StartTime:          s.StartTime,
		EndTime:            s.EndTime,
		Status:             s.Status,
		BookedByHospitalID: s.BookedByHospitalID,
		BookedAt:           s.BookedAt,
		IsManual:           s.IsManual,
		Notes:              s.Notes,
	}
}
