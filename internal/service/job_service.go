package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"medmatch/internal/entities"
	"medmatch/internal/repository"
	"medmatch/internal/utils"
)

const expiredReason = "response deadline passed"

type JobService struct {
	Repo     *repository.JobRepository
	Schedule *ScheduleService
	now      func() time.Time
}

func NewJobService(repo *repository.JobRepository, schedule *ScheduleService) *JobService {
	return &JobService{Repo: repo, Schedule: schedule, now: time.Now}
}

// ExpirePendingAssignments cancels every pending assignment whose response
// deadline has passed and puts its held slot back on the market. Runs from
// the cron scheduler and is safe to trigger by hand.
func (s *JobService) ExpirePendingAssignments(ctx context.Context) (int, error) {
	log.Println("Cron Job: Checking for expired pending assignments...")

	now := s.now()
	expired, err := s.Repo.GetExpiredPendingAssignments(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("cron job: failed to get expired pending assignments: %w", err)
	}

	if len(expired) == 0 {
		log.Println("Cron Job: No expired pending assignments found.")
		return 0, nil
	}

	ids := make([]string, 0, len(expired))
	var slotIDs []string
	for _, e := range expired {
		ids = append(ids, e.AssignmentID)
		if e.SlotID != nil {
			slotIDs = append(slotIDs, *e.SlotID)
		}
	}

	if err := s.Repo.CancelAssignmentsBySystem(ctx, ids, now, expiredReason); err != nil {
		return 0, fmt.Errorf("cron job: failed to cancel expired assignments: %w", err)
	}
	if err := s.Repo.ReleaseSlots(ctx, slotIDs); err != nil {
		return 0, fmt.Errorf("cron job: failed to release slots: %w", err)
	}

	log.Printf("Cron Job: Cancelled %d expired assignments and released %d slots.", len(ids), len(slotIDs))
	return len(ids), nil
}

// MaterializeUpcomingSlots generates concrete slots from templates for the
// next horizonDays, starting tomorrow.
func (s *JobService) MaterializeUpcomingSlots(ctx context.Context, horizonDays int) (*entities.MaterializationSummary, error) {
	if horizonDays <= 0 {
		horizonDays = 30
	}
	start := s.now().AddDate(0, 0, 1)
	end := start.AddDate(0, 0, horizonDays-1)
	return s.Schedule.MaterializeSlots(ctx, utils.FormatDate(start), utils.FormatDate(end))
}
