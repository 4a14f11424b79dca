package service

import (
	"fmt"
	"log"

	"hostbook/internal/db"
)

// BookingJobStore is the slice of the ledger the periodic jobs need.
type BookingJobStore interface {
	ConfirmedIDsPastEnd() ([]int, error)
	UpdateStatuses(ids []int, newStatus string) error
}

type JobService struct {
	locker   SlotLocker
	bookings BookingJobStore
}

func NewJobService(locker SlotLocker, bookings BookingJobStore) *JobService {
	return &JobService{locker: locker, bookings: bookings}
}

// ReapExpiredLocks reclaims every lock whose owning payment flow was
// abandoned without retrying. Runs on a fixed cron interval.
func (s *JobService) ReapExpiredLocks() {
	count, err := s.locker.Reap()
	if err != nil {
		log.Printf("Cron Job: failed to reap expired locks: %v", err)
		return
	}
	if count > 0 {
		log.Printf("Cron Job: reaped %d expired locks", count)
	}
}

// CompleteFinishedBookings transitions confirmed bookings whose end time has
// passed to completed.
func (s *JobService) CompleteFinishedBookings() error {
	ids, err := s.bookings.ConfirmedIDsPastEnd()
	if err != nil {
		return fmt.Errorf("cron job: failed to get confirmed bookings past end time: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	if err := s.bookings.UpdateStatuses(ids, db.StatusCompleted); err != nil {
		return fmt.Errorf("cron job: failed to update booking statuses: %w", err)
	}
	log.Printf("Cron Job: marked %d bookings as completed", len(ids))
	return nil
}
