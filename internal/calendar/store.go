package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/ayoubkh/schedula/internal/model"
)

// RuleSource is the persistence surface the store needs. Implemented by
// storage.RuleRepository.
type RuleSource interface {
	ListRulesForWeekday(ctx context.Context, businessID string, staffID *string, weekday int) ([]model.AvailabilityRule, error)
	GetException(ctx context.Context, businessID string, staffID *string, date time.Time) (*model.AvailabilityException, error)
}

// Store resolves effective hours from stored rules and exceptions. It is
// stateless: every call re-reads, since rules can change between calls.
type Store struct {
	rules RuleSource
}

func NewStore(rules RuleSource) *Store {
	return &Store{rules: rules}
}

// EffectiveHours returns the open windows for the date, which must be a
// business-local calendar date (time component ignored).
func (s *Store) EffectiveHours(ctx context.Context, businessID string, staffID *string, date time.Time, loc *time.Location) (DayHours, error) {
	exc, err := s.rules.GetException(ctx, businessID, staffID, date)
	if err != nil {
		return DayHours{}, fmt.Errorf("get exception: %w", err)
	}
	// A business-wide exception (e.g. a holiday closure) applies to every
	// staff member; a staff-specific one for the same date takes precedence.
	if exc == nil && staffID != nil {
		exc, err = s.rules.GetException(ctx, businessID, nil, date)
		if err != nil {
			return DayHours{}, fmt.Errorf("get business exception: %w", err)
		}
	}

	var rules []model.AvailabilityRule
	if exc == nil || (!exc.IsClosed && exc.OverrideStart == nil) {
		rules, err = s.rules.ListRulesForWeekday(ctx, businessID, staffID, int(date.Weekday()))
		if err != nil {
			return DayHours{}, fmt.Errorf("list rules: %w", err)
		}
	}

	return ResolveDay(rules, exc, date, loc, staffID), nil
}
