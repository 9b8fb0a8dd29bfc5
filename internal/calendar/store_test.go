package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/ayoubkh/schedula/internal/model"
)

// fakeRuleSource matches exceptions the way the repository does: staff scope
// is exact, staff-or-null, never a union.
type fakeRuleSource struct {
	rules      []model.AvailabilityRule
	exceptions []model.AvailabilityException
}

func (f *fakeRuleSource) ListRulesForWeekday(_ context.Context, businessID string, _ *string, weekday int) ([]model.AvailabilityRule, error) {
	var out []model.AvailabilityRule
	for _, r := range f.rules {
		if r.BusinessID == businessID && r.Weekday == weekday {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuleSource) GetException(_ context.Context, businessID string, staffID *string, date time.Time) (*model.AvailabilityException, error) {
	for i, e := range f.exceptions {
		if e.BusinessID != businessID || !e.Date.Equal(date) {
			continue
		}
		if (e.StaffID == nil) != (staffID == nil) {
			continue
		}
		if staffID != nil && *e.StaffID != *staffID {
			continue
		}
		return &f.exceptions[i], nil
	}
	return nil, nil
}

func TestEffectiveHours_BusinessClosureAppliesToStaff(t *testing.T) {
	staff := strPtr("staff-1")
	src := &fakeRuleSource{
		rules: []model.AvailabilityRule{rule(staff, 1, 9*60, 17*60)},
		exceptions: []model.AvailabilityException{
			{BusinessID: "biz-1", Date: monday, IsClosed: true, Reason: "public holiday"},
		},
	}
	store := NewStore(src)

	got, err := store.EffectiveHours(context.Background(), "biz-1", staff, monday, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Closed || len(got.Windows) != 0 {
		t.Fatalf("business-wide closure must close staff-scoped day, got %+v", got)
	}
}

func TestEffectiveHours_StaffExceptionBeatsBusinessException(t *testing.T) {
	staff := strPtr("staff-1")
	src := &fakeRuleSource{
		rules: []model.AvailabilityRule{rule(staff, 1, 9*60, 17*60)},
		exceptions: []model.AvailabilityException{
			{BusinessID: "biz-1", Date: monday, IsClosed: true},
			{BusinessID: "biz-1", StaffID: staff, Date: monday, OverrideStart: intPtr(10 * 60), OverrideEnd: intPtr(14 * 60)},
		},
	}
	store := NewStore(src)

	got, err := store.EffectiveHours(context.Background(), "biz-1", staff, monday, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if got.Closed || len(got.Windows) != 1 {
		t.Fatalf("expected the staff override window, got %+v", got)
	}
	if got.Windows[0].Start.Hour() != 10 || got.Windows[0].End.Hour() != 14 {
		t.Fatalf("unexpected window %v", got.Windows[0])
	}
}

func TestEffectiveHours_NoExceptionUsesRules(t *testing.T) {
	staff := strPtr("staff-1")
	src := &fakeRuleSource{
		rules: []model.AvailabilityRule{rule(staff, 1, 9*60, 17*60)},
	}
	store := NewStore(src)

	got, err := store.EffectiveHours(context.Background(), "biz-1", staff, monday, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if got.Closed || len(got.Windows) != 1 || got.Windows[0].Start.Hour() != 9 {
		t.Fatalf("expected the staff rule window, got %+v", got)
	}
}
