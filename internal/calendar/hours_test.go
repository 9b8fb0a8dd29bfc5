package calendar

import (
	"testing"
	"time"

	"github.com/ayoubkh/schedula/internal/model"
)

var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // weekday 1

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func rule(staffID *string, weekday, startMin, endMin int) model.AvailabilityRule {
	return model.AvailabilityRule{
		BusinessID:  "biz-1",
		StaffID:     staffID,
		Weekday:     weekday,
		StartMinute: startMin,
		EndMinute:   endMin,
	}
}

func TestResolveDay_BusinessRules(t *testing.T) {
	rules := []model.AvailabilityRule{
		rule(nil, 1, 9*60, 17*60),
		rule(nil, 2, 10*60, 18*60), // different weekday, ignored
	}
	got := ResolveDay(rules, nil, monday, time.UTC, nil)
	if got.Closed {
		t.Fatal("expected open day")
	}
	if len(got.Windows) != 1 {
		t.Fatalf("expected 1 window, got %d", len(got.Windows))
	}
	if got.Windows[0].Start.Hour() != 9 || got.Windows[0].End.Hour() != 17 {
		t.Fatalf("unexpected window %v", got.Windows[0])
	}
}

func TestResolveDay_NoRuleMeansClosed(t *testing.T) {
	got := ResolveDay(nil, nil, monday, time.UTC, nil)
	if !got.Closed {
		t.Fatal("expected closed day when no rule matches")
	}
}

func TestResolveDay_SplitShiftSorted(t *testing.T) {
	rules := []model.AvailabilityRule{
		rule(nil, 1, 14*60, 18*60),
		rule(nil, 1, 9*60, 12*60),
	}
	got := ResolveDay(rules, nil, monday, time.UTC, nil)
	if len(got.Windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(got.Windows))
	}
	if !got.Windows[0].Start.Before(got.Windows[1].Start) {
		t.Fatal("windows not sorted by start")
	}
}

func TestResolveDay_StaffRulesReplaceBusinessRules(t *testing.T) {
	staff := strPtr("staff-1")
	rules := []model.AvailabilityRule{
		rule(nil, 1, 9*60, 17*60),
		rule(staff, 1, 12*60, 20*60),
	}
	got := ResolveDay(rules, nil, monday, time.UTC, staff)
	if len(got.Windows) != 1 {
		t.Fatalf("expected staff rule to replace business rule, got %d windows", len(got.Windows))
	}
	if got.Windows[0].Start.Hour() != 12 {
		t.Fatalf("expected staff window 12:00, got %v", got.Windows[0].Start)
	}

	// Without a staff filter the business-wide rule applies.
	got = ResolveDay(rules, nil, monday, time.UTC, nil)
	if len(got.Windows) != 1 || got.Windows[0].Start.Hour() != 9 {
		t.Fatalf("expected business window 09:00, got %v", got.Windows)
	}
}

func TestResolveDay_ClosedExceptionOverridesRules(t *testing.T) {
	rules := []model.AvailabilityRule{rule(nil, 1, 9*60, 17*60)}
	exc := &model.AvailabilityException{IsClosed: true, Reason: "public holiday"}
	got := ResolveDay(rules, exc, monday, time.UTC, nil)
	if !got.Closed || len(got.Windows) != 0 {
		t.Fatalf("expected closed day, got %+v", got)
	}
}

func TestResolveDay_OverrideExceptionIsSingleWindow(t *testing.T) {
	rules := []model.AvailabilityRule{
		rule(nil, 1, 9*60, 12*60),
		rule(nil, 1, 14*60, 18*60),
	}
	exc := &model.AvailabilityException{
		OverrideStart: intPtr(10 * 60),
		OverrideEnd:   intPtr(13 * 60),
	}
	got := ResolveDay(rules, exc, monday, time.UTC, nil)
	if got.Closed || len(got.Windows) != 1 {
		t.Fatalf("expected single override window, got %+v", got)
	}
	if got.Windows[0].Start.Hour() != 10 || got.Windows[0].End.Hour() != 13 {
		t.Fatalf("unexpected override window %v", got.Windows[0])
	}
}

func TestResolveDay_LocalTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Fatal(err)
	}
	rules := []model.AvailabilityRule{rule(nil, 1, 9*60, 17*60)}
	got := ResolveDay(rules, nil, monday, loc, nil)
	if got.Windows[0].Start.Location() != loc {
		t.Fatal("window not anchored in business timezone")
	}
	if got.Windows[0].Start.Hour() != 9 {
		t.Fatalf("expected 09:00 local, got %v", got.Windows[0].Start)
	}
}
