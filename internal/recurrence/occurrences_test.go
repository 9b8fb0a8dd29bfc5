package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/ayoubkh/schedula/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestOccurrencesWeekly(t *testing.T) {
	tmpl := model.RecurringTemplate{
		Frequency: model.FrequencyWeekly,
		StartDate: date(2024, 1, 1), // a Monday
		TimeOfDay: "10:00",
	}
	from := date(2024, 1, 1)
	to := from.AddDate(0, 0, 30)

	occs, err := Occurrences(tmpl, time.UTC, from, to)
	if err != nil {
		t.Fatal(err)
	}
	if len(occs) != 5 {
		t.Fatalf("expected 5 occurrences in 30 days, got %d: %v", len(occs), occs)
	}
	for i, want := range []int{1, 8, 15, 22, 29} {
		exp := time.Date(2024, 1, want, 10, 0, 0, 0, time.UTC)
		if !occs[i].Equal(exp) {
			t.Errorf("occurrence %d = %v, want %v", i, occs[i], exp)
		}
	}
}

func TestOccurrencesBiWeekly(t *testing.T) {
	tmpl := model.RecurringTemplate{
		Frequency: model.FrequencyBiWeekly,
		StartDate: date(2024, 1, 1),
		TimeOfDay: "09:30",
	}
	occs, err := Occurrences(tmpl, time.UTC, date(2024, 1, 1), date(2024, 1, 31))
	if err != nil {
		t.Fatal(err)
	}
	if len(occs) != 3 {
		t.Fatalf("expected 3 occurrences, got %d: %v", len(occs), occs)
	}
	if got := occs[2]; !got.Equal(time.Date(2024, 1, 29, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("third occurrence = %v", got)
	}
}

func TestOccurrencesMonthlyClampsShortMonths(t *testing.T) {
	tmpl := model.RecurringTemplate{
		Frequency: model.FrequencyMonthly,
		StartDate: date(2024, 1, 31),
		TimeOfDay: "12:00",
	}
	occs, err := Occurrences(tmpl, time.UTC, date(2024, 1, 1), date(2024, 5, 1))
	if err != nil {
		t.Fatal(err)
	}
	want := []time.Time{
		time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), // leap year clamp
		time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC), // anchor day restored
		time.Date(2024, 4, 30, 12, 0, 0, 0, time.UTC),
	}
	if len(occs) != len(want) {
		t.Fatalf("expected %d occurrences, got %d: %v", len(want), len(occs), occs)
	}
	for i := range want {
		if !occs[i].Equal(want[i]) {
			t.Errorf("occurrence %d = %v, want %v", i, occs[i], want[i])
		}
	}
}

func TestOccurrencesMonthlyNonLeapFebruary(t *testing.T) {
	tmpl := model.RecurringTemplate{
		Frequency: model.FrequencyMonthly,
		StartDate: date(2023, 1, 31),
		TimeOfDay: "12:00",
	}
	occs, err := Occurrences(tmpl, time.UTC, date(2023, 2, 1), date(2023, 3, 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(occs) != 1 || !occs[0].Equal(time.Date(2023, 2, 28, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected single Feb 28 occurrence, got %v", occs)
	}
}

func TestOccurrencesRespectsEndDate(t *testing.T) {
	end := date(2024, 1, 15)
	tmpl := model.RecurringTemplate{
		Frequency: model.FrequencyWeekly,
		StartDate: date(2024, 1, 1),
		EndDate:   &end,
		TimeOfDay: "10:00",
	}
	occs, err := Occurrences(tmpl, time.UTC, date(2024, 1, 1), date(2024, 3, 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(occs) != 3 {
		t.Fatalf("expected 3 occurrences up to end date, got %d: %v", len(occs), occs)
	}
}

func TestOccurrencesLocalTimeAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	tmpl := model.RecurringTemplate{
		Frequency: model.FrequencyWeekly,
		StartDate: date(2024, 3, 25), // week before and after the CET→CEST switch
		TimeOfDay: "10:00",
	}
	occs, err := Occurrences(tmpl, loc, date(2024, 3, 20), date(2024, 4, 10))
	if err != nil {
		t.Fatal(err)
	}
	if len(occs) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(occs))
	}
	for _, at := range occs {
		local := at.In(loc)
		if local.Hour() != 10 || local.Minute() != 0 {
			t.Errorf("occurrence %v is %02d:%02d local, want 10:00", at, local.Hour(), local.Minute())
		}
	}
}

func TestOccurrencesInvalidInput(t *testing.T) {
	tmpl := model.RecurringTemplate{
		Frequency: model.FrequencyWeekly,
		StartDate: date(2024, 1, 1),
		TimeOfDay: "25:00",
	}
	if _, err := Occurrences(tmpl, time.UTC, date(2024, 1, 1), date(2024, 2, 1)); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("bad time of day: err = %v, want ErrInvalidInput", err)
	}

	tmpl.TimeOfDay = "10:00"
	tmpl.Frequency = "daily"
	if _, err := Occurrences(tmpl, time.UTC, date(2024, 1, 1), date(2024, 2, 1)); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("bad frequency: err = %v, want ErrInvalidInput", err)
	}
}
