package appointments

import (
	"testing"
	"time"
)

func TestUpcomingPendingExcludesPast(t *testing.T) {
	reference := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	appts := []Appointment{
		{ID: "future", Date: "2024-01-10", Time: "09:00", Status: StatusPending},
		{ID: "past", Date: "2024-01-09", Time: "09:00", Status: StatusPending},
	}

	got := UpcomingPending(appts, reference, 2)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].ID != "future" {
		t.Errorf("kept %q, want future", got[0].ID)
	}
}

func TestUpcomingPendingExcludesNonPendingStatuses(t *testing.T) {
	reference := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	appts := []Appointment{
		{ID: "done", Date: "2024-06-01", Time: "10:00", Status: StatusCompleted},
		{ID: "gone", Date: "2024-06-01", Time: "11:00", Status: StatusCancelled},
		{ID: "set", Date: "2024-06-01", Time: "12:00", Status: StatusConfirmed},
	}

	if got := UpcomingPending(appts, reference, 5); len(got) != 0 {
		t.Fatalf("expected empty output, got %d records", len(got))
	}
}

func TestUpcomingPendingTreatsAbsentStatusAsPending(t *testing.T) {
	reference := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	appts := []Appointment{
		{ID: "unset", Date: "2024-06-01", Time: "10:00"},
	}

	got := UpcomingPending(appts, reference, 5)
	if len(got) != 1 || got[0].ID != "unset" {
		t.Fatalf("expected the status-less record kept, got %v", got)
	}
}

func TestUpcomingPendingOrdersAscendingAndTruncates(t *testing.T) {
	reference := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	appts := []Appointment{
		{ID: "c", Date: "2024-03-01", Time: "09:00", Status: StatusPending},
		{ID: "a", Date: "2024-01-15", Time: "09:00", Status: StatusPending},
		{ID: "b", Date: "2024-02-01", Time: "09:00", Status: StatusPending},
	}

	got := UpcomingPending(appts, reference, 2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("order = [%s %s], want [a b]", got[0].ID, got[1].ID)
	}
}

func TestUpcomingPendingStableOnTies(t *testing.T) {
	reference := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	appts := []Appointment{
		{ID: "first", Date: "2024-02-01", Time: "09:00", Status: StatusPending},
		{ID: "second", Date: "2024-02-01", Time: "09:00", Status: StatusPending},
	}

	got := UpcomingPending(appts, reference, 2)
	if len(got) != 2 || got[0].ID != "first" || got[1].ID != "second" {
		t.Fatalf("tie order not preserved: %v", got)
	}
}

func TestUpcomingPendingExcludesMalformedDates(t *testing.T) {
	reference := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	appts := []Appointment{
		{ID: "bad-date", Date: "not-a-date", Time: "09:00", Status: StatusPending},
		{ID: "bad-time", Date: "2024-02-01", Time: "morning", Status: StatusPending},
		{ID: "empty", Status: StatusPending},
		{ID: "ok", Date: "2024-02-01", Time: "09:00", Status: StatusPending},
	}

	got := UpcomingPending(appts, reference, 5)
	if len(got) != 1 || got[0].ID != "ok" {
		t.Fatalf("expected only the well-formed record, got %v", got)
	}
}

func TestUpcomingPendingIncludesExactReferenceInstant(t *testing.T) {
	reference := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	appts := []Appointment{
		{ID: "boundary", Date: "2024-02-01", Time: "09:00", Status: StatusPending},
	}

	got := UpcomingPending(appts, reference, 1)
	if len(got) != 1 {
		t.Fatalf("appointment at the reference instant should be kept")
	}
}

func TestUpcomingPendingEmptyInput(t *testing.T) {
	if got := UpcomingPending(nil, time.Now(), 2); len(got) != 0 {
		t.Fatalf("expected empty output for empty input, got %v", got)
	}
}

func TestUpcomingPendingIdempotent(t *testing.T) {
	reference := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	appts := []Appointment{
		{ID: "b", Date: "2024-02-01", Time: "10:00", Status: StatusPending},
		{ID: "a", Date: "2024-02-01", Time: "09:00", Status: StatusPending},
		{ID: "c", Date: "2024-02-02", Time: "09:00", Status: StatusPending},
	}

	once := UpcomingPending(appts, reference, 2)
	twice := UpcomingPending(once, reference, 2)
	if len(once) != len(twice) {
		t.Fatalf("idempotence broken: %v vs %v", once, twice)
	}
	for i := range once {
		if once[i].ID != twice[i].ID {
			t.Fatalf("idempotence broken at %d: %v vs %v", i, once, twice)
		}
	}
}

func TestStartsAtAcceptsOptionalSeconds(t *testing.T) {
	withSeconds := Appointment{Date: "2024-02-01", Time: "09:30:15"}
	got, err := withSeconds.StartsAt()
	if err != nil {
		t.Fatalf("StartsAt with seconds: %v", err)
	}
	if want := time.Date(2024, 2, 1, 9, 30, 15, 0, time.UTC); !got.Equal(want) {
		t.Errorf("instant = %v, want %v", got, want)
	}

	withoutSeconds := Appointment{Date: "2024-02-01", Time: "09:30"}
	got, err = withoutSeconds.StartsAt()
	if err != nil {
		t.Fatalf("StartsAt without seconds: %v", err)
	}
	if want := time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("instant = %v, want %v", got, want)
	}
}
