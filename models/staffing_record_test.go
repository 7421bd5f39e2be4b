package models

import (
	"errors"
	"testing"
)

func testRecord(planned, filled, reserved int) *StaffingRecord {
	return &StaffingRecord{
		PlannedCount:  planned,
		FilledCount:   filled,
		ReservedCount: reserved,
	}
}

func TestStaffingRecord_AdmitUntilFull(t *testing.T) {
	r := testRecord(5, 3, 0)

	if err := r.Admit(); err != nil {
		t.Fatalf("admit into 3/5 should succeed: %v", err)
	}
	if err := r.Admit(); err != nil {
		t.Fatalf("admit into 4/5 should succeed: %v", err)
	}

	err := r.Admit()
	var noSlot *NoAvailableSlotError
	if !errors.As(err, &noSlot) {
		t.Fatalf("admit into full record expected NoAvailableSlotError, got %v", err)
	}
	if noSlot.Planned != 5 || noSlot.Filled != 5 {
		t.Fatalf("error should carry counts 5/5, got %+v", noSlot)
	}
	if r.FilledCount != 5 {
		t.Fatalf("failed admit must not change state, filled=%d", r.FilledCount)
	}
}

func TestStaffingRecord_ReservationsConsumeSlots(t *testing.T) {
	r := testRecord(5, 3, 2)

	err := r.Admit()
	var noSlot *NoAvailableSlotError
	if !errors.As(err, &noSlot) {
		t.Fatalf("3 filled + 2 reserved of 5 leaves no slot, got %v", err)
	}

	if err := r.ReleaseReservation(); err != nil {
		t.Fatalf("release of an existing reservation: %v", err)
	}
	if err := r.Admit(); err != nil {
		t.Fatalf("admit after release should succeed: %v", err)
	}
	if r.FilledCount != 4 || r.ReservedCount != 1 {
		t.Fatalf("expected 4 filled 1 reserved, got %d/%d", r.FilledCount, r.ReservedCount)
	}
}

func TestStaffingRecord_TerminateRequiresOccupant(t *testing.T) {
	r := testRecord(5, 0, 0)

	err := r.Terminate()
	var noOccupant *NoOccupantToRemoveError
	if !errors.As(err, &noOccupant) {
		t.Fatalf("terminate on empty record expected NoOccupantToRemoveError, got %v", err)
	}
}

func TestStaffingRecord_ReleaseRequiresReservation(t *testing.T) {
	r := testRecord(5, 2, 0)

	err := r.ReleaseReservation()
	var noRes *NoReservationToReleaseError
	if !errors.As(err, &noRes) {
		t.Fatalf("release with zero reserved expected NoReservationToReleaseError, got %v", err)
	}
}

func TestStaffingRecord_SetPlannedRejectsDeficit(t *testing.T) {
	r := testRecord(10, 7, 0)

	err := r.SetPlanned(5)
	var deficit *WouldCreateDeficitError
	if !errors.As(err, &deficit) {
		t.Fatalf("shrinking below filled expected WouldCreateDeficitError, got %v", err)
	}
	if deficit.Deficit() != 2 {
		t.Fatalf("expected deficit 2, got %d", deficit.Deficit())
	}
	if r.PlannedCount != 10 {
		t.Fatalf("failed SetPlanned must not change state, planned=%d", r.PlannedCount)
	}

	if err = r.SetPlanned(7); err != nil {
		t.Fatalf("shrinking to exactly filled should succeed: %v", err)
	}
	if r.AvailableSlots() != 0 {
		t.Fatalf("expected zero available slots, got %d", r.AvailableSlots())
	}
}

func TestStaffingRecord_DerivedAccessors(t *testing.T) {
	r := testRecord(8, 6, 1)

	if got := r.AvailableSlots(); got != 1 {
		t.Fatalf("expected 1 available slot, got %d", got)
	}
	if got := r.OccupancyRate().String(); got != "75" {
		t.Fatalf("expected occupancy 75, got %s", got)
	}
	if r.HasDeficit() {
		t.Fatalf("6 of 8 is not a deficit")
	}

	// A normalization correction can push filled past planned.
	r.FilledCount = 9
	if !r.HasDeficit() || r.DeficitAmount() != 1 {
		t.Fatalf("9 of 8 expected deficit 1, got %v/%d", r.HasDeficit(), r.DeficitAmount())
	}
	if r.AvailableSlots() != 0 {
		t.Fatalf("deficit record has no available slots, got %d", r.AvailableSlots())
	}
}

func TestStaffingRecord_ZeroPlannedOccupancy(t *testing.T) {
	r := testRecord(0, 0, 0)
	if got := r.OccupancyRate().String(); got != "0" {
		t.Fatalf("zero planned occupancy should be 0, got %s", got)
	}
}
