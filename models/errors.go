package models

import (
	"errors"
	"fmt"
)

var (
	ErrDecisionNotFound      = errors.New("no decision assigned to this approver at this level")
	ErrInvalidDecisionAction = errors.New("decision action must be APPROVED or REJECTED")
)

// Business-rule violations carry the numeric context needed to explain the
// rejection to the caller. None of them mutate state.

type DuplicateRecordError struct {
	PlanId     int
	PositionId int
	CargoId    int
}

func (e *DuplicateRecordError) Error() string {
	return fmt.Sprintf("staffing record already exists for plan=%d position=%d cargo=%d",
		e.PlanId, e.PositionId, e.CargoId)
}

type NoAvailableSlotError struct {
	Planned  int
	Filled   int
	Reserved int
}

func (e *NoAvailableSlotError) Error() string {
	return fmt.Sprintf("no available slot: planned=%d filled=%d reserved=%d",
		e.Planned, e.Filled, e.Reserved)
}

type NoOccupantToRemoveError struct {
	Filled int
}

func (e *NoOccupantToRemoveError) Error() string {
	return fmt.Sprintf("no occupant to remove: filled=%d", e.Filled)
}

type NoReservationToReleaseError struct {
	Reserved int
}

func (e *NoReservationToReleaseError) Error() string {
	return fmt.Sprintf("no reservation to release: reserved=%d", e.Reserved)
}

type WouldCreateDeficitError struct {
	NewPlanned int
	Filled     int
}

func (e *WouldCreateDeficitError) Error() string {
	return fmt.Sprintf("planned count %d below filled count %d would create a deficit of %d",
		e.NewPlanned, e.Filled, e.Filled-e.NewPlanned)
}

func (e *WouldCreateDeficitError) Deficit() int {
	return e.Filled - e.NewPlanned
}

type HasActiveOccupantsError struct {
	Filled int
}

func (e *HasActiveOccupantsError) Error() string {
	return fmt.Sprintf("record still has %d active occupant(s)", e.Filled)
}

type NotSubmittableError struct {
	Status ProposalStatus
	Reason string
}

func (e *NotSubmittableError) Error() string {
	return fmt.Sprintf("proposal not submittable (status=%s): %s", e.Status, e.Reason)
}

type LevelMismatchError struct {
	CurrentStatus  ProposalStatus
	RequestedLevel int
}

func (e *LevelMismatchError) Error() string {
	return fmt.Sprintf("decision targets level %d but proposal is at %s",
		e.RequestedLevel, e.CurrentStatus)
}

type NotPendingError struct {
	Level      int
	ApproverId int
	Action     DecisionAction
}

func (e *NotPendingError) Error() string {
	return fmt.Sprintf("decision already recorded as %s (level=%d approver=%d)",
		e.Action, e.Level, e.ApproverId)
}
