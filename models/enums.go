package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type ControlMode string

const (
	ControlModeDaily         ControlMode = "Daily"
	ControlModeAccrualPeriod ControlMode = "AccrualPeriod"
)

func (m *ControlMode) UnmarshalString(str string) error {
	switch str {
	case "Daily":
		*m = ControlModeDaily
	case "AccrualPeriod":
		*m = ControlModeAccrualPeriod
	default:
		return errors.New("invalid control mode")
	}
	return nil
}

type PersonStatus string

const (
	PersonStatusActive   PersonStatus = "Active"
	PersonStatusInactive PersonStatus = "Inactive"
)

func (s *PersonStatus) UnmarshalString(str string) error {
	switch strings.ToLower(str) {
	case "active":
		*s = PersonStatusActive
	case "inactive":
		*s = PersonStatusInactive
	default:
		return errors.New("invalid person status")
	}
	return nil
}

type ProposalKind string

const (
	ProposalKindAdd      ProposalKind = "Add"
	ProposalKindModify   ProposalKind = "Modify"
	ProposalKindRemove   ProposalKind = "Remove"
	ProposalKindTransfer ProposalKind = "Transfer"
)

func (k *ProposalKind) UnmarshalString(str string) error {
	switch str {
	case "Add":
		*k = ProposalKindAdd
	case "Modify":
		*k = ProposalKindModify
	case "Remove":
		*k = ProposalKindRemove
	case "Transfer":
		*k = ProposalKindTransfer
	default:
		return errors.New("invalid proposal kind")
	}
	return nil
}

// ProposalStatus is a strictly-ordered chain:
// DRAFT -> LEVEL_1 -> ... -> LEVEL_N [-> COMPLIANCE_REVIEW] -> APPROVED.
// Rejection at any stage resets to DRAFT.
type ProposalStatus string

const (
	ProposalStatusDraft            ProposalStatus = "DRAFT"
	ProposalStatusApproved         ProposalStatus = "APPROVED"
	ProposalStatusComplianceReview ProposalStatus = "COMPLIANCE_REVIEW"

	proposalLevelPrefix = "LEVEL_"
)

func ProposalStatusForLevel(level int) ProposalStatus {
	return ProposalStatus(fmt.Sprintf("%s%d", proposalLevelPrefix, level))
}

// LevelOf returns the approval level a status represents.
// COMPLIANCE_REVIEW counts as one past the configured levels.
func (s ProposalStatus) LevelOf(levelCount int) (int, bool) {
	if s == ProposalStatusComplianceReview {
		return levelCount + 1, true
	}
	if !strings.HasPrefix(string(s), proposalLevelPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(string(s), proposalLevelPrefix))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func (s ProposalStatus) IsPendingApproval(levelCount int) bool {
	_, ok := s.LevelOf(levelCount)
	return ok
}

// DecisionAction records an approver's verdict. Approved/Rejected map to the
// aprovado/rejeitado actions of the upstream staffing regulation.
type DecisionAction string

const (
	DecisionActionPending  DecisionAction = "PENDING"
	DecisionActionApproved DecisionAction = "APPROVED"
	DecisionActionRejected DecisionAction = "REJECTED"
)

func (a *DecisionAction) UnmarshalString(str string) error {
	switch strings.ToUpper(str) {
	case "APPROVED":
		*a = DecisionActionApproved
	case "REJECTED":
		*a = DecisionActionRejected
	default:
		return fmt.Errorf("%s is not a valid decision action", str)
	}
	return nil
}

// DiscrepancyMode configures, per organization, what to do when an HR event's
// cargo does not match the staffing record's expected cargo.
type DiscrepancyMode string

const (
	DiscrepancyModeAllow           DiscrepancyMode = "Allow"
	DiscrepancyModeAlert           DiscrepancyMode = "Alert"
	DiscrepancyModeBlock           DiscrepancyMode = "Block"
	DiscrepancyModeRequireApproval DiscrepancyMode = "RequireApproval"
)

func (m *DiscrepancyMode) UnmarshalString(str string) error {
	switch str {
	case "Allow":
		*m = DiscrepancyModeAllow
	case "Alert":
		*m = DiscrepancyModeAlert
	case "Block":
		*m = DiscrepancyModeBlock
	case "RequireApproval":
		*m = DiscrepancyModeRequireApproval
	default:
		return errors.New("invalid discrepancy mode")
	}
	return nil
}

type WebhookEventType string

const (
	WebhookEventTypeAdmitted    WebhookEventType = "admitted"
	WebhookEventTypeTransferred WebhookEventType = "transferred"
	WebhookEventTypeTerminated  WebhookEventType = "terminated"
	WebhookEventTypePromoted    WebhookEventType = "promoted"
)

func (t *WebhookEventType) UnmarshalString(str string) error {
	switch strings.ToLower(str) {
	case "admitted":
		*t = WebhookEventTypeAdmitted
	case "transferred":
		*t = WebhookEventTypeTransferred
	case "terminated":
		*t = WebhookEventTypeTerminated
	case "promoted":
		*t = WebhookEventTypePromoted
	default:
		return errors.New("invalid webhook event type")
	}
	return nil
}

// WebhookDeliveryStatus is the processing-side lifecycle of a stored inbound event.
type WebhookDeliveryStatus string

const (
	WebhookDeliveryStatusPending         WebhookDeliveryStatus = "PENDING"
	WebhookDeliveryStatusProcessing      WebhookDeliveryStatus = "PROCESSING"
	WebhookDeliveryStatusApplied         WebhookDeliveryStatus = "APPLIED"
	WebhookDeliveryStatusBlocked         WebhookDeliveryStatus = "BLOCKED"
	WebhookDeliveryStatusRejected        WebhookDeliveryStatus = "REJECTED"
	WebhookDeliveryStatusPendingApproval WebhookDeliveryStatus = "PENDING_APPROVAL"
	WebhookDeliveryStatusFailed          WebhookDeliveryStatus = "FAILED"
	WebhookDeliveryStatusDead            WebhookDeliveryStatus = "DEAD"
)

// EventOutcome is the caller-visible result of one reconciled event.
type EventOutcome string

const (
	EventOutcomeAllowed         EventOutcome = "allowed"
	EventOutcomeBlocked         EventOutcome = "blocked"
	EventOutcomePendingApproval EventOutcome = "pending-approval"
	EventOutcomeRejected        EventOutcome = "rejected"
)

type AuditAction string

const (
	AuditActionCreate    AuditAction = "CREATE"
	AuditActionUpdate    AuditAction = "UPDATE"
	AuditActionDelete    AuditAction = "DELETE"
	AuditActionAdmit     AuditAction = "ADMIT"
	AuditActionTerminate AuditAction = "TERMINATE"
	AuditActionReserve   AuditAction = "RESERVE"
	AuditActionRelease   AuditAction = "RELEASE"
	AuditActionTransfer  AuditAction = "TRANSFER"
	AuditActionPromote   AuditAction = "PROMOTE"
	AuditActionNormalize AuditAction = "NORMALIZE"
)

type AlertPriority string

const (
	AlertPriorityCritical AlertPriority = "Critical"
	AlertPriorityHigh     AlertPriority = "High"
	AlertPriorityInfo     AlertPriority = "Info"
)
