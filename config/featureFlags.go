package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// WebhookLatencyTarget is the end-to-end processing budget per inbound HR event.
// Exceeding it is logged as a warning, never treated as a failure.
//
// Set via env:
// - WEBHOOK_LATENCY_TARGET_MS (default 2000)
func WebhookLatencyTarget() time.Duration {
	if v := strings.TrimSpace(os.Getenv("WEBHOOK_LATENCY_TARGET_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return 2 * time.Second
}

// ApprovalMaxPendingAge is the age after which a pending approval decision is
// flagged overdue for escalation.
//
// Set via env:
// - APPROVAL_MAX_PENDING_DAYS (default 3)
func ApprovalMaxPendingAge() time.Duration {
	if v := strings.TrimSpace(os.Getenv("APPROVAL_MAX_PENDING_DAYS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * 24 * time.Hour
		}
	}
	return 3 * 24 * time.Hour
}

// ComplianceCriticalShare is the fraction of the required accessible headcount
// that, once exceeded by the deficit, escalates a compliance alert to critical.
//
// Set via env:
// - COMPLIANCE_CRITICAL_SHARE (default 0.5)
func ComplianceCriticalShare() float64 {
	if v := strings.TrimSpace(os.Getenv("COMPLIANCE_CRITICAL_SHARE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
			return f
		}
	}
	return 0.5
}
