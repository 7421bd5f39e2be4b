package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/config"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/utils"
	"gorm.io/gorm"
)

// AuditEntry is an append-only fact about another entity. There is no update
// or delete path for it anywhere in this codebase; the exported Update/Delete
// functions exist only to fail loudly.
type AuditEntry struct {
	ID             int         `gorm:"primary_key" json:"id"`
	OrganizationId string      `gorm:"index;not null" json:"organization_id"`
	EntityId       int         `gorm:"index;not null" json:"entity_id"`
	EntityType     string      `gorm:"size:100;index;not null" json:"entity_type"`
	Action         AuditAction `gorm:"size:20;not null" json:"action"`
	Before         string      `gorm:"type:text" json:"before"`
	After          string      `gorm:"type:text" json:"after"`
	Reason         string      `gorm:"type:text" json:"reason"`
	UserId         int         `gorm:"index" json:"user_id"`
	UserName       string      `gorm:"size:100" json:"user_name"`
	CorrelationId  string      `gorm:"size:64;index" json:"correlation_id"`
	SessionId      string      `gorm:"size:64" json:"session_id"`
	CreatedAt      time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

type NewAuditEntry struct {
	EntityId   int
	EntityType string
	Action     AuditAction
	Before     interface{}
	After      interface{}
	Reason     string
}

// RedactionMarker replaces sensitive values before storage. Redacted values
// are never round-trippable.
const RedactionMarker = "***REDACTED***"

var sensitiveFieldNames = map[string]bool{
	"government_id":  true,
	"cpf":            true,
	"password":       true,
	"secret":         true,
	"webhook_secret": true,
	"api_key":        true,
	"hr_api_key_ref": true,
}

func redactSnapshot(obj interface{}) (string, error) {
	if obj == nil {
		return "", nil
	}
	m, err := utils.SnapshotToMap(obj)
	if err != nil {
		return "", err
	}
	for k := range m {
		if sensitiveFieldNames[strings.ToLower(k)] {
			marker, _ := json.Marshal(RedactionMarker)
			m[k] = marker
		}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// RecordAudit appends one entry inside the caller's transaction. Actor and
// correlation identity come from the transaction's context; there is no
// ambient global audit state.
func RecordAudit(tx *gorm.DB, input NewAuditEntry) error {

	ctx := tx.Statement.Context
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return errors.New("organization id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, _ := utils.GetUserNameFromContext(ctx)
	sessionId, _ := utils.GetSessionIdFromContext(ctx)

	before, err := redactSnapshot(input.Before)
	if err != nil {
		return fmt.Errorf("marshal before snapshot: %w", err)
	}
	after, err := redactSnapshot(input.After)
	if err != nil {
		return fmt.Errorf("marshal after snapshot: %w", err)
	}

	entry := AuditEntry{
		OrganizationId: organizationId,
		EntityId:       input.EntityId,
		EntityType:     input.EntityType,
		Action:         input.Action,
		Before:         before,
		After:          after,
		Reason:         input.Reason,
		UserId:         userId,
		UserName:       userName,
		CorrelationId:  correlationIdFromContextOrNew(ctx),
		SessionId:      sessionId,
	}
	return tx.Create(&entry).Error
}

// ChangedFields derives the delta summary on read; it is not stored.
func (e *AuditEntry) ChangedFields() ([]string, error) {
	before, err := utils.SnapshotToMap(e.Before)
	if err != nil {
		return nil, err
	}
	after, err := utils.SnapshotToMap(e.After)
	if err != nil {
		return nil, err
	}
	return utils.ChangedFields(before, after), nil
}

// AuditTrail returns every entry for the entity, oldest first. This is the
// sole mechanism for reconstructing entity history.
func AuditTrail(ctx context.Context, entityId int, entityType string) ([]*AuditEntry, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).
		Where("organization_id = ? AND entity_id = ?", organizationId, entityId)
	if entityType != "" {
		dbCtx = dbCtx.Where("entity_type = ?", entityType)
	}

	var entries []*AuditEntry
	err := dbCtx.Order("created_at ASC, id ASC").Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ChainBreak reports a discontinuity between consecutive audit entries:
// entry N's after-snapshot does not match entry N+1's before-snapshot.
type ChainBreak struct {
	PrevEntryId int      `json:"prev_entry_id"`
	NextEntryId int      `json:"next_entry_id"`
	Fields      []string `json:"fields"`
}

// ValidateAuditChain replays the trail and reports breaks as warnings; a break
// is never an error during normal writes.
func ValidateAuditChain(ctx context.Context, entityId int, entityType string) ([]ChainBreak, error) {

	entries, err := AuditTrail(ctx, entityId, entityType)
	if err != nil {
		return nil, err
	}
	return validateChain(entries), nil
}

func validateChain(entries []*AuditEntry) []ChainBreak {
	var breaks []ChainBreak
	for i := 0; i+1 < len(entries); i++ {
		prev := entries[i]
		next := entries[i+1]
		if prev.After == "" || next.Before == "" {
			continue
		}
		prevAfter, err := utils.SnapshotToMap(prev.After)
		if err != nil {
			continue
		}
		nextBefore, err := utils.SnapshotToMap(next.Before)
		if err != nil {
			continue
		}
		// updated_at legitimately moves between entries.
		delete(prevAfter, "updated_at")
		delete(nextBefore, "updated_at")
		if changed := utils.ChangedFields(prevAfter, nextBefore); len(changed) > 0 {
			breaks = append(breaks, ChainBreak{
				PrevEntryId: prev.ID,
				NextEntryId: next.ID,
				Fields:      changed,
			})
		}
	}
	return breaks
}

// UpdateAuditEntry always fails: entries are append-only.
func UpdateAuditEntry(ctx context.Context, id int, input interface{}) (*AuditEntry, error) {
	return nil, utils.ErrorImmutableEntity
}

// DeleteAuditEntry always fails: entries are append-only.
func DeleteAuditEntry(ctx context.Context, id int) (*AuditEntry, error) {
	return nil, utils.ErrorImmutableEntity
}
