package workflow

import (
	"sync"
	"testing"
	"time"

	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/models"
)

// NOTE: These tests are intentionally DB-free. They validate the intended
// intake semantics:
// - at-least-once webhook delivery is safe via durable idempotency keys
// - decisions on one proposal level serialize, so two concurrent final
//   approvals cannot both complete it
//
// Full DB integration tests require MySQL; see the INTEGRATION_TESTS-gated
// suites.

type fakeIntake struct {
	mu       sync.Mutex
	byRecord map[int]*sync.Mutex
	seen     map[string]bool
	applied  int
}

func newFakeIntake() *fakeIntake {
	return &fakeIntake{
		byRecord: map[int]*sync.Mutex{},
		seen:     map[string]bool{},
	}
}

func (f *fakeIntake) deliver(organizationId, eventId string, recordId int, apply func()) {
	// Serialize per staffing record (workflow AcquireStaffingRecordLock).
	f.mu.Lock()
	rm := f.byRecord[recordId]
	if rm == nil {
		rm = &sync.Mutex{}
		f.byRecord[recordId] = rm
	}
	f.mu.Unlock()

	rm.Lock()
	defer rm.Unlock()

	// Deduplicate (workflow BeginIdempotency).
	key := organizationId + "|hr-event-reconcile|" + eventId
	f.mu.Lock()
	if f.seen[key] {
		f.mu.Unlock()
		return
	}
	f.seen[key] = true
	f.mu.Unlock()

	apply()

	f.mu.Lock()
	f.applied++
	f.mu.Unlock()
}

func TestDuplicateDelivery_AppliesOnce(t *testing.T) {
	intake := newFakeIntake()
	record := &models.StaffingRecord{PlannedCount: 10, FilledCount: 0}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			intake.deliver("org-1", "evt-dup", 1, func() {
				_ = record.Admit()
			})
		}()
	}
	wg.Wait()

	if intake.applied != 1 {
		t.Fatalf("duplicate delivery applied %d times", intake.applied)
	}
	if record.FilledCount != 1 {
		t.Fatalf("filled count expected 1, got %d", record.FilledCount)
	}
}

func TestConcurrentAdmissions_NeverExceedPlanned(t *testing.T) {
	intake := newFakeIntake()
	record := &models.StaffingRecord{PlannedCount: 5, FilledCount: 0}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		eventId := "evt-" + string(rune('a'+i%26)) + string(rune('0'+i/26))
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			intake.deliver("org-1", id, 1, func() {
				_ = record.Admit()
			})
		}(eventId)
	}
	wg.Wait()

	if record.FilledCount != 5 {
		t.Fatalf("distinct admissions into 5 slots expected filled 5, got %d", record.FilledCount)
	}
	if record.FilledCount > record.PlannedCount {
		t.Fatalf("filled %d exceeded planned %d", record.FilledCount, record.PlannedCount)
	}
}

func TestConcurrentFinalApprovals_OnlyOneCompletes(t *testing.T) {
	proposal := &models.Proposal{
		ID:             1,
		Kind:           models.ProposalKindModify,
		RequestedDelta: 2,
		Status:         models.ProposalStatusForLevel(1),
		LevelCount:     1,
	}
	decisions := []models.ApprovalDecision{
		{ID: 1, ProposalId: 1, Level: 1, ApproverId: 10, Action: models.DecisionActionPending},
	}

	// The per-(proposal, level) lock the workflow takes through redislock.
	var levelLock sync.Mutex
	completions := 0

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			levelLock.Lock()
			defer levelLock.Unlock()
			approved, err := proposal.ApplyDecision(decisions, 1, 10, models.DecisionActionApproved, "", time.Now())
			if approved && err == nil {
				completions++
			}
		}()
	}
	wg.Wait()

	if completions != 1 {
		t.Fatalf("exactly one final approval must complete the proposal, got %d", completions)
	}
	if proposal.Status != models.ProposalStatusApproved {
		t.Fatalf("proposal should end approved, got %s", proposal.Status)
	}
}
