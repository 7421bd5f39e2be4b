package models

import (
	"testing"
	"time"
)

func activePerson(accessible bool) Person {
	a := accessible
	return Person{
		Status:        PersonStatusActive,
		Accessibility: &a,
		AdmissionDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func population(total, accessible int) []Person {
	persons := make([]Person, 0, total)
	for i := 0; i < total; i++ {
		persons = append(persons, activePerson(i < accessible))
	}
	return persons
}

func TestRequiredAccessibilityPercent_TierBoundaries(t *testing.T) {
	cases := []struct {
		totalActive int
		expected    int
	}{
		{0, 0},
		{49, 0},
		{50, 2},
		{200, 2},
		{201, 3},
		{500, 3},
		{501, 4},
		{1000, 4},
		{1001, 5},
		{5000, 5},
	}
	for _, tc := range cases {
		if got := RequiredAccessibilityPercent(tc.totalActive); got != tc.expected {
			t.Fatalf("RequiredAccessibilityPercent(%d) expected %d, got %d", tc.totalActive, tc.expected, got)
		}
	}
}

func TestCalculateCompliance_RoundsRequiredCountUp(t *testing.T) {
	// 300 actives at 3% is exactly 9; 301 actives is 9.03 and must round to 10.
	snapshot := CalculateCompliance(population(300, 9))
	if snapshot.RequiredCount != 9 {
		t.Fatalf("expected required count 9, got %d", snapshot.RequiredCount)
	}
	if !snapshot.Compliant || snapshot.Deficit != 0 {
		t.Fatalf("300/9 should be compliant with zero deficit, got compliant=%v deficit=%d", snapshot.Compliant, snapshot.Deficit)
	}

	snapshot = CalculateCompliance(population(301, 9))
	if snapshot.RequiredCount != 10 {
		t.Fatalf("expected required count 10 for 301 actives, got %d", snapshot.RequiredCount)
	}
	if snapshot.Compliant || snapshot.Deficit != 1 {
		t.Fatalf("301/9 should have deficit 1, got compliant=%v deficit=%d", snapshot.Compliant, snapshot.Deficit)
	}
}

func TestCalculateCompliance_IgnoresInactivePersons(t *testing.T) {
	persons := population(49, 5)
	for i := 0; i < 30; i++ {
		p := activePerson(true)
		p.Status = PersonStatusInactive
		persons = append(persons, p)
	}

	snapshot := CalculateCompliance(persons)
	if snapshot.TotalActivePersons != 49 {
		t.Fatalf("expected 49 active persons, got %d", snapshot.TotalActivePersons)
	}
	// Below 50 actives no quota applies regardless of the inactive tail.
	if snapshot.RequiredCount != 0 || !snapshot.Compliant {
		t.Fatalf("sub-50 population should have no quota, got required=%d compliant=%v", snapshot.RequiredCount, snapshot.Compliant)
	}
}

func TestMonitorCompliance_Priorities(t *testing.T) {
	// 300 actives require 9 accessible. 8 accessible: deficit 1 (high).
	alerts := MonitorCompliance(population(300, 8), 0.5)
	if len(alerts) != 1 || alerts[0].Priority != AlertPriorityHigh {
		t.Fatalf("deficit 1 of 9 expected one high alert, got %+v", alerts)
	}

	// 2 accessible: deficit 7 >= 50%% of 9 (critical).
	alerts = MonitorCompliance(population(300, 2), 0.5)
	if len(alerts) != 1 || alerts[0].Priority != AlertPriorityCritical {
		t.Fatalf("deficit 7 of 9 expected one critical alert, got %+v", alerts)
	}

	// Exactly at threshold: info alert warns the next termination breaks it.
	alerts = MonitorCompliance(population(300, 9), 0.5)
	if len(alerts) != 1 || alerts[0].Priority != AlertPriorityInfo {
		t.Fatalf("exact threshold expected one info alert, got %+v", alerts)
	}

	// Comfortably above threshold: silence.
	alerts = MonitorCompliance(population(300, 15), 0.5)
	if len(alerts) != 0 {
		t.Fatalf("surplus population expected no alerts, got %+v", alerts)
	}
}

func TestProjectCompliance_ScenarioDoesNotMutate(t *testing.T) {
	persons := population(300, 9)

	projected := ProjectCompliance(persons, ComplianceScenario{
		Terminations:           10,
		AccessibleTerminations: 2,
	})
	if projected.TotalActivePersons != 290 {
		t.Fatalf("expected 290 projected actives, got %d", projected.TotalActivePersons)
	}
	if projected.TotalAccessiblePersons != 7 {
		t.Fatalf("expected 7 projected accessible, got %d", projected.TotalAccessiblePersons)
	}
	// 290 at 3% = 8.7 -> 9 required; 7 accessible leaves deficit 2.
	if projected.RequiredCount != 9 || projected.Deficit != 2 {
		t.Fatalf("expected required 9 deficit 2, got required=%d deficit=%d", projected.RequiredCount, projected.Deficit)
	}

	// The real population is untouched.
	current := CalculateCompliance(persons)
	if current.TotalActivePersons != 300 || current.TotalAccessiblePersons != 9 {
		t.Fatalf("projection mutated the input population: %+v", current)
	}
}

func TestProjectCompliance_ClampsAtZero(t *testing.T) {
	projected := ProjectCompliance(population(3, 1), ComplianceScenario{
		Terminations:           10,
		AccessibleTerminations: 5,
	})
	if projected.TotalActivePersons != 0 || projected.TotalAccessiblePersons != 0 {
		t.Fatalf("over-termination must clamp at zero, got %+v", projected)
	}
}
