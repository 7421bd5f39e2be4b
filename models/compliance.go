package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ComplianceSnapshot is the statutory accessibility-quota position of an
// organization, computed on demand from the active population.
type ComplianceSnapshot struct {
	TotalActivePersons     int             `json:"total_active_persons"`
	TotalAccessiblePersons int             `json:"total_accessible_persons"`
	RequiredPercentage     decimal.Decimal `json:"required_percentage"`
	RequiredCount          int             `json:"required_count"`
	Deficit                int             `json:"deficit"`
	Compliant              bool            `json:"compliant"`
}

// RequiredAccessibilityPercent returns the statutory tier for the given active
// headcount: <50 none, 50-200 2%, 201-500 3%, 501-1000 4%, >1000 5%.
func RequiredAccessibilityPercent(totalActive int) int {
	switch {
	case totalActive < 50:
		return 0
	case totalActive <= 200:
		return 2
	case totalActive <= 500:
		return 3
	case totalActive <= 1000:
		return 4
	default:
		return 5
	}
}

// requiredCount = ceil(totalActive * percent / 100). Always rounds up, never
// down, even when the product divides exactly.
func requiredAccessibleCount(totalActive int, percent int) int {
	if percent <= 0 {
		return 0
	}
	return (totalActive*percent + 99) / 100
}

func snapshotFor(totalActive, totalAccessible int) ComplianceSnapshot {
	percent := RequiredAccessibilityPercent(totalActive)
	required := requiredAccessibleCount(totalActive, percent)
	deficit := required - totalAccessible
	if deficit < 0 {
		deficit = 0
	}
	return ComplianceSnapshot{
		TotalActivePersons:     totalActive,
		TotalAccessiblePersons: totalAccessible,
		RequiredPercentage:     decimal.NewFromInt(int64(percent)),
		RequiredCount:          required,
		Deficit:                deficit,
		Compliant:              totalAccessible >= required,
	}
}

// CalculateCompliance counts only active persons; inactive persons are
// excluded regardless of their accessibility flag.
func CalculateCompliance(persons []Person) ComplianceSnapshot {
	totalActive := 0
	totalAccessible := 0
	for i := range persons {
		if persons[i].Status != PersonStatusActive {
			continue
		}
		totalActive++
		if persons[i].IsAccessible() {
			totalAccessible++
		}
	}
	return snapshotFor(totalActive, totalAccessible)
}

type ComplianceAlert struct {
	Priority         AlertPriority `json:"priority"`
	Message          string        `json:"message"`
	SuggestedActions []string      `json:"suggested_actions"`
}

// MonitorCompliance produces zero or more alerts for the current population.
// criticalShare is the fraction of requiredCount at which a deficit escalates
// to critical.
func MonitorCompliance(persons []Person, criticalShare float64) []ComplianceAlert {
	snapshot := CalculateCompliance(persons)

	var alerts []ComplianceAlert
	if snapshot.Deficit > 0 {
		priority := AlertPriorityHigh
		if criticalShare > 0 && float64(snapshot.Deficit) >= criticalShare*float64(snapshot.RequiredCount) {
			priority = AlertPriorityCritical
		}
		alerts = append(alerts, ComplianceAlert{
			Priority: priority,
			Message: fmt.Sprintf("accessibility quota deficit: %d accessible of %d required (%s%% of %d active)",
				snapshot.TotalAccessiblePersons, snapshot.RequiredCount,
				snapshot.RequiredPercentage.String(), snapshot.TotalActivePersons),
			SuggestedActions: []string{
				"prioritize accessible candidates in open admissions",
				"review pending terminations of accessible staff",
			},
		})
	} else if snapshot.RequiredCount > 0 && snapshot.TotalAccessiblePersons == snapshot.RequiredCount {
		// Compliant, but with zero margin: the next termination breaks it.
		alerts = append(alerts, ComplianceAlert{
			Priority: AlertPriorityInfo,
			Message: fmt.Sprintf("accessibility quota at threshold: %d accessible, exactly the %d required",
				snapshot.TotalAccessiblePersons, snapshot.RequiredCount),
			SuggestedActions: []string{
				"keep at least one accessible admission in the pipeline",
			},
		})
	}
	return alerts
}

// ComplianceScenario describes hypothetical hires/terminations to project.
type ComplianceScenario struct {
	Hires                  int `json:"hires" form:"hires"`
	AccessibleHires        int `json:"accessible_hires" form:"accessible_hires"`
	Terminations           int `json:"terminations" form:"terminations"`
	AccessibleTerminations int `json:"accessible_terminations" form:"accessible_terminations"`
}

// ProjectCompliance applies the scenario to the active population and returns
// the resulting snapshot without mutating real state.
func ProjectCompliance(persons []Person, scenario ComplianceScenario) ComplianceSnapshot {
	current := CalculateCompliance(persons)

	totalActive := current.TotalActivePersons + scenario.Hires - scenario.Terminations
	if totalActive < 0 {
		totalActive = 0
	}
	totalAccessible := current.TotalAccessiblePersons + scenario.AccessibleHires - scenario.AccessibleTerminations
	if totalAccessible < 0 {
		totalAccessible = 0
	}
	if totalAccessible > totalActive {
		totalAccessible = totalActive
	}
	return snapshotFor(totalActive, totalAccessible)
}
