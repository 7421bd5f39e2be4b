// compliance-report prints the accessibility-quota snapshot for one
// organization, or for every active organization when no id is given.
//
// Usage:
//   go run ./cmd/compliance-report [-organization-id <uuid>]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/config"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/models"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/utils"
)

func main() {
	organizationId := flag.String("organization-id", "", "limit the report to one organization")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	var organizations []models.Organization
	query := db.WithContext(ctx).Where("is_active = ?", true)
	if v := strings.TrimSpace(*organizationId); v != "" {
		query = query.Where("id = ?", v)
	}
	if err := query.Find(&organizations).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to list organizations: %v\n", err)
		os.Exit(1)
	}
	if len(organizations) == 0 {
		fmt.Fprintln(os.Stderr, "no organizations found")
		os.Exit(3)
	}

	criticalShare := config.ComplianceCriticalShare()
	for _, org := range organizations {
		orgCtx := utils.SetOrganizationIdInContext(ctx, org.ID.String())
		persons, err := models.ActivePersons(orgCtx, org.ID.String())
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: failed to load persons: %v\n", org.Name, err)
			continue
		}

		snapshot := models.CalculateCompliance(persons)
		fmt.Printf("%s (%s)\n", org.Name, org.ID)
		fmt.Printf("  active persons:      %d\n", snapshot.TotalActivePersons)
		fmt.Printf("  accessible persons:  %d\n", snapshot.TotalAccessiblePersons)
		fmt.Printf("  required percentage: %s%%\n", snapshot.RequiredPercentage.String())
		fmt.Printf("  required count:      %d\n", snapshot.RequiredCount)
		fmt.Printf("  deficit:             %d\n", snapshot.Deficit)
		fmt.Printf("  compliant:           %v\n", snapshot.Compliant)

		for _, alert := range models.MonitorCompliance(persons, criticalShare) {
			fmt.Printf("  alert [%s]: %s\n", alert.Priority, alert.Message)
		}
		fmt.Println()
	}
}
