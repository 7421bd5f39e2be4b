// seed-admin bootstraps a fresh environment: one organization with a webhook
// secret plus an admin ops user.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/seed-admin -org "Prefeitura Demo" -email admin@example.org -password 'changeMe123'
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
	"gorm.io/gorm"
)

func main() {
	orgName := flag.String("org", "", "organization name (required)")
	email := flag.String("email", "", "admin user email (required)")
	password := flag.String("password", "", "admin user password (required, min 8 chars)")
	mode := flag.String("discrepancy-mode", "Block", "cargo discrepancy mode: Allow, Alert, Block, RequireApproval")
	flag.Parse()

	if strings.TrimSpace(*orgName) == "" || strings.TrimSpace(*email) == "" || len(*password) < 8 {
		flag.Usage()
		os.Exit(2)
	}

	var discrepancyMode models.DiscrepancyMode
	if err := discrepancyMode.UnmarshalString(strings.TrimSpace(*mode)); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()
	if err := models.RunSQLMigrations(); err != nil {
		fmt.Fprintln(os.Stderr, "raw migrations failed:", err)
		os.Exit(1)
	}

	ctx = utils.SetUserNameInContext(ctx, "Seed")
	ctx = utils.SetIsAdminInContext(ctx, true)

	var org *models.Organization
	var existing models.Organization
	err := db.WithContext(ctx).Where("name = ?", strings.TrimSpace(*orgName)).First(&existing).Error
	switch {
	case err == nil:
		org = &existing
		fmt.Printf("organization %q already exists (%s)\n", org.Name, org.ID)
	case err == gorm.ErrRecordNotFound:
		org, err = models.CreateOrganization(ctx, &models.NewOrganization{
			Name:            strings.TrimSpace(*orgName),
			DiscrepancyMode: discrepancyMode,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create organization: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("created organization %s\n", org.ID)
		fmt.Printf("webhook secret: %s\n", org.WebhookSecret)
	default:
		fmt.Fprintf(os.Stderr, "failed to lookup organization: %v\n", err)
		os.Exit(1)
	}

	ctx = utils.SetOrganizationIdInContext(ctx, org.ID.String())

	if _, err = models.GetUserByEmail(ctx, strings.TrimSpace(*email)); err == nil {
		fmt.Printf("user %s already exists, nothing to do\n", *email)
		return
	}

	user, err := models.CreateUser(ctx, org.ID.String(), &models.NewUser{
		Name:     "Operations Admin",
		Email:    strings.TrimSpace(*email),
		Password: *password,
		Role:     "admin",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("created admin user %s (id %d)\n", user.Email, user.ID)
}
