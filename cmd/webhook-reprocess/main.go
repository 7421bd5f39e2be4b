// webhook-reprocess re-runs one stored HR event delivery by id.
//
// Usage:
//   go run ./cmd/webhook-reprocess -organization-id <uuid> -event-id <id>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/config"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/hrsync"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/utils"
)

func main() {
	organizationId := flag.String("organization-id", "", "organization uuid (required)")
	eventId := flag.String("event-id", "", "webhook event id (required)")
	flag.Parse()

	if strings.TrimSpace(*organizationId) == "" || strings.TrimSpace(*eventId) == "" {
		flag.Usage()
		os.Exit(2)
	}

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	ctx := utils.SetOrganizationIdInContext(context.Background(), strings.TrimSpace(*organizationId))
	ctx = utils.SetUserNameInContext(ctx, "webhook-reprocess-cli")
	ctx = utils.SetIsAdminInContext(ctx, true)

	outcome, err := hrsync.ReprocessEvent(ctx, strings.TrimSpace(*organizationId), strings.TrimSpace(*eventId))
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			fmt.Fprintln(os.Stderr, "event not found")
			os.Exit(3)
		}
		if errors.Is(err, hrsync.ErrAlreadyApplied) {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(4)
		}
		fmt.Fprintf(os.Stderr, "reprocess failed: %v\n", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(outcome, "", "  ")
	fmt.Println(string(out))
}
