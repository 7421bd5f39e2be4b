package models

import (
	"context"

	"github.com/google/uuid"
	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/utils"
	"gorm.io/gorm/clause"
)

func forUpdateClause() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
