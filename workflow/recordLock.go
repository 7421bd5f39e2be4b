package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireStaffingRecordLock serializes mutations per staffing record across
// instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB that will do the mutating transaction.
func AcquireStaffingRecordLock(tx *gorm.DB, organizationId string, recordId int) error {
	lockName := fmt.Sprintf("quadro:%s:%d", organizationId, recordId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire staffing record lock for organization_id=%s record_id=%d", organizationId, recordId)
	}
	return nil
}

func ReleaseStaffingRecordLock(tx *gorm.DB, organizationId string, recordId int) {
	lockName := fmt.Sprintf("quadro:%s:%d", organizationId, recordId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
