package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrorImmutableEntity is returned for any attempt to update or delete an
// audit entry. The audit trail is append-only.
var ErrorImmutableEntity = errors.New("audit entries are immutable")
