// pkg/utils/ids.go
package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewRequestID returns a short correlation ID for one inbound request.
func NewRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// ValidateRequestID checks the format produced by NewRequestID.
func ValidateRequestID(id string) bool {
	if len(id) != 16 {
		return false
	}
	for _, r := range id {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return false
		}
	}
	return true
}
