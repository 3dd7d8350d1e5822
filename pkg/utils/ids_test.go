// pkg/utils/ids_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRequestID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewRequestID()
		assert.True(t, ValidateRequestID(id), "id %q", id)
		assert.False(t, seen[id], "id %q repeated", id)
		seen[id] = true
	}
}

func TestValidateRequestID(t *testing.T) {
	assert.True(t, ValidateRequestID("0123456789abcdef"))
	assert.False(t, ValidateRequestID(""))
	assert.False(t, ValidateRequestID("too-short"))
	assert.False(t, ValidateRequestID("0123456789ABCDEF"))
	assert.False(t, ValidateRequestID("0123456789abcdeg"))
}
