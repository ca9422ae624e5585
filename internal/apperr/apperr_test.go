package apperr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	v := Validation("days must be between %d and %d", 1, 365)
	nf := NotFound("officer", "o-1")

	assert.True(t, IsValidation(v))
	assert.False(t, IsNotFound(v))
	assert.True(t, IsNotFound(fmt.Errorf("assign: %w", nf)))
	assert.Equal(t, "officer o-1 not found", nf.Error())
	assert.Equal(t, "days must be between 1 and 365", v.Error())
	assert.Equal(t, "extension request not found", NotFound("extension request", "").Error())
}
