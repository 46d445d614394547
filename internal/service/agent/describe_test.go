package agent

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/truthfinder/backend/internal/service/guardrail"
)

func TestDescribe(t *testing.T) {
	code, msg, userErr := Describe(fmt.Errorf("chat: %w", guardrail.ErrBlockedContent))
	assert.Equal(t, "blocked_content", code)
	assert.Contains(t, msg, "blocked content")
	assert.True(t, userErr)

	code, msg, userErr = Describe(fmt.Errorf("%w: %w", ErrInternal, errors.New("db exploded at 10.0.0.3")))
	assert.Equal(t, "internal", code)
	assert.Equal(t, "internal server error", msg)
	assert.False(t, userErr)
}
