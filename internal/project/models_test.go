package project

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

func TestNewProject(t *testing.T) {
	now := time.Now()

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewProject(id.NewProjectID(), "", "REF-1", "Owner", now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects overlong name", func(t *testing.T) {
		_, err := NewProject(id.NewProjectID(), strings.Repeat("x", 257), "REF-1", "Owner", now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("starts without the legal lock", func(t *testing.T) {
		p, err := NewProject(id.NewProjectID(), "Vestre Gate 12", "REF-1", "Owner", now)
		require.NoError(t, err)
		assert.False(t, p.LegalLockActivated)
		assert.Nil(t, p.LegalLockActivatedAt)
	})
}

func TestProject_LegalLockIsOneWay(t *testing.T) {
	p, err := NewProject(id.NewProjectID(), "Vestre Gate 12", "REF-1", "Owner", time.Now())
	require.NoError(t, err)

	first := time.Now()
	require.True(t, p.ApplyLegalLock(first))
	assert.True(t, p.LegalLockActivated)
	require.NotNil(t, p.LegalLockActivatedAt)
	assert.Equal(t, first, *p.LegalLockActivatedAt)

	assert.False(t, p.ApplyLegalLock(first.Add(time.Hour)), "a second activation is a no-op")
	assert.Equal(t, first, *p.LegalLockActivatedAt, "the original timestamp is preserved")
}
