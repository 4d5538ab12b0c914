package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

func TestNewInstance_Invariants(t *testing.T) {
	now := time.Now()

	t.Run("rejects version below 1", func(t *testing.T) {
		_, err := NewInstance(id.NewReportID(), id.NewProjectID(), 0, 1, DraftContent{}, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects empty evidence set", func(t *testing.T) {
		_, err := NewInstance(id.NewReportID(), id.NewProjectID(), 1, 0, DraftContent{}, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNoEvidenceSelected))
	})

	t.Run("starts with both flags clear", func(t *testing.T) {
		instance, err := NewInstance(id.NewReportID(), id.NewProjectID(), 1, 3, DraftContent{Summary: "s"}, now)
		require.NoError(t, err)
		assert.False(t, instance.Archived)
		assert.False(t, instance.BackupDownloaded)
		assert.Equal(t, 3, instance.TotalEvidenceCount)
	})
}

func TestInstance_FlagsAreOneWay(t *testing.T) {
	instance, err := NewInstance(id.NewReportID(), id.NewProjectID(), 1, 1, DraftContent{}, time.Now())
	require.NoError(t, err)

	assert.True(t, instance.ApplyArchived())
	assert.False(t, instance.ApplyArchived())
	assert.True(t, instance.Archived)

	assert.True(t, instance.ApplyBackupDownloaded())
	assert.False(t, instance.ApplyBackupDownloaded())
	assert.True(t, instance.BackupDownloaded)
}

func TestDraft_CloneContent(t *testing.T) {
	draft := &Draft{
		ProjectID: id.NewProjectID(),
		Content: DraftContent{
			Summary:       "Original summary",
			LegalAnalysis: "Original analysis",
		},
	}

	clone, err := draft.CloneContent()
	require.NoError(t, err)
	assert.Equal(t, draft.Content, clone)

	draft.Content.Summary = "Edited after the snapshot"
	assert.Equal(t, "Original summary", clone.Summary, "the clone must be detached from the live draft")
}
