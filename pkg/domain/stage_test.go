package domain_test

import (
	"testing"

	"github.com/aretw0/clapper/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStagesOrder(t *testing.T) {
	stages := domain.Stages()
	require.Len(t, stages, 4)
	assert.Equal(t, []domain.StageName{
		domain.StageScriptGeneration,
		domain.StageVideoCreation,
		domain.StageYoutubeUpload,
		domain.StageEc2Shutdown,
	}, stages)

	for i, s := range stages {
		assert.Equal(t, i+1, s.Order())
	}

	// Callers cannot reorder the pipeline through the returned slice.
	stages[0] = domain.StageEc2Shutdown
	assert.Equal(t, domain.StageScriptGeneration, domain.Stages()[0])
}

func TestParseStageName(t *testing.T) {
	name, err := domain.ParseStageName("youtubeUpload")
	require.NoError(t, err)
	assert.Equal(t, domain.StageYoutubeUpload, name)

	_, err = domain.ParseStageName("thumbnail")
	assert.ErrorIs(t, err, domain.ErrUnknownStage)
}

func TestStatus(t *testing.T) {
	for _, s := range []domain.Status{domain.StatusSkipped, domain.StatusDryRun, domain.StatusSuccess, domain.StatusFailed, domain.StatusTimeout} {
		parsed, err := domain.ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	assert.True(t, domain.StatusFailed.IsFailure())
	assert.True(t, domain.StatusTimeout.IsFailure())
	assert.False(t, domain.StatusSkipped.IsFailure())
	assert.False(t, domain.StatusDryRun.Attempted())
	assert.True(t, domain.StatusSuccess.Attempted())
	assert.Equal(t, "Status(99)", domain.Status(99).String())

	var unset domain.StageOutcome
	assert.Equal(t, domain.StatusUnknown, unset.Status)
	assert.Equal(t, "Status(0)", unset.Status.String())
	assert.False(t, unset.Status.Valid())
	assert.False(t, unset.Status.IsFailure())
	assert.False(t, unset.Status.Attempted())
	_, err := domain.ParseStatus("Status(0)")
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, domain.ExitCode(nil))
	assert.Equal(t, 1, domain.ExitCode(&domain.UsageError{Msg: "unknown flag: --fast"}))
	assert.Equal(t, 1, domain.ExitCode(&domain.PreflightHardError{Missing: []string{"ffmpeg"}}))
	assert.Equal(t, 3, domain.ExitCode(&domain.StageExecutionError{Stage: domain.StageVideoCreation, Status: domain.StatusFailed, ExitCode: 3}))
	assert.Equal(t, 1, domain.ExitCode(&domain.StageExecutionError{Stage: domain.StageVideoCreation, Status: domain.StatusFailed, ExitCode: -1}))
	assert.Equal(t, 1, domain.ExitCode(&domain.StageExecutionError{Stage: domain.StageVideoCreation, Status: domain.StatusFailed, ExitCode: 300}))
}
