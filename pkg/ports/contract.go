package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/clapper/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateSinkContract runs a suite of tests to verify that a StateSink
// implementation adheres to the interface contract. newSink must return an
// empty sink on every call.
func RunStateSinkContract(t *testing.T, newSink func(t *testing.T) StateSink) {
	ctx := context.Background()
	base := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)

	t.Run("Empty sink has no outcomes", func(t *testing.T) {
		sink := newSink(t)
		defer sink.Close()

		outcomes, err := sink.Outcomes(ctx)
		require.NoError(t, err)
		assert.Empty(t, outcomes)
	})

	t.Run("Append preserves order", func(t *testing.T) {
		sink := newSink(t)
		defer sink.Close()

		want := []domain.StageOutcome{
			{Stage: domain.StageScriptGeneration, Status: domain.StatusSkipped, Timestamp: base},
			{Stage: domain.StageVideoCreation, Status: domain.StatusSuccess, Duration: 12 * time.Second, Timestamp: base.Add(12 * time.Second)},
			{Stage: domain.StageYoutubeUpload, Status: domain.StatusFailed, Duration: 2 * time.Second, Timestamp: base.Add(14 * time.Second)},
		}
		for _, o := range want {
			require.NoError(t, sink.Append(ctx, o))
		}

		got, err := sink.Outcomes(ctx)
		require.NoError(t, err)
		require.Len(t, got, len(want))
		for i := range want {
			assert.Equal(t, want[i].Stage, got[i].Stage)
			assert.Equal(t, want[i].Status, got[i].Status)
			assert.Equal(t, want[i].DurationSeconds(), got[i].DurationSeconds())
			assert.True(t, want[i].Timestamp.Equal(got[i].Timestamp), "timestamp %d", i)
		}
	})

	t.Run("Outcomes does not consume", func(t *testing.T) {
		sink := newSink(t)
		defer sink.Close()

		require.NoError(t, sink.Append(ctx, domain.StageOutcome{Stage: domain.StageEc2Shutdown, Status: domain.StatusDryRun, Timestamp: base}))

		first, err := sink.Outcomes(ctx)
		require.NoError(t, err)
		second, err := sink.Outcomes(ctx)
		require.NoError(t, err)
		assert.Len(t, first, 1)
		assert.Len(t, second, 1)
	})
}
