package pipeline_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/clapper/pkg/adapters/memory"
	"github.com/aretw0/clapper/pkg/domain"
	"github.com/aretw0/clapper/pkg/pipeline"
	"github.com/aretw0/clapper/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAbort_LogsFailureAndDumpsState(t *testing.T) {
	tasks := allTasks()
	tasks[domain.StageScriptGeneration].On("Run", mock.Anything, mock.Anything).Return(0, nil)
	tasks[domain.StageVideoCreation].On("Run", mock.Anything, mock.Anything).Return(3, nil)

	logger, logBuf := newLogger()
	sink := memory.NewStateSink()
	res := pipeline.NewExecutor(sink,
		pipeline.WithLogger(logger),
		pipeline.WithClock(newClock().Now),
	).Run(context.Background(), settings{}, descriptors(tasks))

	require.Equal(t, 3, res.ExitCode)

	log := logBuf.String()
	assert.Contains(t, log, "[ERROR] stage failed, aborting run stage=videoCreation status=FAILED exit_code=3")
	assert.Contains(t, log, "[INFO] run state outcomes=2")
	for _, line := range sink.Lines() {
		assert.Contains(t, log, line)
	}
	assert.Less(t, strings.Index(log, "[ERROR]"), strings.Index(log, "run state"))
}

func TestAbort_ExitCodeIsNeverZero(t *testing.T) {
	// A task reporting an error with exit code 0 still fails the run.
	broken := ports.TaskFunc{Fn: func(ctx context.Context, rc ports.RunContext) (int, error) {
		return 0, fmt.Errorf("could not start")
	}}

	res := pipeline.NewExecutor(memory.NewStateSink()).Run(context.Background(), settings{}, []pipeline.StageDescriptor{
		{Name: domain.StageScriptGeneration, Critical: true, Task: broken},
	})

	assert.Equal(t, domain.ExitFailure, res.ExitCode)
	assert.Equal(t, []string{"scriptGeneration|FAILED"}, statuses(res.Outcomes))
}

func TestExecutor_InvalidPipeline(t *testing.T) {
	task := new(MockTask)
	res := pipeline.NewExecutor(memory.NewStateSink()).Run(context.Background(), settings{}, []pipeline.StageDescriptor{
		{Name: domain.StageVideoCreation, Critical: true, Task: task},
		{Name: domain.StageScriptGeneration, Critical: true, Task: task},
	})

	assert.Equal(t, domain.ExitFailure, res.ExitCode)
	assert.ErrorContains(t, res.Err, "out of order")
	assert.Empty(t, res.Outcomes)
	task.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestExecutor_HooksAndOutput(t *testing.T) {
	talker := ports.TaskFunc{Fn: func(ctx context.Context, rc ports.RunContext) (int, error) {
		assert.Equal(t, "20260301T120000Z", rc.RunID)
		fmt.Fprint(rc.Output, "Generating Shot 1...\nGenerating Shot 2...")
		return 0, nil
	}}

	var started []domain.StageName
	var recorded []string
	hooks := domain.LifecycleHooks{
		OnStageStart: func(ctx context.Context, e *domain.StageEvent) {
			started = append(started, e.Stage)
		},
		OnStageOutcome: func(ctx context.Context, o *domain.StageOutcome) {
			recorded = append(recorded, o.Status.String())
		},
	}

	logger, logBuf := newLogger()
	var echo strings.Builder
	res := pipeline.NewExecutor(memory.NewStateSink(),
		pipeline.WithLogger(logger),
		pipeline.WithHooks(hooks),
		pipeline.WithEcho(&echo),
	).Run(context.Background(), settings{skip: map[domain.StageName]bool{domain.StageYoutubeUpload: true}}, []pipeline.StageDescriptor{
		{Name: domain.StageVideoCreation, Critical: true, Task: talker},
		{Name: domain.StageYoutubeUpload, Critical: true, Task: talker},
	})

	require.True(t, res.OK())
	assert.Equal(t, []domain.StageName{domain.StageVideoCreation, domain.StageYoutubeUpload}, started)
	assert.Equal(t, []string{"SUCCESS", "SKIPPED"}, recorded)

	log := logBuf.String()
	assert.Contains(t, log, "[INFO] Generating Shot 1... stage=videoCreation")
	assert.Contains(t, log, "[INFO] Generating Shot 2... stage=videoCreation")
	assert.Contains(t, log, "[SUCCESS] stage completed stage=videoCreation")
	assert.Equal(t, "Generating Shot 1...\nGenerating Shot 2...", echo.String())
}

func TestExecutor_HookPanicAborts(t *testing.T) {
	task := new(MockTask)
	task.On("Run", mock.Anything, mock.Anything).Return(0, nil)

	sink := memory.NewStateSink()
	res := pipeline.NewExecutor(sink, pipeline.WithHooks(domain.LifecycleHooks{
		OnStageOutcome: func(ctx context.Context, o *domain.StageOutcome) {
			panic("metrics exploded")
		},
	})).Run(context.Background(), settings{}, []pipeline.StageDescriptor{
		{Name: domain.StageScriptGeneration, Critical: true, Task: task},
		{Name: domain.StageVideoCreation, Critical: true, Task: task},
	})

	assert.Equal(t, domain.ExitFailure, res.ExitCode)
	assert.ErrorContains(t, res.Err, "metrics exploded")
	assert.Len(t, sink.Lines(), 1)
	task.AssertNumberOfCalls(t, "Run", 1)
}

func TestExecutor_DurationsFromClock(t *testing.T) {
	task := new(MockTask)
	task.On("Run", mock.Anything, mock.Anything).Return(0, nil)

	clock := newClock()
	clock.step = 90 * time.Second
	res := pipeline.NewExecutor(memory.NewStateSink(), pipeline.WithClock(clock.Now)).Run(context.Background(), settings{}, []pipeline.StageDescriptor{
		{Name: domain.StageVideoCreation, Critical: true, Task: task},
	})

	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, int64(90), res.Outcomes[0].DurationSeconds())
	assert.Equal(t, time.UTC, res.Outcomes[0].Timestamp.Location())
}
