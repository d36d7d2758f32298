package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/clapper/internal/logging"
	"github.com/aretw0/clapper/pkg/adapters/memory"
	"github.com/aretw0/clapper/pkg/domain"
	"github.com/aretw0/clapper/pkg/pipeline"
	"github.com/aretw0/clapper/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTask implements ports.Task
type MockTask struct {
	mock.Mock
}

func (m *MockTask) Describe() string {
	return m.Called().String(0)
}

func (m *MockTask) Run(ctx context.Context, rc ports.RunContext) (int, error) {
	args := m.Called(ctx, rc)
	return args.Int(0), args.Error(1)
}

type settings struct {
	dryRun bool
	skip   map[domain.StageName]bool
}

func (s settings) RunID() string                       { return "20260301T120000Z" }
func (s settings) DryRun() bool                        { return s.dryRun }
func (s settings) Skipped(stage domain.StageName) bool { return s.skip[stage] }

// stepClock advances by step on every call.
type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

func newClock() *stepClock {
	return &stepClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), step: time.Second}
}

func descriptors(tasks map[domain.StageName]*MockTask) []pipeline.StageDescriptor {
	out := make([]pipeline.StageDescriptor, 0, len(tasks))
	for _, name := range domain.Stages() {
		task, ok := tasks[name]
		if !ok {
			continue
		}
		out = append(out, pipeline.StageDescriptor{Name: name, Critical: true, Task: task})
	}
	return out
}

func allTasks() map[domain.StageName]*MockTask {
	m := make(map[domain.StageName]*MockTask)
	for _, name := range domain.Stages() {
		m[name] = new(MockTask)
	}
	return m
}

func newLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(logging.NewRunLogHandler(&buf, slog.LevelInfo)), &buf
}

func statuses(outcomes []domain.StageOutcome) []string {
	out := make([]string, len(outcomes))
	for i, o := range outcomes {
		out[i] = string(o.Stage) + "|" + o.Status.String()
	}
	return out
}

func TestExecutor_ConcreteScenario(t *testing.T) {
	tasks := allTasks()
	tasks[domain.StageVideoCreation].On("Run", mock.Anything, mock.Anything).Return(0, nil).Once()
	tasks[domain.StageYoutubeUpload].On("Run", mock.Anything, mock.Anything).Return(1, nil).Once()

	sink := memory.NewStateSink()
	clock := newClock()
	exec := pipeline.NewExecutor(sink, pipeline.WithClock(clock.Now))

	res := exec.Run(context.Background(), settings{skip: map[domain.StageName]bool{
		domain.StageScriptGeneration: true,
		domain.StageEc2Shutdown:      true,
	}}, descriptors(tasks))

	assert.Equal(t, 1, res.ExitCode)
	assert.Equal(t, 1, domain.ExitCode(res.Err))
	require.NotNil(t, res.Failed)
	assert.Equal(t, domain.StageYoutubeUpload, res.Failed.Stage)

	lines := sink.Lines()
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "scriptGeneration|SKIPPED|0|"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "videoCreation|SUCCESS|"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "youtubeUpload|FAILED|"), lines[2])
	for _, l := range lines {
		assert.NotContains(t, l, "ec2Shutdown")
	}

	tasks[domain.StageScriptGeneration].AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	tasks[domain.StageEc2Shutdown].AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	tasks[domain.StageVideoCreation].AssertExpectations(t)
	tasks[domain.StageYoutubeUpload].AssertExpectations(t)
}

func TestExecutor_SkipCombinations(t *testing.T) {
	stages := domain.Stages()
	for mask := 0; mask < 1<<len(stages); mask++ {
		skip := make(map[domain.StageName]bool)
		for i, name := range stages {
			if mask&(1<<i) != 0 {
				skip[name] = true
			}
		}

		t.Run(fmt.Sprintf("mask=%04b", mask), func(t *testing.T) {
			tasks := allTasks()
			for name, task := range tasks {
				if !skip[name] {
					task.On("Run", mock.Anything, mock.Anything).Return(0, nil).Once()
				}
			}

			sink := memory.NewStateSink()
			res := pipeline.NewExecutor(sink).Run(context.Background(), settings{skip: skip}, descriptors(tasks))
			require.True(t, res.OK())

			outcomes, err := sink.Outcomes(context.Background())
			require.NoError(t, err)
			require.Len(t, outcomes, len(stages))
			for i, name := range stages {
				assert.Equal(t, name, outcomes[i].Stage)
				if skip[name] {
					assert.Equal(t, domain.StatusSkipped, outcomes[i].Status)
					assert.Zero(t, outcomes[i].DurationSeconds())
					tasks[name].AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
				} else {
					assert.Equal(t, domain.StatusSuccess, outcomes[i].Status)
					tasks[name].AssertExpectations(t)
				}
			}
		})
	}
}

func TestExecutor_DryRun(t *testing.T) {
	tasks := allTasks()
	for name, task := range tasks {
		task.On("Describe").Return("python3 " + string(name) + ".py")
	}

	logger, logBuf := newLogger()
	sink := memory.NewStateSink()
	res := pipeline.NewExecutor(sink, pipeline.WithLogger(logger)).Run(context.Background(), settings{
		dryRun: true,
		skip:   map[domain.StageName]bool{domain.StageEc2Shutdown: true},
	}, descriptors(tasks))

	require.True(t, res.OK())
	assert.Equal(t, []string{
		"scriptGeneration|DRY_RUN",
		"videoCreation|DRY_RUN",
		"youtubeUpload|DRY_RUN",
		"ec2Shutdown|SKIPPED",
	}, statuses(res.Outcomes))
	for _, o := range res.Outcomes {
		assert.Zero(t, o.DurationSeconds())
	}
	for _, task := range tasks {
		task.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	}
	assert.Contains(t, logBuf.String(), "would run stage stage=videoCreation cmd=\"python3 videoCreation.py\"")
}

func TestExecutor_FailFast(t *testing.T) {
	stages := domain.Stages()
	for k, failing := range stages {
		t.Run(string(failing), func(t *testing.T) {
			tasks := allTasks()
			for i, name := range stages {
				switch {
				case i < k:
					tasks[name].On("Run", mock.Anything, mock.Anything).Return(0, nil).Once()
				case i == k:
					tasks[name].On("Run", mock.Anything, mock.Anything).Return(40+k, nil).Once()
				}
			}

			sink := memory.NewStateSink()
			res := pipeline.NewExecutor(sink).Run(context.Background(), settings{}, descriptors(tasks))

			assert.Equal(t, 40+k, res.ExitCode)
			lines := sink.Lines()
			require.Len(t, lines, k+1)
			assert.True(t, strings.HasPrefix(lines[k], string(failing)+"|FAILED|"))
			for _, name := range stages[k+1:] {
				tasks[name].AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
			}

			var stageErr *domain.StageExecutionError
			require.ErrorAs(t, res.Err, &stageErr)
			assert.Equal(t, failing, stageErr.Stage)
			assert.Equal(t, 40+k, stageErr.ExitCode)
		})
	}
}

func TestExecutor_LaterSkipFlagDoesNotRescueAbort(t *testing.T) {
	tasks := allTasks()
	tasks[domain.StageScriptGeneration].On("Run", mock.Anything, mock.Anything).Return(2, nil).Once()

	sink := memory.NewStateSink()
	res := pipeline.NewExecutor(sink).Run(context.Background(), settings{
		skip: map[domain.StageName]bool{domain.StageVideoCreation: true},
	}, descriptors(tasks))

	assert.Equal(t, 2, res.ExitCode)
	assert.Equal(t, []string{"scriptGeneration|FAILED"}, statuses(res.Outcomes))
}

func TestExecutor_Timeout(t *testing.T) {
	slow := ports.TaskFunc{
		Description: "sleep",
		Fn: func(ctx context.Context, rc ports.RunContext) (int, error) {
			<-ctx.Done()
			return domain.ExitTimeout, ctx.Err()
		},
	}
	after := new(MockTask)

	sink := memory.NewStateSink()
	res := pipeline.NewExecutor(sink).Run(context.Background(), settings{}, []pipeline.StageDescriptor{
		{Name: domain.StageVideoCreation, Critical: true, Timeout: 20 * time.Millisecond, Task: slow},
		{Name: domain.StageYoutubeUpload, Critical: true, Task: after},
	})

	assert.Equal(t, domain.ExitTimeout, res.ExitCode)
	assert.Equal(t, []string{"videoCreation|TIMEOUT"}, statuses(res.Outcomes))
	after.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestExecutor_MetadataUnavailableSkips(t *testing.T) {
	tasks := allTasks()
	tasks[domain.StageScriptGeneration].On("Run", mock.Anything, mock.Anything).Return(0, nil)
	tasks[domain.StageVideoCreation].On("Run", mock.Anything, mock.Anything).Return(0, nil)
	tasks[domain.StageYoutubeUpload].On("Run", mock.Anything, mock.Anything).Return(0, nil)
	tasks[domain.StageEc2Shutdown].On("Run", mock.Anything, mock.Anything).
		Return(1, fmt.Errorf("resolve instance id: %w", domain.ErrMetadataUnavailable))

	logger, logBuf := newLogger()
	sink := memory.NewStateSink()
	res := pipeline.NewExecutor(sink, pipeline.WithLogger(logger)).Run(context.Background(), settings{}, descriptors(tasks))

	require.True(t, res.OK())
	require.NoError(t, res.Err)
	assert.Equal(t, "ec2Shutdown|SKIPPED", statuses(res.Outcomes)[3])
	assert.Zero(t, res.Outcomes[3].DurationSeconds())
	assert.Contains(t, logBuf.String(), "[WARN] environment metadata unavailable")
}

func TestExecutor_NonCriticalFailureContinues(t *testing.T) {
	failing := new(MockTask)
	failing.On("Run", mock.Anything, mock.Anything).Return(255, nil)
	next := new(MockTask)
	next.On("Run", mock.Anything, mock.Anything).Return(0, nil)

	logger, logBuf := newLogger()
	sink := memory.NewStateSink()
	res := pipeline.NewExecutor(sink, pipeline.WithLogger(logger)).Run(context.Background(), settings{}, []pipeline.StageDescriptor{
		{Name: domain.StageYoutubeUpload, Critical: false, Task: failing},
		{Name: domain.StageEc2Shutdown, Critical: true, Task: next},
	})

	assert.True(t, res.OK())
	assert.Nil(t, res.Failed)
	assert.Equal(t, []string{"youtubeUpload|FAILED", "ec2Shutdown|SUCCESS"}, statuses(res.Outcomes))
	assert.Equal(t, 255, res.Outcomes[0].ExitCode)
	assert.Contains(t, logBuf.String(), "[WARN] non-critical stage failed, continuing stage=youtubeUpload")
	next.AssertExpectations(t)
}

func TestExecutor_PanicIsRecovered(t *testing.T) {
	boom := ports.TaskFunc{Fn: func(ctx context.Context, rc ports.RunContext) (int, error) {
		panic("kaboom")
	}}
	after := new(MockTask)

	sink := memory.NewStateSink()
	res := pipeline.NewExecutor(sink).Run(context.Background(), settings{}, []pipeline.StageDescriptor{
		{Name: domain.StageScriptGeneration, Critical: false, Task: boom},
		{Name: domain.StageVideoCreation, Critical: true, Task: after},
	})

	assert.Equal(t, domain.ExitFailure, res.ExitCode)
	assert.ErrorContains(t, res.Err, "kaboom")
	assert.Equal(t, []string{"scriptGeneration|FAILED"}, statuses(res.Outcomes))
	after.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestExecutor_Interrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	interrupted := ports.TaskFunc{Fn: func(ctx context.Context, rc ports.RunContext) (int, error) {
		cancel()
		<-ctx.Done()
		return domain.ExitInterrupted, ctx.Err()
	}}
	after := new(MockTask)

	sink := memory.NewStateSink()
	res := pipeline.NewExecutor(sink).Run(ctx, settings{}, []pipeline.StageDescriptor{
		{Name: domain.StageVideoCreation, Critical: false, Task: interrupted},
		{Name: domain.StageEc2Shutdown, Critical: true, Task: after},
	})

	assert.Equal(t, domain.ExitInterrupted, res.ExitCode)
	assert.ErrorIs(t, res.Err, context.Canceled)
	// The interrupted stage is still recorded.
	assert.Equal(t, []string{"videoCreation|FAILED"}, statuses(res.Outcomes))
	require.Len(t, sink.Lines(), 1)
	assert.Equal(t, domain.ExitInterrupted, res.Outcomes[0].ExitCode)
	after.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestExecutor_InterruptedDuringMetadataLookup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lookup := ports.TaskFunc{Fn: func(ctx context.Context, rc ports.RunContext) (int, error) {
		cancel()
		return domain.ExitFailure, fmt.Errorf("resolve {{instance_id}}: %w: %v", domain.ErrMetadataUnavailable, ctx.Err())
	}}

	sink := memory.NewStateSink()
	res := pipeline.NewExecutor(sink).Run(ctx, settings{}, []pipeline.StageDescriptor{
		{Name: domain.StageEc2Shutdown, Critical: true, Task: lookup},
	})

	assert.False(t, res.OK())
	assert.Equal(t, domain.ExitInterrupted, res.ExitCode)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, []string{"ec2Shutdown|FAILED"}, statuses(res.Outcomes))
	require.Len(t, sink.Lines(), 1)
}

func TestExecutor_CancelledBeforeStage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	task := new(MockTask)

	sink := memory.NewStateSink()
	res := pipeline.NewExecutor(sink).Run(ctx, settings{}, []pipeline.StageDescriptor{
		{Name: domain.StageScriptGeneration, Critical: true, Task: task},
	})

	assert.Equal(t, domain.ExitInterrupted, res.ExitCode)
	assert.Empty(t, sink.Lines())
	task.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestExecutor_StateSinkFailureAborts(t *testing.T) {
	tasks := allTasks()
	tasks[domain.StageScriptGeneration].On("Run", mock.Anything, mock.Anything).Return(0, nil)
	tasks[domain.StageVideoCreation].On("Run", mock.Anything, mock.Anything).Return(0, nil)

	sink := memory.NewStateSink()
	sink.FailOn = map[domain.StageName]error{domain.StageVideoCreation: errors.New("disk full")}

	res := pipeline.NewExecutor(sink).Run(context.Background(), settings{}, descriptors(tasks))

	assert.Equal(t, domain.ExitFailure, res.ExitCode)
	assert.ErrorContains(t, res.Err, "disk full")
	lines := sink.Lines()
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "scriptGeneration|SUCCESS|"))
	tasks[domain.StageYoutubeUpload].AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}
