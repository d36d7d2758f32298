//go:build !windows

package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoot_FailedStageExitCode(t *testing.T) {
	dir := t.TempDir()
	pipelinePath := writePipeline(t, dir, `stages:
  scriptGeneration:
    commands: [{command: sh, args: [-c, "exit 0"]}]
  videoCreation:
    commands: [{command: sh, args: [-c, "exit 3"]}]
`)

	code, stdout, stderr := runCLI(t, "--log-dir", filepath.Join(dir, "logs"), "--pipeline", pipelinePath)

	assert.Equal(t, 3, code)
	assert.Contains(t, stdout, "Pipeline failed at videoCreation (exit code 3)")
	assert.NotContains(t, stderr, "Error:")
	assert.NotContains(t, stderr, "Usage:")
}
