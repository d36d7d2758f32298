/*
Package clapper is a sequential job runner for content pipelines.

It drives a fixed chain of stages (scriptGeneration, videoCreation,
youtubeUpload, ec2Shutdown), each backed by an external command that is
contracted only by its exit code and the files it leaves behind. The runner
decides which stages execute, records one outcome per stage in an
append-only state file, and stops at the first failure of a critical stage.

# Concept

A run goes through four phases:

  - Resolve: flags, environment variables and built-in defaults are merged
    into one immutable RunConfig (flag beats environment beats default).
  - Preflight: required tools must be on PATH or the run stops before any
    stage. Missing stage credentials only force that stage to SKIPPED.
  - Execute: stages run one at a time. Each ends SKIPPED, DRY_RUN, SUCCESS,
    FAILED or TIMEOUT, and the outcome is appended to the state sink before
    the next stage is considered.
  - Report: the recorded outcomes are rendered as a summary table.

# Files

Every run writes two files under the log directory, named after the UTC start
time of the run:

	logs/pipeline_20260301T120000Z.log    <timestamp> [LEVEL] message
	logs/pipeline_20260301T120000Z.state  <stage>|<status>|<seconds>|<timestamp>

The state file is never rewritten, so an interrupted run leaves every outcome
recorded up to that point.

# Usage

	clapper --skip-script-generation --skip-ec2-shutdown
	DRY_RUN=1 clapper
	clapper status --list
	clapper graph --overlay

The stages' commands, working directory, timeouts, criticality and
dependencies can be overridden in pipeline.yaml; see examples/pipeline.yaml.
*/
package clapper
