package graph_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aretw0/clapper/internal/presentation/graph"
	"github.com/aretw0/clapper/pkg/domain"
	"github.com/aretw0/clapper/pkg/pipeline"
	"github.com/stretchr/testify/assert"
)

func stages() []pipeline.StageDescriptor {
	return []pipeline.StageDescriptor{
		{Name: domain.StageScriptGeneration, Critical: true},
		{Name: domain.StageVideoCreation, Critical: true, Timeout: 20 * time.Minute},
		{Name: domain.StageYoutubeUpload, Critical: false},
		{Name: domain.StageEc2Shutdown, Critical: true},
	}
}

func TestGenerateMermaid(t *testing.T) {
	out := graph.GenerateMermaid(stages(), nil)

	tests := []struct {
		name     string
		contains []string
	}{
		{"Critical Shape", []string{`scriptGeneration["scriptGeneration"]`}},
		{"Best Effort Shape", []string{`youtubeUpload(["youtubeUpload"])`}},
		{"Timeout Annotation", []string{`videoCreation["videoCreation <br/> ⏱️ 20m0s"]`}},
		{"Chain", []string{
			"scriptGeneration --> videoCreation",
			"videoCreation --> youtubeUpload",
			"youtubeUpload -. always .-> ec2Shutdown",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
	assert.True(t, strings.HasPrefix(out, "graph LR\n"))
	assert.NotContains(t, out, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	out := graph.GenerateMermaid(stages(), &graph.Overlay{Outcomes: []domain.StageOutcome{
		{Stage: domain.StageScriptGeneration, Status: domain.StatusSkipped},
		{Stage: domain.StageVideoCreation, Status: domain.StatusTimeout},
	}})

	assert.Contains(t, out, "classDef timeout")
	assert.Contains(t, out, "class scriptGeneration skipped;")
	assert.Contains(t, out, "class videoCreation timeout;")
	assert.NotContains(t, out, "class youtubeUpload")
}
