package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/clapper/pkg/domain"
	"github.com/aretw0/clapper/pkg/pipeline"
)

// Overlay contains recorded outcomes to visualize on the graph.
type Overlay struct {
	Outcomes []domain.StageOutcome
}

// statusClasses maps an outcome status to its Mermaid class.
var statusClasses = map[domain.Status]string{
	domain.StatusSkipped: "skipped",
	domain.StatusDryRun:  "dryrun",
	domain.StatusSuccess: "success",
	domain.StatusFailed:  "failed",
	domain.StatusTimeout: "timeout",
}

// GenerateMermaid produces a Mermaid flowchart of the stage chain.
// It applies semantic styling:
// - Critical stage: [Rectangle]
// - Best-effort stage: ([Stadium])
// - Timeout: clock annotation
// Outcome classes are applied if an overlay is provided.
func GenerateMermaid(stages []pipeline.StageDescriptor, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, s := range stages {
		opener, closer := "[", "]"
		if !s.Critical {
			opener, closer = "([", "])"
		}

		label := string(s.Name)
		if s.Timeout > 0 {
			label = fmt.Sprintf("%s <br/> ⏱️ %s", label, s.Timeout)
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", s.Name, opener, label, closer))
	}

	for i := 1; i < len(stages); i++ {
		arrow := "-->"
		if !stages[i-1].Critical {
			// A best-effort stage lets the run continue even when it fails.
			arrow = "-. always .->"
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", stages[i-1].Name, arrow, stages[i].Name))
	}

	if overlay != nil && len(overlay.Outcomes) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast regardless of theme
		sb.WriteString("    classDef success fill:#dcfce7,stroke:#15803d,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#fee2e2,stroke:#b91c1c,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef timeout fill:#ffedd5,stroke:#c2410c,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef skipped fill:#f3f4f6,stroke:#6b7280,stroke-dasharray:4 2,color:#000;\n")
		sb.WriteString("    classDef dryrun fill:#e0e7ff,stroke:#4338ca,stroke-width:2px,color:#000;\n")

		for _, o := range overlay.Outcomes {
			if class, ok := statusClasses[o.Status]; ok {
				sb.WriteString(fmt.Sprintf("    class %s %s;\n", o.Stage, class))
			}
		}
	}

	return sb.String()
}
