package clapper

import _ "embed"

// Version is the release of the runner.
//
//go:embed VERSION
var Version string
