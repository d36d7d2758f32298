package tasks

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed manifest.schema.json
var manifestSchema []byte

var (
	compiledSchema *gojsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
)

func getSchema() (*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiledSchema, compileErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(manifestSchema))
	})
	return compiledSchema, compileErr
}

// Manifest is the brief handed from scriptGeneration to the later stages.
// Only the fields the runner needs are decoded.
type Manifest struct {
	Title string `json:"title"`
}

// ManifestError reports a manifest that does not match the schema.
type ManifestError struct {
	Path   string
	Issues []string
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("invalid manifest %s: %s", e.Path, strings.Join(e.Issues, "; "))
}

// ReadManifest loads and validates the manifest at path.
func ReadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("reading manifest: %w", err)
	}

	schema, err := getSchema()
	if err != nil {
		return Manifest{}, fmt.Errorf("compiling manifest schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return Manifest{}, fmt.Errorf("validating manifest %s: %w", path, err)
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			issues = append(issues, e.String())
		}
		return Manifest{}, &ManifestError{Path: path, Issues: issues}
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decoding manifest %s: %w", path, err)
	}
	m.Title = strings.TrimSpace(m.Title)
	return m, nil
}
