package server

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var stringProp = map[string]any{"type": "string", "minLength": 1}

var (
	syncSchema = gojsonschema.NewGoLoader(map[string]any{
		"type":     "object",
		"required": []string{"repo_path", "commit_id", "file_path", "target_roots"},
		"properties": map[string]any{
			"repo_path": stringProp,
			"commit_id": stringProp,
			"file_path": stringProp,
			"target_roots": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": 1,
			},
			"force_overwrite": map[string]any{"type": "boolean"},
		},
	})

	diffFilesSchema = gojsonschema.NewGoLoader(map[string]any{
		"type":     "object",
		"required": []string{"repo_path", "commit_id"},
		"properties": map[string]any{
			"repo_path": stringProp,
			"commit_id": stringProp,
		},
	})

	fileContentSchema = gojsonschema.NewGoLoader(map[string]any{
		"type":     "object",
		"required": []string{"repo_path", "commit_id", "file_path"},
		"properties": map[string]any{
			"repo_path": stringProp,
			"commit_id": stringProp,
			"file_path": stringProp,
		},
	})
)

type schemaValidationError struct {
	issues []string
}

func (e schemaValidationError) Error() string {
	return "invalid request: " + strings.Join(e.issues, "; ")
}

// validate checks body against schema. Malformed JSON is reported the same
// way as a schema violation.
func validate(schema gojsonschema.JSONLoader, body []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return schemaValidationError{issues: []string{fmt.Sprintf("malformed JSON: %v", err)}}
	}
	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return schemaValidationError{issues: issues}
}
