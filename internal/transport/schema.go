package transport

import (
	"fmt"
	"strings"

	"github.com/rpggio/stepflow/internal/domain/project"
	"github.com/xeipuuv/gojsonschema"
)

const createProjectSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["project_name", "steps"],
  "properties": {
    "project_name": { "type": "string", "minLength": 1 },
    "description": { "type": "string" },
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["step_number", "step_name", "assigned_user_id"],
        "properties": {
          "step_number": { "type": "integer", "minimum": 1 },
          "step_name": { "type": "string", "minLength": 1 },
          "task_description": { "type": "string" },
          "assigned_user_id": { "type": "string", "minLength": 1 }
        }
      }
    }
  }
}`

const credentialsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["username", "password"],
  "properties": {
    "username": { "type": "string", "minLength": 1 },
    "password": { "type": "string", "minLength": 1 }
  }
}`

var (
	createProjectLoader = gojsonschema.NewStringLoader(createProjectSchema)
	credentialsLoader   = gojsonschema.NewStringLoader(credentialsSchema)
)

// validateJSONSchema reports body violations as project.ErrInvalidInput.
func validateJSONSchema(schema gojsonschema.JSONLoader, body []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: malformed JSON: %v", project.ErrInvalidInput, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", project.ErrInvalidInput, strings.Join(msgs, "; "))
	}
	return nil
}
