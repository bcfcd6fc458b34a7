// pkg/registry/validate.go
package registry

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// CheckSchemas compiles every activity's input and output schema, so a
// broken schema is caught at registry-validation time instead of on the
// first job that hits it.
func CheckSchemas(reg *ActivityRegistry) error {
	for _, activity := range reg.Activities {
		if len(activity.InputSchema) > 0 {
			if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(activity.InputSchema)); err != nil {
				return fmt.Errorf("activity %s: invalid input schema: %w", activity.ID, err)
			}
		}
		if len(activity.OutputSchema) > 0 {
			if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(activity.OutputSchema)); err != nil {
				return fmt.Errorf("activity %s: invalid output schema: %w", activity.ID, err)
			}
		}
	}
	return nil
}

// ValidateInput checks job variables against an activity's input schema.
// Activities without a schema accept anything.
func ValidateInput(activity *Activity, variables map[string]interface{}) error {
	if len(activity.InputSchema) == 0 {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(activity.InputSchema),
		gojsonschema.NewGoLoader(variables),
	)
	if err != nil {
		return fmt.Errorf("schema validation error for %s: %w", activity.ID, err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return fmt.Errorf("input for %s invalid: %s", activity.ID, strings.Join(problems, "; "))
	}
	return nil
}
