// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"driver-application/internal/common/validation"
)

//go:embed activities.json
var defaultRegistry []byte

type ActivityRegistry struct {
	Version    string     `json:"version"`
	Activities []Activity `json:"activities"`
}

// Activity describes one job worker: the task type it serves, the process
// variables it expects and the BPMN error codes it may throw.
type Activity struct {
	ID          string                 `json:"id"`
	Version     string                 `json:"version"`
	TaskType    string                 `json:"taskType"`
	InputSchema map[string]interface{} `json:"inputSchema"`
	ErrorCodes  []string               `json:"errorCodes"`
}

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

// Default returns the registry of the workers shipped with worker-manager.
func Default() (*ActivityRegistry, error) {
	return parse(defaultRegistry)
}

func parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse activity registry: %w", err)
	}
	return &reg, nil
}

// Lookup finds the activity serving taskType.
func (r *ActivityRegistry) Lookup(taskType string) (*Activity, error) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], nil
		}
	}
	return nil, fmt.Errorf("no activity registered for task type %q", taskType)
}

// ValidateInput checks process variables against the activity's input schema.
func (a *Activity) ValidateInput(variables interface{}) (validation.FieldErrors, error) {
	if len(a.InputSchema) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(a.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("encode input schema of %s: %w", a.ID, err)
	}
	schema, err := validation.Compile(string(raw))
	if err != nil {
		return nil, fmt.Errorf("input schema of %s: %w", a.ID, err)
	}
	return schema.Validate(variables), nil
}
