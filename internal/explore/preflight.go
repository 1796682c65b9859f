package explore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/mcp"
)

// ToolLister retrieves the service's tool catalog.
type ToolLister interface {
	ListTools(ctx context.Context) ([]mcp.Tool, error)
}

// ArgValidator checks tool arguments against the input schemas the
// service advertises.
type ArgValidator struct {
	schemas map[string]*jsonschema.Schema
}

// PreflightResult is the outcome of the tools/list preflight.
type PreflightResult struct {
	Tools     []mcp.Tool
	Missing   []string
	Validator *ArgValidator
}

// Preflight lists tools, reports which of the explored tools are missing
// and compiles the schemas of the ones present. Schemas that fail to
// compile are skipped with a warning.
func Preflight(ctx context.Context, lister ToolLister, logger *slog.Logger) (*PreflightResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tools, err := lister.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("preflight: %w", err)
	}

	res := &PreflightResult{Tools: tools}
	byName := make(map[string]mcp.Tool, len(tools))
	for _, t := range tools {
		byName[t.Name] = t
	}
	for _, name := range Methods {
		if _, ok := byName[name]; !ok {
			res.Missing = append(res.Missing, name)
			logger.Warn("service does not advertise tool", "tool", name)
		}
	}

	v := &ArgValidator{schemas: make(map[string]*jsonschema.Schema)}
	for _, name := range Methods {
		t, ok := byName[name]
		if !ok || len(bytes.TrimSpace(t.InputSchema)) == 0 {
			continue
		}
		sch, err := compileSchema(name, t.InputSchema)
		if err != nil {
			logger.Warn("skipping unusable input schema", "tool", name, "error", err)
			continue
		}
		v.schemas[name] = sch
	}
	res.Validator = v
	return res, nil
}

func compileSchema(tool string, raw json.RawMessage) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	loc := tool + ".schema.json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(loc, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile(loc)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return sch, nil
}

// Validate checks args against the tool's schema. Tools without a schema
// always pass.
func (v *ArgValidator) Validate(tool string, args map[string]any) error {
	if v == nil {
		return nil
	}
	sch, ok := v.schemas[tool]
	if !ok {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return sch.Validate(inst)
}

// Len returns the number of compiled schemas.
func (v *ArgValidator) Len() int {
	if v == nil {
		return 0
	}
	return len(v.schemas)
}
