package schema

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/fabricward/fabricward/pkg/engine"
)

// Registry holds compiled CUE schemas for the structural pre-pass. The
// pre-pass checks document shape (mappings where mappings are expected,
// lists where lists are expected) before the field tables run, so the
// table pass can assume well-formed containers.
type Registry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewRegistry compiles the built-in structural schemas.
func NewRegistry() (*Registry, error) {
	r := &Registry{
		ctx:     cuecontext.New(),
		schemas: make(map[string]cue.Value),
	}
	for name, source := range builtinSchemas {
		if err := r.Register(name, source); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register compiles source and stores it under name.
func (r *Registry) Register(name, source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	val := r.ctx.CompileString(source)
	if err := val.Err(); err != nil {
		return fmt.Errorf("compile schema %s: %w", name, err)
	}
	r.schemas[name] = val
	return nil
}

// Check unifies data with the named schema and reports structural
// violations as schema.type_mismatch.
func (r *Registry) Check(name string, data any) error {
	r.mu.RLock()
	schema, ok := r.schemas[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("schema %s not registered", name)
	}

	encoded := r.ctx.Encode(data)
	if err := encoded.Err(); err != nil {
		return engine.NewError(engine.FailSchemaTypeMismatch,
			fmt.Sprintf("encode %s document", name), err)
	}
	if err := schema.Unify(encoded).Validate(); err != nil {
		return engine.NewError(engine.FailSchemaTypeMismatch,
			fmt.Sprintf("%s document is malformed", name), err)
	}
	return nil
}

// CheckConfig runs the structural pre-pass over a full config list.
func (r *Registry) CheckConfig(docs []map[string]any) error {
	for i, doc := range docs {
		if err := r.Check("config", doc); err != nil {
			return fmt.Errorf("config[%d]: %w", i, err)
		}
	}
	return nil
}

// builtinSchemas are the structural shapes. Field-level constraints
// (types, enums, domains) live in the table pass; these only pin down
// which keys carry lists and which carry mappings.
var builtinSchemas = map[string]string{
	"config": builtinConfigSchema,
}

const builtinConfigSchema = `
{
	fabric_sites?: [...{...}]
	assurance_user_defined_issue_settings?: [...{...}]
	assurance_system_issue_settings?: [...{...}]
	assurance_issue?: [...{...}]
	global_credential_details?: {...}
	assign_credentials_to_site?: [...{...}]
	lan_automation?: {...}
	lan_automated_device_update?: {...}
	...
}
`
