package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fabricward/fabricward/pkg/engine"
)

// Type is the declared type of a schema field.
type Type string

const (
	// TypeString accepts a string value.
	TypeString Type = "string"

	// TypeInt accepts an integer, coercing decimal strings.
	TypeInt Type = "int"

	// TypeFloat accepts a number.
	TypeFloat Type = "float"

	// TypeBool accepts a boolean.
	TypeBool Type = "bool"

	// TypeDict accepts a nested mapping validated against Elem.
	TypeDict Type = "dict"

	// TypeList accepts a list; elements are mappings validated against
	// Elem, or scalars checked against ElemType.
	TypeList Type = "list"
)

// Field describes one schema field.
type Field struct {
	// Type is the declared field type.
	Type Type

	// Required rejects documents missing the field.
	Required bool

	// Default is applied when the field is absent and not required.
	Default any

	// Choices enumerates the allowed values for string fields. Matching
	// is case-insensitive; the validated value is normalized to the
	// listed form.
	Choices []string

	// Aliases are accepted alternate field names, normalized to the
	// canonical name in the validated output.
	Aliases []string

	// Elem is the element schema for dict fields and list-of-mapping
	// fields.
	Elem *Schema

	// ElemType is the element type for lists of scalars.
	ElemType Type

	// Domain names a domain validation applied after coercion.
	Domain Domain

	// Min and Max bound integer fields inclusively when Max > 0 or
	// Min != 0.
	Min, Max int

	// MaxLen bounds list length when non-zero.
	MaxLen int

	// Stringify accepts numeric values on string fields, rendering them
	// in decimal. Used where a playbook may write 4 or "Warning".
	Stringify bool
}

// Schema describes one mapping shape.
type Schema struct {
	// Fields maps canonical field names to their descriptions.
	Fields map[string]Field

	// CrossField, when set, runs after per-field validation on the
	// validated document and returns any inter-field violations.
	CrossField func(doc map[string]any, path string) []Issue
}

// Issue is one validation failure.
type Issue struct {
	// Kind is the schema failure classification.
	Kind engine.FailureKind

	// Path locates the failing field ("[0].fabric_sites[1].vlan_id").
	Path string

	// Message describes the failure.
	Message string
}

// String renders the issue for the aggregated error message.
func (i Issue) String() string {
	return fmt.Sprintf("%s: %s (%s)", i.Path, i.Message, i.Kind)
}

// Result is the outcome of validating a document list.
type Result struct {
	// Docs are the validated canonical documents, aligned with the input.
	Docs []map[string]any

	// Issues are all collected failures.
	Issues []Issue
}

// Err aggregates the collected issues into a single error, or nil when
// validation passed.
func (r Result) Err() error {
	if len(r.Issues) == 0 {
		return nil
	}
	lines := make([]string, 0, len(r.Issues))
	for _, issue := range r.Issues {
		lines = append(lines, issue.String())
	}
	return engine.Errorf(r.Issues[0].Kind, "invalid playbook parameters:\n  %s",
		strings.Join(lines, "\n  "))
}

// ValidateList validates a list of mappings against the schema. All
// documents are validated even when earlier ones fail; the input is never
// mutated.
func (s *Schema) ValidateList(docs []map[string]any, path string) Result {
	result := Result{Docs: make([]map[string]any, 0, len(docs))}
	for i, doc := range docs {
		validated, issues := s.validateDoc(doc, fmt.Sprintf("%s[%d]", path, i))
		result.Docs = append(result.Docs, validated)
		result.Issues = append(result.Issues, issues...)
	}
	return result
}

// Validate validates a single mapping against the schema.
func (s *Schema) Validate(doc map[string]any, path string) (map[string]any, []Issue) {
	return s.validateDoc(doc, path)
}

func (s *Schema) validateDoc(doc map[string]any, path string) (map[string]any, []Issue) {
	var issues []Issue
	out := make(map[string]any, len(doc))

	// Resolve aliases into canonical names first so required checks and
	// unknown-field rejection see one consistent naming.
	canonical := make(map[string]any, len(doc))
	aliasOf := s.aliasIndex()
	for name, value := range doc {
		target := name
		if alias, ok := aliasOf[name]; ok {
			target = alias
		}
		if _, dup := canonical[target]; dup {
			issues = append(issues, Issue{
				Kind:    engine.FailSchemaCrossField,
				Path:    path + "." + name,
				Message: fmt.Sprintf("field and its alias %q are both present", target),
			})
			continue
		}
		canonical[target] = value
	}

	for name := range canonical {
		if _, known := s.Fields[name]; !known {
			issues = append(issues, Issue{
				Kind:    engine.FailSchemaUnknownField,
				Path:    path + "." + name,
				Message: "unknown field",
			})
		}
	}

	for _, name := range s.sortedFieldNames() {
		field := s.Fields[name]
		fieldPath := path + "." + name
		value, present := canonical[name]
		if !present || value == nil {
			if field.Required {
				issues = append(issues, Issue{
					Kind:    engine.FailSchemaMissingRequired,
					Path:    fieldPath,
					Message: "required field is missing",
				})
				continue
			}
			if field.Default != nil {
				out[name] = field.Default
			}
			continue
		}

		coerced, fieldIssues := field.validateValue(value, fieldPath)
		issues = append(issues, fieldIssues...)
		if len(fieldIssues) == 0 {
			out[name] = coerced
		}
	}

	if s.CrossField != nil && len(issues) == 0 {
		issues = append(issues, s.CrossField(out, path)...)
	}
	return out, issues
}

// aliasIndex maps every alias to its canonical field name.
func (s *Schema) aliasIndex() map[string]string {
	index := make(map[string]string)
	for name, field := range s.Fields {
		for _, alias := range field.Aliases {
			index[alias] = name
		}
	}
	return index
}

func (s *Schema) sortedFieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validateValue coerces and checks one field value.
func (f Field) validateValue(value any, path string) (any, []Issue) {
	switch f.Type {
	case TypeString:
		return f.validateString(value, path)
	case TypeInt:
		return f.validateInt(value, path)
	case TypeFloat:
		return f.validateFloat(value, path)
	case TypeBool:
		b, ok := value.(bool)
		if !ok {
			return nil, []Issue{typeMismatch(path, "bool", value)}
		}
		return b, nil
	case TypeDict:
		return f.validateDict(value, path)
	case TypeList:
		return f.validateListValue(value, path)
	default:
		return nil, []Issue{{
			Kind:    engine.FailSchemaTypeMismatch,
			Path:    path,
			Message: fmt.Sprintf("schema declares unsupported type %q", f.Type),
		}}
	}
}

func (f Field) validateString(value any, path string) (any, []Issue) {
	s, ok := value.(string)
	if !ok {
		if f.Stringify {
			if n, intOK := coerceInt(value); intOK {
				s, ok = strconv.Itoa(n), true
			}
		}
		if !ok {
			return nil, []Issue{typeMismatch(path, "string", value)}
		}
	}
	if len(f.Choices) > 0 {
		normalized, ok := normalizeChoice(s, f.Choices)
		if !ok {
			return nil, []Issue{{
				Kind: engine.FailSchemaEnumViolation,
				Path: path,
				Message: fmt.Sprintf("value %q is not one of %s",
					s, strings.Join(f.Choices, ", ")),
			}}
		}
		s = normalized
	}
	if f.Domain != "" {
		if msg := checkDomain(f.Domain, s); msg != "" {
			return nil, []Issue{{
				Kind:    engine.FailSchemaDomainInvalid,
				Path:    path,
				Message: msg,
			}}
		}
	}
	return s, nil
}

func (f Field) validateInt(value any, path string) (any, []Issue) {
	n, ok := coerceInt(value)
	if !ok {
		return nil, []Issue{typeMismatch(path, "int", value)}
	}
	if f.Min != 0 || f.Max != 0 {
		if n < f.Min || n > f.Max {
			return nil, []Issue{{
				Kind:    engine.FailSchemaDomainInvalid,
				Path:    path,
				Message: fmt.Sprintf("value %d is outside [%d, %d]", n, f.Min, f.Max),
			}}
		}
	}
	if f.Domain != "" {
		if msg := checkIntDomain(f.Domain, n); msg != "" {
			return nil, []Issue{{
				Kind:    engine.FailSchemaDomainInvalid,
				Path:    path,
				Message: msg,
			}}
		}
	}
	return n, nil
}

func (f Field) validateFloat(value any, path string) (any, []Issue) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return nil, []Issue{typeMismatch(path, "float", value)}
	}
}

func (f Field) validateDict(value any, path string) (any, []Issue) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, []Issue{typeMismatch(path, "mapping", value)}
	}
	if f.Elem == nil {
		// Opaque dict: copy as-is. An empty mapping is a meaningful value
		// (explicit unset for credential bindings), so it is preserved.
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, nil
	}
	if len(m) == 0 {
		// An empty mapping against a structured schema means "declared
		// but empty"; cross-field hooks decide whether that is legal.
		return map[string]any{}, nil
	}
	return f.Elem.validateDoc(m, path)
}

func (f Field) validateListValue(value any, path string) (any, []Issue) {
	list, ok := value.([]any)
	if !ok {
		return nil, []Issue{typeMismatch(path, "list", value)}
	}
	if f.MaxLen > 0 && len(list) > f.MaxLen {
		return nil, []Issue{{
			Kind:    engine.FailSchemaDomainInvalid,
			Path:    path,
			Message: fmt.Sprintf("list has %d elements, maximum is %d", len(list), f.MaxLen),
		}}
	}

	var issues []Issue
	out := make([]any, 0, len(list))
	for i, elem := range list {
		elemPath := fmt.Sprintf("%s[%d]", path, i)
		if f.Elem != nil {
			m, ok := elem.(map[string]any)
			if !ok {
				issues = append(issues, typeMismatch(elemPath, "mapping", elem))
				continue
			}
			validated, elemIssues := f.Elem.validateDoc(m, elemPath)
			issues = append(issues, elemIssues...)
			out = append(out, validated)
			continue
		}
		elemField := Field{Type: f.ElemType, Domain: f.Domain, Choices: f.Choices}
		if elemField.Type == "" {
			elemField.Type = TypeString
		}
		validated, elemIssues := elemField.validateValue(elem, elemPath)
		issues = append(issues, elemIssues...)
		if len(elemIssues) == 0 {
			out = append(out, validated)
		}
	}
	if len(issues) > 0 {
		return nil, issues
	}
	return out, nil
}

// normalizeChoice matches value against choices case-insensitively and
// returns the canonical listed form.
func normalizeChoice(value string, choices []string) (string, bool) {
	for _, choice := range choices {
		if strings.EqualFold(value, choice) {
			return choice, true
		}
	}
	return "", false
}

// coerceInt accepts ints, whole floats from YAML, and decimal strings.
func coerceInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func typeMismatch(path, want string, got any) Issue {
	return Issue{
		Kind:    engine.FailSchemaTypeMismatch,
		Path:    path,
		Message: fmt.Sprintf("expected %s, got %T", want, got),
	}
}
