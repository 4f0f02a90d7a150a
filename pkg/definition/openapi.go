package definition

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formstate/pkg/fieldpath"
)

// ErrOperationNotFound is returned when the requested operationId is absent.
var ErrOperationNotFound = errors.New("definition: operation not found")

// FromOpenAPI derives a definition from the request body schema of the
// operation identified by operationID. Object properties become dotted
// paths; arrays of scalars become list fields; enums become select fields;
// required properties get a required rule.
func FromOpenAPI(ctx context.Context, data []byte, operationID string) (Definition, error) {
	if err := ctx.Err(); err != nil {
		return Definition{}, err
	}
	if len(data) == 0 {
		return Definition{}, errors.New("definition: openapi document is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return Definition{}, fmt.Errorf("definition: load openapi document: %w", err)
	}

	op := findOperation(doc, operationID)
	if op == nil {
		return Definition{}, fmt.Errorf("%w: %q", ErrOperationNotFound, operationID)
	}

	def := Definition{
		Name:        operationID,
		Description: strings.TrimSpace(op.Summary),
	}
	schema := requestSchema(op.RequestBody)
	if schema == nil {
		return def, nil
	}
	def.Fields = schemaFields("", schema)
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

func findOperation(doc *openapi3.T, operationID string) *openapi3.Operation {
	if doc == nil || doc.Paths == nil {
		return nil
	}
	for _, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for _, op := range item.Operations() {
			if op != nil && op.OperationID == operationID {
				return op
			}
		}
	}
	return nil
}

func requestSchema(body *openapi3.RequestBodyRef) *openapi3.Schema {
	if body == nil || body.Value == nil {
		return nil
	}
	content := body.Value.Content
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	for _, mt := range content {
		if mt != nil && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

func schemaFields(prefix string, schema *openapi3.Schema) []Field {
	if schema == nil {
		return nil
	}
	required := make(map[string]struct{}, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = struct{}{}
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Field
	for _, name := range names {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		prop := ref.Value
		path := fieldpath.Join(prefix, name)

		if schemaType(prop) == openapi3.TypeObject {
			out = append(out, schemaFields(path, prop)...)
			continue
		}

		field := scalarField(path, prop)
		if schemaType(prop) == openapi3.TypeArray {
			field.Kind = KindList
			if prop.Items != nil && prop.Items.Value != nil && isScalar(prop.Items.Value) {
				item := scalarField("", prop.Items.Value)
				field.Item = &item
			}
		}
		if _, ok := required[name]; ok {
			field.Rules = append(field.Rules, RuleSpec{Kind: RuleRequired})
		}
		out = append(out, field)
	}
	return out
}

func scalarField(name string, schema *openapi3.Schema) Field {
	field := Field{
		Name:    name,
		Label:   strings.TrimSpace(schema.Title),
		Help:    strings.TrimSpace(schema.Description),
		Default: normalize(schema.Default),
	}
	switch schemaType(schema) {
	case openapi3.TypeBoolean:
		field.Kind = KindConfirm
	case openapi3.TypeInteger:
		field.Kind = KindInteger
	case openapi3.TypeNumber:
		field.Kind = KindNumber
	default:
		switch schema.Format {
		case "password":
			field.Kind = KindPassword
		case "textarea":
			field.Kind = KindTextArea
		default:
			field.Kind = KindText
		}
	}
	if len(schema.Enum) > 0 {
		field.Kind = KindSelect
		for _, option := range schema.Enum {
			field.Options = append(field.Options, fmt.Sprint(option))
		}
	}
	return field
}

func schemaType(schema *openapi3.Schema) string {
	if schema == nil {
		return ""
	}
	var values []string
	if schema.Type != nil {
		values = schema.Type.Slice()
	}
	if len(values) == 0 {
		if len(schema.Properties) > 0 {
			return openapi3.TypeObject
		}
		return ""
	}
	return values[0]
}

func isScalar(schema *openapi3.Schema) bool {
	switch schemaType(schema) {
	case openapi3.TypeObject, openapi3.TypeArray:
		return false
	default:
		return true
	}
}
