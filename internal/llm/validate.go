package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemeSchemaURL = "scheme_header.schema.json"

// CompileSchema compiles the scheme header schema once per extractor.
func CompileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(schemaMap); err != nil {
		return nil, fmt.Errorf("encode scheme schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource(schemeSchemaURL, &buf); err != nil {
		return nil, fmt.Errorf("load scheme schema: %w", err)
	}
	return c.Compile(schemeSchemaURL)
}

// ValidateScheme decodes one encoded scheme and checks it against schema.
// The error lists every failing field.
func ValidateScheme(schema *jsonschema.Schema, doc []byte) error {
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("decode scheme: %w", err)
	}
	err := schema.Validate(v)
	if err == nil {
		return nil
	}
	if fields := Violations(err); len(fields) > 0 {
		return fmt.Errorf("invalid fields %s: %w", strings.Join(fields, ", "), err)
	}
	return err
}

// Violations returns the sorted top-level properties a validation error
// points at. "(root)" stands for errors on the object itself.
func Violations(err error) []string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil
	}
	seen := map[string]struct{}{}
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			field := strings.TrimPrefix(e.InstanceLocation, "/")
			if i := strings.IndexByte(field, '/'); i >= 0 {
				field = field[:i]
			}
			if field == "" {
				field = "(root)"
			}
			seen[field] = struct{}{}
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)

	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
