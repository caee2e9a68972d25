package record

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// Schema names one of the bundled container schemas.
type Schema string

const (
	SchemaCNAPublished Schema = "cnaPublishedContainer"
	SchemaCNARejected  Schema = "cnaRejectedContainer"
	SchemaADP          Schema = "adpContainer"
)

//go:embed schemas/cve_containers.yaml
var bundledSpec []byte

var loadBundled = sync.OnceValues(func() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(bundledSpec)
	if err != nil {
		return nil, fmt.Errorf("load bundled schemas: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("bundled schemas are invalid: %w", err)
	}
	return doc, nil
})

// ValidationError lists every schema violation found in a container.
type ValidationError struct {
	Schema   string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Schema validation against %s failed:\n%s", e.Schema, strings.Join(e.Problems, "\n"))
}

// Validator checks containers against one schema.
type Validator struct {
	name   string
	schema *openapi3.Schema
}

// Name is the schema name used in error messages.
func (v *Validator) Name() string { return v.name }

// Bundled returns the validator for one of the bundled schemas.
func Bundled(s Schema) (*Validator, error) {
	doc, err := loadBundled()
	if err != nil {
		return nil, err
	}
	ref, ok := doc.Components.Schemas[string(s)]
	if !ok || ref.Value == nil {
		return nil, fmt.Errorf("record: unknown schema %q", s)
	}
	return &Validator{name: string(s), schema: ref.Value}, nil
}

// LoadValidator reads a standalone JSON or YAML schema from path. Local
// references into "definitions" or "$defs" are resolved; other documents
// cannot be referenced.
func LoadValidator(path string) (*Validator, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("parse schema %s: empty document", path)
	}

	// Hoist the definitions into an OpenAPI document so the loader can
	// resolve refs to them as component schemas.
	components := map[string]any{}
	for _, k := range []string{"definitions", "$defs"} {
		defs, _ := tree[k].(map[string]any)
		for name, def := range defs {
			components[name] = def
		}
		delete(tree, k)
	}
	if _, taken := components[rootSchema]; taken {
		return nil, fmt.Errorf("schema %s: definition name %q is reserved", path, rootSchema)
	}
	components[rootSchema] = tree
	rewriteRefs(components)

	js, err := json.Marshal(map[string]any{
		"openapi":    "3.0.3",
		"info":       map[string]any{"title": filepath.Base(path), "version": "0"},
		"paths":      map[string]any{},
		"components": map[string]any{"schemas": components},
	})
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(js)
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("schema %s is invalid: %w", path, err)
	}
	ref := doc.Components.Schemas[rootSchema]
	if ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("schema %s: no root schema", path)
	}
	return &Validator{name: filepath.Base(path), schema: ref.Value}, nil
}

// rootSchema is the component name given to the top-level schema of a file.
const rootSchema = "_root"

// Draft keywords that OpenAPI schema objects reject as unknown siblings.
var jsonSchemaOnly = []string{"$schema", "$id", "$comment"}

// rewriteRefs points draft-style local refs at component schemas and drops
// draft-only keywords, walking v in place.
func rewriteRefs(v any) {
	switch n := v.(type) {
	case map[string]any:
		for _, k := range jsonSchemaOnly {
			delete(n, k)
		}
		if ref, ok := n["$ref"].(string); ok {
			switch {
			case ref == "#":
				n["$ref"] = componentRef + rootSchema
			case strings.HasPrefix(ref, "#/definitions/"):
				n["$ref"] = componentRef + strings.TrimPrefix(ref, "#/definitions/")
			case strings.HasPrefix(ref, "#/$defs/"):
				n["$ref"] = componentRef + strings.TrimPrefix(ref, "#/$defs/")
			}
		}
		for _, child := range n {
			rewriteRefs(child)
		}
	case []any:
		for _, child := range n {
			rewriteRefs(child)
		}
	}
}

const componentRef = "#/components/schemas/"

// Validate checks c against the bundled schema s.
func Validate(c map[string]any, s Schema) error {
	v, err := Bundled(s)
	if err != nil {
		return err
	}
	return v.Validate(c)
}

// Validate checks c and returns a *ValidationError listing every problem.
// Top-level x_ properties are not checked.
func (v *Validator) Validate(c map[string]any) error {
	value, err := normalize(c)
	if err != nil {
		return err
	}
	err = v.schema.VisitJSON(value, openapi3.MultiErrors())
	if err == nil {
		return nil
	}
	problems := flatten(err, nil)
	slices.Sort(problems)
	problems = slices.Compact(problems)
	return &ValidationError{Schema: v.name, Problems: problems}
}

// normalize round-trips c through JSON so the validator sees plain decoded
// values, and drops top-level x_ extension properties.
func normalize(c map[string]any) (map[string]any, error) {
	buf, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode container: %w", err)
	}
	var out map[string]any
	if err := json.NewDecoder(bytes.NewReader(buf)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode container: %w", err)
	}
	for k := range out {
		if strings.HasPrefix(k, "x_") {
			delete(out, k)
		}
	}
	return out, nil
}

func flatten(err error, into []string) []string {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		for _, e := range multi {
			into = flatten(e, into)
		}
		return into
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		ptr := se.JSONPointer()
		if len(ptr) == 0 {
			return append(into, se.Reason)
		}
		return append(into, "/"+strings.Join(ptr, "/")+": "+se.Reason)
	}
	return append(into, err.Error())
}
