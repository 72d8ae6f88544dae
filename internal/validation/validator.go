// Package validation checks JSON request bodies against the embedded
// schemas before they are decoded into request structs.
package validation

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/campusearn/backend/internal/models"
)

// Schema names, one per request body shape.
const (
	Register    = "register"
	Login       = "login"
	CreateTask  = "create_task"
	SubmitProof = "submit_proof"
	Decision    = "decision"
	Amount      = "amount"
	Profile     = "profile"
	College     = "college"
	Picture     = "picture"
	Role        = "role"
	Ad          = "ad"
)

// ErrValidation marks a body rejected by its schema. It wraps
// models.ErrInvalid so the HTTP layer answers 400.
var ErrValidation = fmt.Errorf("%w: schema validation failed", models.ErrInvalid)

//go:embed schemas/*.json
var schemaFS embed.FS

type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// New compiles every embedded schema.
func New() (*Validator, error) {
	files, err := fs.Glob(schemaFS, "schemas/*.json")
	if err != nil {
		return nil, err
	}
	schemas := make(map[string]*jsonschema.Schema, len(files))
	for _, f := range files {
		data, err := schemaFS.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", f, err)
		}
		name := strings.TrimSuffix(path.Base(f), ".json")
		id := "https://campusearn.app/schemas/" + name + ".json"
		schemas[name], err = jsonschema.CompileString(id, string(data))
		if err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", name, err)
		}
	}
	return &Validator{schemas: schemas}, nil
}

// MustNew is New for wiring code that cannot continue without schemas.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks body against the named schema. Malformed JSON and schema
// violations both wrap ErrValidation.
func (v *Validator) Validate(name string, body []byte) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrValidation, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", ErrValidation)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// Has reports whether a schema with this name is loaded.
func (v *Validator) Has(name string) bool {
	_, ok := v.schemas[name]
	return ok
}
