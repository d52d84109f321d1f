package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const maxBodyBytes = 1 << 20

const createTaskSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": "string"},
    "description": {"type": "string"},
    "completed": {"type": "boolean"},
    "due_date": {"anyOf": [{"const": ""}, {"type": "string", "format": "date"}]},
    "due_time": {"type": "string"},
    "parent_id": {"type": ["string", "null"], "format": "uuid"},
    "children": {
      "type": "array",
      "items": {"type": "string", "format": "uuid"},
      "uniqueItems": true
    }
  },
  "required": ["name"],
  "additionalProperties": false
}`

const updateTaskSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": "string"},
    "description": {"type": "string"},
    "completed": {"type": "boolean"},
    "due_date": {"anyOf": [{"const": ""}, {"type": "string", "format": "date"}]},
    "due_time": {"type": "string"}
  },
  "minProperties": 1,
  "additionalProperties": false
}`

var (
	createTask = mustCompile("mem://nought/create-task.json", createTaskSchema)
	updateTask = mustCompile("mem://nought/update-task.json", updateTaskSchema)
)

func mustCompile(url, schema string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(url, strings.NewReader(schema)); err != nil {
		panic(err)
	}
	return compiler.MustCompile(url)
}

// errBadRequest marks request bodies that are not valid JSON.
var errBadRequest = errors.New("bad request")

// SchemaError is a request body that does not match its JSON schema.
type SchemaError struct {
	Path    string
	Message string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// decodeValidated reads a JSON body, checks it against schema and decodes it
// into v.
func decodeValidated(r *http.Request, schema *jsonschema.Schema, v any) error {
	defer r.Body.Close()

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", errBadRequest, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: invalid JSON: multiple JSON values", errBadRequest)
	}

	if err := schema.Validate(doc); err != nil {
		return schemaError(err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	return nil
}

// schemaError reduces a validation error to its first leaf cause.
func schemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &SchemaError{Message: err.Error()}
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return &SchemaError{Path: ve.InstanceLocation, Message: ve.Message}
}
