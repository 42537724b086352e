package schema

import "fmt"

// SchemaError reports a column whose declared type cannot be mapped. It wraps
// datatype.ErrUnsupportedType.
type SchemaError struct {
	Table  string
	Column string
	Type   string
	Err    error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: table %q column %q: type %q: %v", e.Table, e.Column, e.Type, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }
