// Package datatype maps SQL type names onto typed read/write codecs.
//
// The set of codecs is closed: every DataType carries one Kind, and every
// Kind knows how to scan a result-set cell, how to turn a Go value into a
// bound parameter, and which typed NULL to bind when the value is absent.
// New SQL type names are added by registering aliases for an existing Kind
// (see Registry.Register); adding a Kind means extending the switches below.
package datatype

import (
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the SQL type tag of a DataType.
type Kind uint8

const (
	KindText Kind = iota + 1
	KindInt32
	KindInt64
	KindDecimal
	KindBlob
	KindDate
	KindFloat64
	KindTimestamp
	KindBool
)

var kindNames = map[Kind]string{
	KindText:      "text",
	KindInt32:     "int32",
	KindInt64:     "int64",
	KindDecimal:   "decimal",
	KindBlob:      "blob",
	KindDate:      "date",
	KindFloat64:   "float64",
	KindTimestamp: "timestamp",
	KindBool:      "bool",
}

// Kinds returns every supported Kind in tag order.
func Kinds() []Kind {
	return []Kind{KindText, KindInt32, KindInt64, KindDecimal, KindBlob, KindDate, KindFloat64, KindTimestamp, KindBool}
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// DataType is a typed codec for one column. The zero value is invalid.
type DataType struct {
	kind Kind
	name string
}

// Of returns the DataType for k, named after the kind itself.
func Of(k Kind) DataType {
	return DataType{kind: k, name: k.String()}
}

// Named returns a DataType for k that reports name as its SQL type name.
func Named(k Kind, name string) DataType {
	return DataType{kind: k, name: name}
}

// Lookup parses a kind name such as "text" or "int64" into its DataType.
func Lookup(kindName string) (DataType, error) {
	for k, n := range kindNames {
		if n == normalize(kindName) {
			return Of(k), nil
		}
	}
	return DataType{}, fmt.Errorf("%w: kind %q", ErrUnsupportedType, kindName)
}

// Kind returns the SQL type tag.
func (t DataType) Kind() Kind { return t.kind }

// Name returns the SQL type name the DataType was resolved from.
func (t DataType) Name() string { return t.name }

func (t DataType) IsZero() bool { return t.kind == 0 }

func (t DataType) String() string { return t.name + "/" + t.kind.String() }

// NewHolder returns a fresh scan destination for one cell of this type.
// Pass it to (*sql.Rows).Scan and convert the result with Decode.
func (t DataType) NewHolder() any {
	switch t.kind {
	case KindText:
		return new(sql.NullString)
	case KindInt32:
		return new(sql.NullInt32)
	case KindInt64:
		return new(sql.NullInt64)
	case KindDecimal:
		return new(decimal.NullDecimal)
	case KindBlob:
		return new([]byte)
	case KindDate, KindTimestamp:
		return new(sql.NullTime)
	case KindFloat64:
		return new(sql.NullFloat64)
	case KindBool:
		return new(nullBit)
	}
	panic(fmt.Sprintf("datatype: holder for invalid kind %v", t.kind))
}

// Decode converts a holder filled by Scan into the column value, or nil when
// the cell was NULL.
func (t DataType) Decode(holder any) any {
	switch h := holder.(type) {
	case *sql.NullString:
		if h.Valid {
			return h.String
		}
	case *sql.NullInt32:
		if h.Valid {
			return h.Int32
		}
	case *sql.NullInt64:
		if h.Valid {
			return h.Int64
		}
	case *decimal.NullDecimal:
		if h.Valid {
			return h.Decimal
		}
	case *[]byte:
		if *h != nil {
			// The driver may reuse its buffer after the next Scan.
			out := make([]byte, len(*h))
			copy(out, *h)
			return out
		}
	case *sql.NullTime:
		if h.Valid {
			if t.kind == KindDate {
				y, m, d := h.Time.Date()
				return time.Date(y, m, d, 0, 0, 0, 0, h.Time.Location())
			}
			return h.Time
		}
	case *sql.NullFloat64:
		if h.Valid {
			return h.Float64
		}
	case *nullBit:
		if h.Valid {
			return h.Bool
		}
	}
	return nil
}

// nullBit scans BOOLEAN and BIT(1) cells. MySQL returns BIT as raw bytes,
// which sql.NullBool rejects.
type nullBit struct {
	sql.NullBool
}

func (b *nullBit) Scan(src any) error {
	if x, ok := src.([]byte); ok && len(x) == 1 && x[0] <= 1 {
		b.Bool, b.Valid = x[0] == 1, true
		return nil
	}
	return b.NullBool.Scan(src)
}

// Null returns the typed NULL bound for an absent value of this type.
func (t DataType) Null() any {
	switch t.kind {
	case KindText:
		return sql.NullString{}
	case KindInt32:
		return sql.NullInt32{}
	case KindInt64:
		return sql.NullInt64{}
	case KindDecimal:
		return decimal.NullDecimal{}
	case KindBlob:
		return []byte(nil)
	case KindDate, KindTimestamp:
		return sql.NullTime{}
	case KindFloat64:
		return sql.NullFloat64{}
	case KindBool:
		return sql.NullBool{}
	}
	panic(fmt.Sprintf("datatype: null for invalid kind %v", t.kind))
}

// Encode turns a column value into a bound parameter. A nil value binds as
// the typed NULL of this type. Values of a compatible Go type are converted;
// anything else is an error.
func (t DataType) Encode(v any) (any, error) {
	if v == nil {
		return t.Null(), nil
	}
	switch t.kind {
	case KindText:
		switch x := v.(type) {
		case string:
			return x, nil
		case []byte:
			return string(x), nil
		case fmt.Stringer:
			return x.String(), nil
		}
	case KindInt32:
		if n, ok := asInt64(v); ok {
			if n < math.MinInt32 || n > math.MaxInt32 {
				return nil, fmt.Errorf("datatype: %d overflows %s", n, t.name)
			}
			return int32(n), nil
		}
	case KindInt64:
		if n, ok := asInt64(v); ok {
			return n, nil
		}
	case KindDecimal:
		switch x := v.(type) {
		case decimal.Decimal:
			return x, nil
		case string:
			d, err := decimal.NewFromString(x)
			if err != nil {
				return nil, fmt.Errorf("datatype: %s: %w", t.name, err)
			}
			return d, nil
		case float64:
			return decimal.NewFromFloat(x), nil
		}
		if n, ok := asInt64(v); ok {
			return decimal.NewFromInt(n), nil
		}
	case KindBlob:
		switch x := v.(type) {
		case []byte:
			return x, nil
		case string:
			return []byte(x), nil
		}
	case KindDate, KindTimestamp:
		if x, ok := v.(time.Time); ok {
			return x, nil
		}
	case KindFloat64:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		case decimal.Decimal:
			f, _ := x.Float64()
			return f, nil
		}
		if n, ok := asInt64(v); ok {
			return float64(n), nil
		}
	case KindBool:
		if x, ok := v.(bool); ok {
			return x, nil
		}
	default:
		return nil, fmt.Errorf("datatype: encode with invalid kind %v", t.kind)
	}
	return nil, fmt.Errorf("datatype: cannot encode %T as %s", v, t.name)
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	}
	return 0, false
}
