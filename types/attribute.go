package types

import (
	"fmt"
	"strings"
)

// Datatype is the type of the attribute an index is built on.
type Datatype uint8

const (
	INTEGER Datatype = iota
	DOUBLE
	STRING
)

func (d Datatype) String() string {
	switch d {
	case INTEGER:
		return "INTEGER"
	case DOUBLE:
		return "DOUBLE"
	case STRING:
		return "STRING"
	default:
		return fmt.Sprintf("Datatype(%d)", uint8(d))
	}
}

func ParseDatatype(s string) (Datatype, error) {
	switch strings.ToUpper(s) {
	case "INT", "INTEGER":
		return INTEGER, nil
	case "DOUBLE", "FLOAT":
		return DOUBLE, nil
	case "STRING", "TEXT":
		return STRING, nil
	}
	return 0, fmt.Errorf("unknown datatype %q", s)
}

// Operator is a scan bound operator.
type Operator uint8

const (
	LT Operator = iota
	LTE
	GTE
	GT
)

func (op Operator) String() string {
	switch op {
	case LT:
		return "LT"
	case LTE:
		return "LTE"
	case GTE:
		return "GTE"
	case GT:
		return "GT"
	default:
		return fmt.Sprintf("Operator(%d)", uint8(op))
	}
}

// ParseOperator accepts both the symbolic and the named spelling (">=" or "GTE").
func ParseOperator(s string) (Operator, error) {
	switch strings.ToUpper(s) {
	case "<", "LT":
		return LT, nil
	case "<=", "LTE":
		return LTE, nil
	case ">=", "GTE":
		return GTE, nil
	case ">", "GT":
		return GT, nil
	}
	return 0, fmt.Errorf("unknown operator %q", s)
}
