package types

import "testing"

func TestParseOperator(t *testing.T) {
	cases := map[string]Operator{
		"<": LT, "lt": LT, "<=": LTE, "LTE": LTE, ">=": GTE, "gte": GTE, ">": GT, "GT": GT,
	}
	for in, want := range cases {
		got, err := ParseOperator(in)
		if err != nil {
			t.Fatalf("ParseOperator(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseOperator(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseOperator("=="); err == nil {
		t.Errorf("expected error for unknown operator")
	}
}

func TestParseDatatype(t *testing.T) {
	if d, err := ParseDatatype("int"); err != nil || d != INTEGER {
		t.Fatalf("ParseDatatype(int) = %v, %v", d, err)
	}
	if d, err := ParseDatatype("string"); err != nil || d != STRING {
		t.Fatalf("ParseDatatype(string) = %v, %v", d, err)
	}
	if _, err := ParseDatatype("blob"); err == nil {
		t.Errorf("expected error for unknown datatype")
	}
}
