package entity

import (
	"reflect"
	"testing"
)

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		want    any
		wantErr bool
	}{
		{"single-quoted string", `'hello'`, "hello", false},
		{"double-quoted string", `"hello"`, "hello", false},
		{"escaped quote", `'it\'s'`, "it's", false},
		{"escaped newline", `'a\nb'`, "a\nb", false},
		{"unicode passthrough", `'김신'`, "김신", false},
		{"unicode escape", `'\uc774'`, "이", false},
		{"hex escape", `'\x41'`, "A", false},
		{"truncated unicode escape", `'\uc7'`, nil, true},
		{"integer", `42`, int64(42), false},
		{"negative integer", `-7`, int64(-7), false},
		{"float", `3.5`, 3.5, false},
		{"none", `None`, nil, false},
		{"true", `True`, true, false},
		{"false", `False`, false, false},
		{"list", `['a', 'b']`, []any{"a", "b"}, false},
		{"tuple", `('a', 1)`, tuple{"a", int64(1)}, false},
		{"nested", `('a', ['b', 'c'])`, tuple{"a", []any{"b", "c"}}, false},
		{"trailing comma", `('a', 'b',)`, tuple{"a", "b"}, false},
		{"empty list", `[]`, []any(nil), false},
		{"unterminated string", `'oops`, nil, true},
		{"unterminated tuple", `('a', 'b'`, nil, true},
		{"trailing garbage", `'a' extra`, nil, true},
		{"bare identifier", `import os`, nil, true},
		{"call expression", `open("x")`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLiteral(tt.src)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseLiteral(%q) = %v, want error", tt.src, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseLiteral(%q) error: %v", tt.src, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseLiteral(%q) = %#v, want %#v", tt.src, got, tt.want)
			}
		})
	}
}

func TestQuoteStringRoundTrip(t *testing.T) {
	inputs := []string{
		"plain",
		"with 'quotes' inside",
		`back\slash`,
		"tab\tand\rreturn",
		"한글 설명",
		`{"age-range": "30s", "gender": "male"}`,
	}

	for _, in := range inputs {
		got, err := parseLiteral(quoteString(in))
		if err != nil {
			t.Fatalf("round trip of %q failed to parse: %v", in, err)
		}
		if got != in {
			t.Errorf("round trip of %q = %q", in, got)
		}
	}
}
