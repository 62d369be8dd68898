package engine

import (
	"testing"
)

func TestEval_Arithmetic(t *testing.T) {
	ctx := NewContext(map[string]any{"x": 10, "y": 3})

	tests := []struct {
		expr     string
		expected float64
	}{
		{"1 + 2", 3},
		{"2 * 3 + 4", 10},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 / 4", 2.5},
		{"10 % 3", 1},
		{"-5 + 2", -3},
		{"x - y", 7},
		{"x * y", 30},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Eval(tt.expr, ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Eval(%q) = %v, want %v", tt.expr, got, tt.expected)
			}
		})
	}
}

func TestEval_Comparisons(t *testing.T) {
	ctx := NewContext(map[string]any{
		"count":  5,
		"name":   "abc",
		"active": true,
	})

	tests := []struct {
		expr     string
		expected bool
	}{
		{"count == 5", true},
		{"count != 5", false},
		{"count > 3", true},
		{"count >= 5", true},
		{"count < 5", false},
		{"count <= 4", false},
		{"name == 'abc'", true},
		{"name != 'xyz'", true},
		{"'b' > 'a'", true},
		{"active == true", true},
		{"missing == null", true},
		// Числовая строка сравнивается численно
		{"'10' > 9", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Eval(tt.expr, ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Eval(%q) = %v, want %v", tt.expr, got, tt.expected)
			}
		})
	}
}

func TestEval_Logic(t *testing.T) {
	ctx := NewContext(map[string]any{"a": 1, "b": 0})

	tests := []struct {
		expr     string
		expected bool
	}{
		{"true && true", true},
		{"true && false", false},
		{"false || true", true},
		{"false || false", false},
		{"!false", true},
		{"!a", false},
		{"a > 0 && b == 0", true},
		{"a > 5 || b == 0", true},
		{"!(a > 5)", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Eval(tt.expr, ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Eval(%q) = %v, want %v", tt.expr, got, tt.expected)
			}
		})
	}
}

func TestEval_Errors(t *testing.T) {
	ctx := NewContext(nil)

	exprs := []string{
		"",
		"1 +",
		"(1 + 2",
		"1 ++ 2",
		"foo(1)",
		"a[0]",
		"'unterminated",
	}

	for _, expr := range exprs {
		t.Run(expr, func(t *testing.T) {
			if _, err := Eval(expr, ctx); err == nil {
				t.Errorf("Eval(%q) should fail", expr)
			}
		})
	}
}

func TestEval_ErrorType(t *testing.T) {
	_, err := Eval("1 +", NewContext(nil))
	if err == nil {
		t.Fatal("expected error")
	}

	var evalErr *EvalError
	if !asEvalError(err, &evalErr) {
		t.Fatalf("expected *EvalError, got %T", err)
	}
	if evalErr.Expr != "1 +" {
		t.Errorf("Expr = %q", evalErr.Expr)
	}
}

func asEvalError(err error, target **EvalError) bool {
	e, ok := err.(*EvalError)
	if ok {
		*target = e
	}
	return ok
}

func TestEvalBool_Truthiness(t *testing.T) {
	ctx := NewContext(map[string]any{
		"zero":  0,
		"text":  "hi",
		"empty": "",
	})

	tests := []struct {
		expr     string
		expected bool
	}{
		{"zero", false},
		{"text", true},
		{"empty", false},
		{"missing", false},
		{"null", false},
		{"42", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := EvalBool(tt.expr, ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("EvalBool(%q) = %v, want %v", tt.expr, got, tt.expected)
			}
		})
	}
}
