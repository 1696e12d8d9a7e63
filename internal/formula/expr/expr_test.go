package expr

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func vars(pairs map[string]string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(pairs))
	for name, value := range pairs {
		out[name] = decimal.RequireFromString(value)
	}
	return out
}

func TestEvaluatePrecedence(t *testing.T) {
	cases := []struct {
		expression string
		want       string
	}{
		{"1 + 2 * 3", "7"},
		{"(1 + 2) * 3", "9"},
		{"10 - 4 - 3", "3"},
		{"20 / 4 / 5", "1"},
		{"2 * 3 + 4 * 5", "26"},
		{"-5 + 10", "5"},
		{"2 * (3 + (4 - 1))", "12"},
	}
	for _, tc := range cases {
		got, err := Evaluate(tc.expression, nil)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.expression, err)
		}
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("%s: expected %s, got %s", tc.expression, tc.want, got)
		}
	}
}

func TestEvaluateWithVariables(t *testing.T) {
	values := vars(map[string]string{
		"base_rate":          "10000",
		"aliquot_percentage": "1.25",
		"floor":              "10",
	})

	got, err := Evaluate("base_rate * aliquot_percentage / 100 + floor * 10", values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("225")) {
		t.Fatalf("expected 225, got %s", got)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	values := vars(map[string]string{"area_m2": "85.50"})
	first, err := Evaluate("area_m2 * 2", values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Evaluate("area_m2 * 2", values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.Equal(second) {
		t.Fatalf("evaluation is not deterministic: %s vs %s", first, second)
	}
}

func TestEvaluateExactDecimal(t *testing.T) {
	// 0.1 + 0.2 must be exactly 0.3, never the float64 artifact.
	got, err := Evaluate("0.1 + 0.2", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("0.3")) {
		t.Fatalf("expected 0.3, got %s", got)
	}
}

func TestForbiddenTokensNeverEvaluate(t *testing.T) {
	expressions := []string{
		`eval("malicious")`,
		`require("fs")`,
		`function(){}`,
		`base_rate[0]`,
		`exec + 1`,
		`a = 1`,
		`1; 2`,
	}
	for _, expression := range expressions {
		_, err := Evaluate(expression, vars(map[string]string{"base_rate": "1", "a": "1"}))
		if !errors.Is(err, ErrForbiddenToken) {
			t.Fatalf("%s: expected forbidden token error, got %v", expression, err)
		}
	}
}

func TestUnbalancedParentheses(t *testing.T) {
	for _, expression := range []string{"(1 + 2", "1 + 2)", "((1)"} {
		_, err := Evaluate(expression, nil)
		if !errors.Is(err, ErrUnbalancedParens) {
			t.Fatalf("%s: expected unbalanced parentheses error, got %v", expression, err)
		}
	}
}

func TestUnknownVariable(t *testing.T) {
	_, err := Evaluate("unknown_var * 10", vars(map[string]string{"base_rate": "1"}))
	var unknown *UnknownVariableError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected unknown variable error, got %v", err)
	}
	if unknown.Name != "unknown_var" {
		t.Fatalf("expected unknown_var, got %s", unknown.Name)
	}
	if err.Error() != "Unknown variable: unknown_var" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestDivisionByZero(t *testing.T) {
	_, err := Evaluate("10 / 0", nil)
	if !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected division by zero error, got %v", err)
	}

	_, err = Evaluate("10 / (2 - 2)", nil)
	if !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected division by zero error, got %v", err)
	}
}

func TestSyntaxErrors(t *testing.T) {
	for _, expression := range []string{"1 +", "* 2", "1 2", "1..5", ""} {
		_, err := Evaluate(expression, nil)
		var syntaxErr *SyntaxError
		if !errors.As(err, &syntaxErr) {
			t.Fatalf("%s: expected syntax error, got %v", expression, err)
		}
	}
}

func TestValidateChecksRunInOrder(t *testing.T) {
	// Forbidden scan wins over the unknown-variable check.
	err := Validate("eval(unknown_var)", func(string) bool { return false })
	if !errors.Is(err, ErrForbiddenToken) {
		t.Fatalf("expected forbidden token error, got %v", err)
	}

	// Balance check wins over the unknown-variable check.
	err = Validate("(unknown_var", func(string) bool { return false })
	if !errors.Is(err, ErrUnbalancedParens) {
		t.Fatalf("expected unbalanced parentheses error, got %v", err)
	}
}
