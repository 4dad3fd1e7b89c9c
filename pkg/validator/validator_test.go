package validator

import "testing"

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"quality.lead@plant-3.example.com.br",
		"a+b@sub.domain.org",
	}
	for _, email := range valid {
		if err := ValidateEmail(email); err != nil {
			t.Errorf("Expected %q to be valid, got %v", email, err)
		}
	}

	invalid := []string{
		"",
		"no-at-sign",
		"@missing-local.com",
		"user@",
		"user@nodot",
	}
	for _, email := range invalid {
		if err := ValidateEmail(email); err == nil {
			t.Errorf("Expected %q to be invalid", email)
		}
	}
}

func TestValidateOPCode(t *testing.T) {
	valid := []string{"OP-1042", "2026/08/123", "A1", "OP_77-B"}
	for _, code := range valid {
		if err := ValidateOPCode(code); err != nil {
			t.Errorf("Expected %q to be valid, got %v", code, err)
		}
	}

	invalid := []string{"", "-starts-with-dash", "has space", "semi;colon"}
	for _, code := range invalid {
		if err := ValidateOPCode(code); err == nil {
			t.Errorf("Expected %q to be invalid", code)
		}
	}
}

func TestValidateRequired(t *testing.T) {
	if err := ValidateRequired("name", "Montagem"); err != nil {
		t.Errorf("Expected non-empty value to pass, got %v", err)
	}
	if err := ValidateRequired("name", "   "); err == nil {
		t.Error("Expected whitespace-only value to fail")
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  abc\x00def  "); got != "abcdef" {
		t.Errorf("Expected %q, got %q", "abcdef", got)
	}
}

func TestSanitizeEmail(t *testing.T) {
	if got := SanitizeEmail("  User@Example.COM "); got != "user@example.com" {
		t.Errorf("Expected lowercased trimmed email, got %q", got)
	}
}
