package domain

import (
	"testing"
	"time"
)

func TestValidateStatus(t *testing.T) {
	valid := []string{"DRAFT", "CLARIFICATION", "AMENDMENT", "VOTE", "MANDATE",
		"EVALUATION", "ADOPTED", "REJECTED", "ARCHIVED"}
	for _, s := range valid {
		if err := ValidateStatus(s); err != nil {
			t.Errorf("ValidateStatus(%q) = %v, want nil", s, err)
		}
	}

	invalid := []string{"", "draft", "OPEN", "DELETED"}
	for _, s := range invalid {
		if err := ValidateStatus(s); err == nil {
			t.Errorf("ValidateStatus(%q) = nil, want error", s)
		}
	}
}

func TestValidateVisibility(t *testing.T) {
	for _, s := range []string{"PRIVATE", "INTERNAL", "PUBLIC"} {
		if err := ValidateVisibility(s); err != nil {
			t.Errorf("ValidateVisibility(%q) = %v, want nil", s, err)
		}
	}
	if err := ValidateVisibility("public"); err == nil {
		t.Error("ValidateVisibility(\"public\") = nil, want error")
	}
}

func TestValidateUserRole(t *testing.T) {
	for _, s := range []string{"USER", "MODERATOR", "ADMIN"} {
		if err := ValidateUserRole(s); err != nil {
			t.Errorf("ValidateUserRole(%q) = %v, want nil", s, err)
		}
	}
	if err := ValidateUserRole("SUPERADMIN"); err == nil {
		t.Error("ValidateUserRole(\"SUPERADMIN\") = nil, want error")
	}
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2025-06-01T10:30:00Z")
	if err != nil {
		t.Fatalf("ParseTimestamp failed: %v", err)
	}
	if ts.Hour() != 10 || ts.Minute() != 30 {
		t.Errorf("unexpected time: %v", ts)
	}

	if _, err := ParseTimestamp("2025-06-01"); err == nil {
		t.Error("expected error for bare date")
	}
	if _, err := ParseTimestamp("not a time"); err == nil {
		t.Error("expected error for garbage")
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-06-01")
	if err != nil {
		t.Fatalf("ParseDate bare date failed: %v", err)
	}
	if d.Year() != 2025 || d.Month() != time.June || d.Day() != 1 {
		t.Errorf("unexpected date: %v", d)
	}

	// Full timestamps are accepted too.
	if _, err := ParseDate("2025-06-01T00:00:00Z"); err != nil {
		t.Errorf("ParseDate RFC3339 failed: %v", err)
	}
	if _, err := ParseDate("01/06/2025"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

func TestValidateFileType(t *testing.T) {
	for _, s := range []string{"PROPOSITION_VISUAL", "PROPOSITION_ATTACHMENT"} {
		if err := ValidateFileType(s); err != nil {
			t.Errorf("ValidateFileType(%q) = %v, want nil", s, err)
		}
	}
	for _, s := range []string{"", "visual", "AVATAR"} {
		if err := ValidateFileType(s); err == nil {
			t.Errorf("ValidateFileType(%q) = nil, want error", s)
		}
	}
}
