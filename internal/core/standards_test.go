package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestRuleset_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rs      *Ruleset
		wantErr bool
	}{
		{"defaults are valid", DefaultRuleset("B"), false},
		{"missing category", DefaultRuleset(""), true},
		{"negative minimum", func() *Ruleset {
			rs := DefaultRuleset("B")
			rs.Cabin["gio"] = Threshold{Min: -1, Required: true}
			return rs
		}(), true},
		{"unknown field", func() *Ruleset {
			rs := DefaultRuleset("B")
			rs.Theory["phapluat"] = Threshold{Min: 50, Required: true}
			return rs
		}(), true},
		{"bad date", func() *Ruleset {
			rs := DefaultRuleset("B")
			rs.EffectiveFrom = "01/01/2025"
			return rs
		}(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rs.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRuleset) {
				t.Errorf("Validate() error = %v, want ErrInvalidRuleset", err)
			}
		})
	}
}

func TestRuleset_WithDefaults(t *testing.T) {
	rs := &Ruleset{
		Category: "C",
		Theory:   Section{FieldLaw: {Min: 60, Required: true}},
	}
	full := rs.WithDefaults()

	if got := full.Theory[FieldLaw]; got.Min != 60 || !got.Required {
		t.Errorf("phap_luat = %+v, want explicit value kept", got)
	}
	if _, ok := full.Practice[PracticeNight]; !ok {
		t.Error("practice.dem missing after WithDefaults")
	}
	if full.EffectiveFrom != "2025-01-01" {
		t.Errorf("EffectiveFrom = %q", full.EffectiveFrom)
	}
	if len(rs.Practice) != 0 {
		t.Error("WithDefaults modified the receiver")
	}
}

func TestRuleset_UnmarshalLegacyNames(t *testing.T) {
	doc := `{"ma_hang":"B2","ly_thuyet":{"phap_luat":{"min":70,"required":true}},` +
		`"thuc_hanh":{"km":{"min":810,"required":true}},"kiem_tra":{"mo_phong":{"min":35,"required":true}}}`

	var rs Ruleset
	if err := json.Unmarshal([]byte(doc), &rs); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if rs.Theory[FieldLaw].Min != 70 {
		t.Errorf("Theory = %v", rs.Theory)
	}
	if rs.Practice[PracticeKm].Min != 810 {
		t.Errorf("Practice = %v", rs.Practice)
	}
	if rs.Exam["mo_phong"].Min != 35 {
		t.Errorf("Exam = %v", rs.Exam)
	}
}

func TestSeedRulesets(t *testing.T) {
	seed, err := SeedRulesets()
	if err != nil {
		t.Fatalf("SeedRulesets() error = %v", err)
	}
	if len(seed) == 0 {
		t.Fatal("SeedRulesets() returned nothing")
	}
	seen := make(map[string]bool)
	for _, rs := range seed {
		if seen[rs.Category] {
			t.Errorf("duplicate category %q", rs.Category)
		}
		seen[rs.Category] = true
		if err := rs.Validate(); err != nil {
			t.Errorf("seed %q invalid: %v", rs.Category, err)
		}
	}
	if !seen["B"] {
		t.Error("seed is missing category B")
	}
}

func TestParseRulesets_Invalid(t *testing.T) {
	_, err := ParseRulesets([]byte("standards:\n  - ma_hang: X\n    cabin:\n      phut: {min: 1, required: true}\n"))
	if !errors.Is(err, ErrInvalidRuleset) {
		t.Errorf("ParseRulesets() error = %v, want ErrInvalidRuleset", err)
	}
	if _, err := ParseRulesets([]byte("standards: [")); err == nil {
		t.Error("ParseRulesets() accepted malformed YAML")
	}
}

func TestResolveCategory(t *testing.T) {
	tests := []struct {
		requested, record, course, want string
	}{
		{"B2", "C", "D-K1", "B2"},
		{"", " C ", "D-K1", "C"},
		{"", "", "b2-k15", "B2"},
		{"", "", "C1 lái xe", "C1"},
		{"", "", "", ""},
		{"", "", "15-ABC", ""},
	}
	for _, tt := range tests {
		if got := ResolveCategory(tt.requested, tt.record, tt.course); got != tt.want {
			t.Errorf("ResolveCategory(%q, %q, %q) = %q, want %q", tt.requested, tt.record, tt.course, got, tt.want)
		}
	}
}
