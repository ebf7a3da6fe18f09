package core

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Ruleset section names.
const (
	SectionTheory   = "theory"
	SectionCabin    = "cabin"
	SectionPractice = "practice"
	SectionExam     = "exam"
)

// Sections lists the four evaluated sections in display order.
var Sections = []string{SectionTheory, SectionCabin, SectionPractice, SectionExam}

// Practice ruleset keys.
const (
	PracticeHours = "gio"
	PracticeKm    = "km"
	PracticeNight = "dem"
	PracticeAuto  = "tu_dong"
)

// ErrInvalidRuleset wraps every ruleset validation failure.
var ErrInvalidRuleset = errors.New("invalid ruleset")

// Threshold is the minimum a student must reach for one field.
type Threshold struct {
	Min      float64 `json:"min" yaml:"min" validate:"gte=0"`
	Required bool    `json:"required" yaml:"required"`
}

// Checked reports whether the evaluator compares against this threshold.
func (t Threshold) Checked() bool { return t.Required && t.Min > 0 }

// Section maps ruleset field keys to thresholds.
type Section map[string]Threshold

// Ruleset holds the completion standards of one license category.
type Ruleset struct {
	Category      string    `json:"ma_hang" yaml:"ma_hang" validate:"required,max=20"`
	EffectiveFrom string    `json:"ap_dung_tu_ngay,omitempty" yaml:"ap_dung_tu_ngay"`
	Theory        Section   `json:"theory" yaml:"theory" validate:"dive"`
	Cabin         Section   `json:"cabin" yaml:"cabin" validate:"dive"`
	Practice      Section   `json:"practice" yaml:"practice" validate:"dive"`
	Exam          Section   `json:"exam" yaml:"exam" validate:"dive"`
	UpdatedAt     time.Time `json:"updated_at,omitempty" yaml:"-"`
}

// UnmarshalJSON accepts both the current section names and the legacy
// ly_thuyet / thuc_hanh / kiem_tra names used by older documents.
func (r *Ruleset) UnmarshalJSON(data []byte) error {
	type plain Ruleset
	var doc struct {
		plain
		LegacyTheory   Section `json:"ly_thuyet"`
		LegacyPractice Section `json:"thuc_hanh"`
		LegacyExam     Section `json:"kiem_tra"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*r = Ruleset(doc.plain)
	if r.Theory == nil {
		r.Theory = doc.LegacyTheory
	}
	if r.Practice == nil {
		r.Practice = doc.LegacyPractice
	}
	if r.Exam == nil {
		r.Exam = doc.LegacyExam
	}
	return nil
}

// Section returns the named section, or nil.
func (r *Ruleset) Section(name string) Section {
	switch name {
	case SectionTheory:
		return r.Theory
	case SectionCabin:
		return r.Cabin
	case SectionPractice:
		return r.Practice
	case SectionExam:
		return r.Exam
	}
	return nil
}

// DefaultRuleset returns the full ruleset shape with every field present,
// unchecked.
func DefaultRuleset(category string) *Ruleset {
	off := Threshold{}
	return &Ruleset{
		Category:      category,
		EffectiveFrom: "2025-01-01",
		Theory: Section{
			FieldLaw: off, FieldEthics: off, FieldMechanics: off,
			FieldTechnique: off, FieldUpgrade: off, FieldSimulation: off,
		},
		Cabin: Section{"gio": off, "bai": off},
		Practice: Section{
			PracticeHours: off, PracticeKm: off, PracticeNight: off, PracticeAuto: off,
		},
		Exam: Section{"ly_thuyet": off, "mo_phong": off, "thuc_hanh": off},
	}
}

// WithDefaults returns a copy where fields missing from r are filled from
// the default shape. Values present in r always win.
func (r *Ruleset) WithDefaults() *Ruleset {
	out := DefaultRuleset(r.Category)
	if r.EffectiveFrom != "" {
		out.EffectiveFrom = r.EffectiveFrom
	}
	out.UpdatedAt = r.UpdatedAt
	for _, name := range Sections {
		dst := out.Section(name)
		for k, v := range r.Section(name) {
			dst[k] = v
		}
	}
	return out
}

var rulesetValidator = validator.New()

var effectiveFromPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Validate checks the ruleset document. Unknown field keys are rejected so
// that a typo cannot silently disable a check.
func (r *Ruleset) Validate() error {
	var problems []string

	if err := rulesetValidator.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	if r.EffectiveFrom != "" {
		if _, err := time.Parse("2006-01-02", r.EffectiveFrom); err != nil || !effectiveFromPattern.MatchString(r.EffectiveFrom) {
			problems = append(problems, "ap_dung_tu_ngay must be YYYY-MM-DD")
		}
	}

	known := DefaultRuleset("")
	for _, name := range Sections {
		allowed := known.Section(name)
		for _, k := range sortedKeys(r.Section(name)) {
			if _, ok := allowed[k]; !ok {
				problems = append(problems, fmt.Sprintf("unknown %s field %q", name, k))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRuleset, strings.Join(problems, "; "))
	}
	return nil
}

func sortedKeys(s Section) []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

//go:embed standards_seed.yaml
var seedStandards []byte

// SeedRulesets returns the built-in catalog used when the store is empty.
func SeedRulesets() ([]*Ruleset, error) {
	return ParseRulesets(seedStandards)
}

// ParseRulesets decodes a YAML list of rulesets and fills defaults.
func ParseRulesets(data []byte) ([]*Ruleset, error) {
	var doc struct {
		Standards []*Ruleset `yaml:"standards"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse standards: %w", err)
	}
	out := make([]*Ruleset, 0, len(doc.Standards))
	for _, rs := range doc.Standards {
		rs = rs.WithDefaults()
		if err := rs.Validate(); err != nil {
			return nil, fmt.Errorf("standards %q: %w", rs.Category, err)
		}
		out = append(out, rs)
	}
	return out, nil
}

var categoryPrefix = regexp.MustCompile(`^([A-Z]\d*)`)

// ResolveCategory picks the ruleset category for a student: an explicit
// request category first, then the record's own category, then the
// leading class token of the course name ("B2-K15" -> "B2").
func ResolveCategory(requested, recordCategory, courseName string) string {
	if c := strings.TrimSpace(requested); c != "" {
		return c
	}
	if c := strings.TrimSpace(recordCategory); c != "" {
		return c
	}
	if m := categoryPrefix.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(courseName))); m != nil {
		return m[1]
	}
	return ""
}
