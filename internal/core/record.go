package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Canonical field keys shared by every source. Extractors and upstream
// clients translate their own spellings into these once; nothing
// downstream reads source-specific keys.
const (
	FieldSeq      = "so_tt"
	FieldName     = "ho_va_ten"
	FieldCategory = "ma_hang"
	FieldResult   = "ket_qua"

	FieldLaw        = "phap_luat"
	FieldEthics     = "dao_duc"
	FieldMechanics  = "cau_tao_oto"
	FieldTechnique  = "ky_thuat_lai"
	FieldUpgrade    = "nang_hang"
	FieldSimulation = "mo_phong"

	FieldOutdoorSeconds = "outdoor_hour"
	FieldOutdoorMeters  = "outdoor_distance"
	FieldNightSeconds   = "night_duration"
	FieldAutoSeconds    = "auto_duration"
)

// TheorySubjects lists the six theory subject fields in display order.
var TheorySubjects = []string{FieldLaw, FieldEthics, FieldMechanics, FieldTechnique, FieldUpgrade, FieldSimulation}

// Record is a field-keyed student record as produced by one source or by
// Merge. Keys are canonical field names.
type Record map[string]any

// Code returns the normalized registration code, or "".
func (r Record) Code() string {
	return NormalizeCode(r.Text(FieldCode))
}

// Text returns the field as a string. Numbers are formatted without
// trailing zeros.
func (r Record) Text(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Number returns the field as a number, normalizing strings.
func (r Record) Number(key string) float64 {
	return Normalize(r[key])
}

// StudentRecord is the typed view of a merged record. Absent numeric
// fields are 0 and absent text fields are "".
type StudentRecord struct {
	Code     string `json:"ma_dk"`
	Name     string `json:"ho_va_ten"`
	Seq      int    `json:"so_tt"`
	Category string `json:"ma_hang,omitempty"`
	Result   string `json:"ket_qua,omitempty"`

	Law        float64 `json:"phap_luat"`
	Ethics     float64 `json:"dao_duc"`
	Mechanics  float64 `json:"cau_tao_oto"`
	Technique  float64 `json:"ky_thuat_lai"`
	Upgrade    float64 `json:"nang_hang"`
	Simulation float64 `json:"mo_phong"`

	CabinHours   float64 `json:"cabin_gio"`
	CabinLessons float64 `json:"cabin_bai"`

	OutdoorSeconds float64 `json:"outdoor_hour"`
	OutdoorMeters  float64 `json:"outdoor_distance"`
	NightSeconds   float64 `json:"night_duration"`
	AutoSeconds    float64 `json:"auto_duration"`

	ExamTheory     float64 `json:"kt_lythuyet"`
	ExamSimulation float64 `json:"kt_mophong"`
	ExamPractical  float64 `json:"kt_thuchanh"`
	Completion     string  `json:"kt_hoanthanh"`
}

// Student converts the record into its typed form.
func (r Record) Student() StudentRecord {
	return StudentRecord{
		Code:     r.Code(),
		Name:     CleanText(r.Text(FieldName)),
		Seq:      int(r.Number(FieldSeq)),
		Category: strings.TrimSpace(r.Text(FieldCategory)),
		Result:   CleanText(r.Text(FieldResult)),

		Law:        r.Number(FieldLaw),
		Ethics:     r.Number(FieldEthics),
		Mechanics:  r.Number(FieldMechanics),
		Technique:  r.Number(FieldTechnique),
		Upgrade:    r.Number(FieldUpgrade),
		Simulation: r.Number(FieldSimulation),

		CabinHours:   r.Number(FieldCabinHours),
		CabinLessons: r.Number(FieldCabinLesson),

		OutdoorSeconds: r.Number(FieldOutdoorSeconds),
		OutdoorMeters:  r.Number(FieldOutdoorMeters),
		NightSeconds:   r.Number(FieldNightSeconds),
		AutoSeconds:    r.Number(FieldAutoSeconds),

		ExamTheory:     r.Number(FieldExamTheory),
		ExamSimulation: r.Number(FieldExamSim),
		ExamPractical:  r.Number(FieldExamPrac),
		Completion:     CleanText(r.Text(FieldCompletion)),
	}
}

// Value returns the numeric value of a canonical field. Practice fields are
// returned in their stored units (seconds, meters).
func (s StudentRecord) Value(field string) (float64, bool) {
	switch field {
	case FieldLaw:
		return s.Law, true
	case FieldEthics:
		return s.Ethics, true
	case FieldMechanics:
		return s.Mechanics, true
	case FieldTechnique:
		return s.Technique, true
	case FieldUpgrade:
		return s.Upgrade, true
	case FieldSimulation:
		return s.Simulation, true
	case FieldCabinHours:
		return s.CabinHours, true
	case FieldCabinLesson:
		return s.CabinLessons, true
	case FieldOutdoorSeconds:
		return s.OutdoorSeconds, true
	case FieldOutdoorMeters:
		return s.OutdoorMeters, true
	case FieldNightSeconds:
		return s.NightSeconds, true
	case FieldAutoSeconds:
		return s.AutoSeconds, true
	case FieldExamTheory:
		return s.ExamTheory, true
	case FieldExamSim:
		return s.ExamSimulation, true
	case FieldExamPrac:
		return s.ExamPractical, true
	}
	return 0, false
}

// PracticeHours is the outdoor practice duration in hours.
func (s StudentRecord) PracticeHours() float64 { return s.OutdoorSeconds / 3600 }

// PracticeKm is the outdoor practice distance in kilometres.
func (s StudentRecord) PracticeKm() float64 { return s.OutdoorMeters / 1000 }

// NightHours is the night driving duration in hours.
func (s StudentRecord) NightHours() float64 { return s.NightSeconds / 3600 }

// AutoHours is the automatic-transmission driving duration in hours.
func (s StudentRecord) AutoHours() float64 { return s.AutoSeconds / 3600 }

// ScoreRow is one persisted row of imported exam and cabin scores.
type ScoreRow struct {
	Code         string  `json:"ma_dk"`
	CabinHours   float64 `json:"cabin_gio"`
	CabinLessons float64 `json:"cabin_bai"`
	ExamTheory   float64 `json:"kt_lythuyet"`
	ExamSim      float64 `json:"kt_mophong"`
	ExamPrac     float64 `json:"kt_thuchanh"`
	Completion   string  `json:"kt_hoanthanh"`
}

// HasData reports whether any score field carries a value.
func (s ScoreRow) HasData() bool {
	return s.CabinHours > 0 || s.CabinLessons > 0 || s.ExamTheory > 0 ||
		s.ExamSim > 0 || s.ExamPrac > 0 || s.Completion != ""
}

// Record returns the row as a merge contribution.
func (s ScoreRow) Record() Record {
	return Record{
		FieldCode:        s.Code,
		FieldCabinHours:  s.CabinHours,
		FieldCabinLesson: s.CabinLessons,
		FieldExamTheory:  s.ExamTheory,
		FieldExamSim:     s.ExamSim,
		FieldExamPrac:    s.ExamPrac,
		FieldCompletion:  s.Completion,
	}
}

// ScoreRowFromRecord reads a score row from an extracted record.
func ScoreRowFromRecord(r Record) ScoreRow {
	return ScoreRow{
		Code:         r.Code(),
		CabinHours:   r.Number(FieldCabinHours),
		CabinLessons: r.Number(FieldCabinLesson),
		ExamTheory:   r.Number(FieldExamTheory),
		ExamSim:      r.Number(FieldExamSim),
		ExamPrac:     r.Number(FieldExamPrac),
		Completion:   CleanText(r.Text(FieldCompletion)),
	}
}

// PracticeRecord is one trainee as reported by the task-tracking API.
// Durations are seconds and distance is meters.
type PracticeRecord struct {
	Code           string  `json:"ma_dk"`
	Name           string  `json:"ho_va_ten"`
	Category       string  `json:"ma_hang,omitempty"`
	OutdoorSeconds float64 `json:"outdoor_hour"`
	OutdoorMeters  float64 `json:"outdoor_distance"`
	NightSeconds   float64 `json:"night_duration"`
	AutoSeconds    float64 `json:"auto_duration"`
}

// Record returns the trainee as a merge contribution. Empty text fields
// are left out so they do not blank out theory values.
func (p PracticeRecord) Record() Record {
	r := Record{
		FieldCode:           NormalizeCode(p.Code),
		FieldOutdoorSeconds: p.OutdoorSeconds,
		FieldOutdoorMeters:  p.OutdoorMeters,
		FieldNightSeconds:   p.NightSeconds,
		FieldAutoSeconds:    p.AutoSeconds,
	}
	if name := CleanText(p.Name); name != "" {
		r[FieldName] = name
	}
	if cat := strings.TrimSpace(p.Category); cat != "" {
		r[FieldCategory] = cat
	}
	return r
}
