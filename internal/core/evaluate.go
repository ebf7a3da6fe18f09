package core

import "strings"

// Field status values returned by Compliance.Status.
const (
	StatusPass          = "pass"
	StatusFail          = "fail"
	StatusNotApplicable = "not_applicable"
	StatusUnknown       = "unknown"
)

// Compliance is the evaluation of one student against one ruleset.
type Compliance struct {
	Known      bool            `json:"known"`
	Category   string          `json:"ma_hang,omitempty"`
	Violations map[string]bool `json:"violations"`
	Sections   map[string]bool `json:"completed_sections"`

	// checked maps record fields to the section that evaluated them.
	checked map[string]bool
}

// Complete reports whether every section passed.
func (c Compliance) Complete() bool {
	for _, name := range Sections {
		if !c.Sections[name] {
			return false
		}
	}
	return true
}

// Violated reports whether a record field failed its threshold.
func (c Compliance) Violated(field string) bool { return c.Violations[field] }

// Status classifies a record field for rendering.
func (c Compliance) Status(field string) string {
	switch {
	case !c.Known:
		return StatusUnknown
	case c.Violations[field]:
		return StatusFail
	case c.checked[field]:
		return StatusPass
	default:
		return StatusNotApplicable
	}
}

type rule struct {
	section string
	key     string
	field   string
	value   func(StudentRecord) float64
}

var practiceRules = map[string]rule{
	PracticeHours: {field: FieldOutdoorSeconds, value: StudentRecord.PracticeHours},
	PracticeKm:    {field: FieldOutdoorMeters, value: StudentRecord.PracticeKm},
	PracticeNight: {field: FieldNightSeconds, value: StudentRecord.NightHours},
	PracticeAuto:  {field: FieldAutoSeconds, value: StudentRecord.AutoHours},
}

// recordField maps a ruleset key to the record field it constrains.
// Unknown keys resolve to "" and are skipped.
func recordField(section, key string) rule {
	switch section {
	case SectionTheory:
		return rule{field: key}
	case SectionCabin:
		return rule{field: "cabin_" + key}
	case SectionPractice:
		return practiceRules[key]
	case SectionExam:
		return rule{field: "kt_" + strings.ReplaceAll(key, "_", "")}
	}
	return rule{}
}

// Evaluate checks rec against rs. A nil ruleset yields no violations and
// every section false. Only thresholds with Required set and Min above
// zero are compared; a value below Min marks the field violated and fails
// its section.
func Evaluate(rec StudentRecord, rs *Ruleset) Compliance {
	c := Compliance{
		Violations: make(map[string]bool),
		Sections: map[string]bool{
			SectionTheory: false, SectionCabin: false, SectionPractice: false, SectionExam: false,
		},
		checked: make(map[string]bool),
	}
	if rs == nil {
		return c
	}

	c.Known = true
	c.Category = rs.Category
	for _, name := range Sections {
		c.Sections[name] = true
		for key, th := range rs.Section(name) {
			if !th.Checked() {
				continue
			}
			r := recordField(name, key)
			if r.field == "" {
				continue
			}

			var value float64
			if r.value != nil {
				value = r.value(rec)
			} else {
				v, ok := rec.Value(r.field)
				if !ok {
					continue
				}
				value = v
			}

			c.checked[r.field] = true
			if value < th.Min {
				c.Violations[r.field] = true
				c.Sections[name] = false
			}
		}
	}
	return c
}

// Stats counts per-section completion across a course.
type Stats struct {
	Total    int `json:"total"`
	Theory   int `json:"theory"`
	Cabin    int `json:"cabin"`
	Practice int `json:"practice"`
	Exam     int `json:"exam"`
	Complete int `json:"complete"`
	Unknown  int `json:"unknown"`
}

// Add counts one evaluation.
func (s *Stats) Add(c Compliance) {
	s.Total++
	if !c.Known {
		s.Unknown++
		return
	}
	if c.Sections[SectionTheory] {
		s.Theory++
	}
	if c.Sections[SectionCabin] {
		s.Cabin++
	}
	if c.Sections[SectionPractice] {
		s.Practice++
	}
	if c.Sections[SectionExam] {
		s.Exam++
	}
	if c.Complete() {
		s.Complete++
	}
}
