package core

import "slices"

// Merge combines the three sources into one record per theory entry.
//
// The theory roster is the backbone: it fixes cardinality and order, and a
// code that appears only in practice or scores is dropped. For each
// backbone entry the first practice record with the same code and the
// score record for that code are layered on top, so on conflicting keys
// score beats practice beats theory. Theory entries without a code are
// discarded. Nil inputs are treated as empty.
func Merge(theory, practice []Record, scores map[string]Record) []Record {
	practiceByCode := make(map[string]Record, len(practice))
	for _, p := range practice {
		code := p.Code()
		if code == "" {
			continue
		}
		if _, seen := practiceByCode[code]; !seen {
			practiceByCode[code] = p
		}
	}

	scoreByCode := make(map[string]Record, len(scores))
	for code, s := range scores {
		if c := NormalizeCode(code); c != "" {
			scoreByCode[c] = s
		}
	}

	out := make([]Record, 0, len(theory))
	for _, t := range theory {
		code := t.Code()
		if code == "" {
			continue
		}

		merged := make(Record, len(t)+8)
		for k, v := range t {
			merged[k] = v
		}
		for k, v := range practiceByCode[code] {
			merged[k] = v
		}
		for k, v := range scoreByCode[code] {
			merged[k] = v
		}
		merged[FieldCode] = code

		out = append(out, merged)
	}
	return out
}

// Excluded returns, sorted, the codes present in practice or scores that
// Merge dropped because the theory roster does not list them.
func Excluded(theory, practice []Record, scores map[string]Record) []string {
	roster := make(map[string]bool, len(theory))
	for _, t := range theory {
		roster[t.Code()] = true
	}

	seen := make(map[string]bool)
	var out []string
	add := func(code string) {
		if code != "" && !roster[code] && !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}
	for _, p := range practice {
		add(p.Code())
	}
	for code := range scores {
		add(NormalizeCode(code))
	}
	slices.Sort(out)
	return out
}
