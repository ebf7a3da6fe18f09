package core

// headers.go maps irregular spreadsheet headers onto canonical field keys.
//
// Score sheets arrive from several training offices, each with its own
// column naming ("Mã học viên", "MA DK", "Code", "Điểm KTLT" ...). Matching
// is a best-effort ranking over normalized text, never an exact lookup.

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMatchThreshold is the minimum score for a header to be accepted.
const DefaultMatchThreshold = 30.0

// FieldCandidates lists the phrases that may label one canonical field.
type FieldCandidates struct {
	Key        string
	Candidates []string
}

// MatchKind ranks how a header relates to a candidate. A higher kind
// always beats a lower one, whatever the scores.
type MatchKind int

const (
	// KindOverlap shares characters with the candidate only.
	KindOverlap MatchKind = iota
	// KindPartial is a header contained in the candidate.
	KindPartial
	// KindContains is a header that contains the candidate.
	KindContains
	// KindExact equals the candidate after normalization.
	KindExact
)

func (k MatchKind) String() string {
	switch k {
	case KindExact:
		return "exact"
	case KindContains:
		return "contains"
	case KindPartial:
		return "partial"
	default:
		return "overlap"
	}
}

// MarshalText renders the kind by name in diagnostics.
func (k MatchKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Match is the outcome of matching one field against a header row.
// Column is -1 when the field is unmatched.
type Match struct {
	Header string    `json:"header,omitempty"`
	Column int       `json:"column"`
	Score  float64   `json:"score"`
	Kind   MatchKind `json:"kind"`
}

// Matched reports whether a header was accepted for the field.
func (m Match) Matched() bool { return m.Column >= 0 }

// outranks orders matches by kind, then score.
func (m Match) outranks(o Match) bool {
	if m.Kind != o.Kind {
		return m.Kind > o.Kind
	}
	return m.Score > o.Score
}

// HeaderMatch maps canonical field keys to their matched header.
type HeaderMatch struct {
	Fields    map[string]Match `json:"fields"`
	Order     []string         `json:"order"`
	Conflicts []HeaderConflict `json:"conflicts,omitempty"`

	// options holds every acceptable column per field, one entry per
	// column, for Exclusive to fall back on.
	options map[string][]Match
}

// HeaderConflict records a field that lost a shared header to another field.
type HeaderConflict struct {
	Header string  `json:"header"`
	Winner string  `json:"winner"`
	Loser  string  `json:"loser"`
	Score  float64 `json:"score"`
}

// Column returns the column index matched for key, or -1.
func (hm HeaderMatch) Column(key string) int {
	m, ok := hm.Fields[key]
	if !ok {
		return -1
	}
	return m.Column
}

// MatchedCount returns how many fields were matched.
func (hm HeaderMatch) MatchedCount() int {
	n := 0
	for _, m := range hm.Fields {
		if m.Matched() {
			n++
		}
	}
	return n
}

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeHeader lowercases s, strips diacritics and keeps only [a-z0-9].
// The Vietnamese "đ" has no decomposition and is folded to "d" explicitly.
func NormalizeHeader(s string) string {
	s = strings.ToLower(s)
	if folded, _, err := transform.String(diacriticStripper, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == 'đ':
			b.WriteByte('d')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ScoreHeader scores how well header matches candidate on a 0-100 scale.
func ScoreHeader(header, candidate string) float64 {
	score, _ := scoreNormalized(NormalizeHeader(header), NormalizeHeader(candidate))
	return score
}

// scoreNormalized returns the score and its kind. An overlap score can
// reach 100 ("ngaysinh" holds every letter of "nanghang"), so callers rank
// by kind before score.
func scoreNormalized(h, c string) (float64, MatchKind) {
	if h == "" || c == "" {
		return 0, KindOverlap
	}
	switch {
	case h == c:
		return 100, KindExact
	case strings.Contains(h, c):
		return 80, KindContains
	case strings.Contains(c, h):
		return 60, KindPartial
	}

	found := 0
	for _, r := range c {
		if strings.ContainsRune(h, r) {
			found++
		}
	}
	longer := max(len(h), len(c))
	return float64(found) / float64(longer) * 100, KindOverlap
}

// MatchHeaders matches every field against the header row using
// DefaultMatchThreshold.
func MatchHeaders(headers []string, fields []FieldCandidates) HeaderMatch {
	return MatchHeadersAbove(headers, fields, DefaultMatchThreshold)
}

// MatchHeadersAbove is MatchHeadersKind accepting every kind.
func MatchHeadersAbove(headers []string, fields []FieldCandidates, threshold float64) HeaderMatch {
	return MatchHeadersKind(headers, fields, threshold, KindOverlap)
}

// MatchHeadersKind matches every field independently. A header is
// acceptable when its score reaches threshold and its kind reaches
// minKind; the best acceptable header wins, ranked by kind then score.
// A later header must rank strictly higher to replace an earlier one.
func MatchHeadersKind(headers []string, fields []FieldCandidates, threshold float64, minKind MatchKind) HeaderMatch {
	normHeaders := make([]string, len(headers))
	for i, h := range headers {
		normHeaders[i] = NormalizeHeader(h)
	}

	hm := HeaderMatch{
		Fields:  make(map[string]Match, len(fields)),
		Order:   make([]string, 0, len(fields)),
		options: make(map[string][]Match, len(fields)),
	}

	for _, f := range fields {
		normCands := make([]string, len(f.Candidates))
		for i, c := range f.Candidates {
			normCands[i] = NormalizeHeader(c)
		}

		best := Match{Column: -1}
		var topScore float64
		for col, h := range normHeaders {
			colBest := Match{Column: -1}
			for _, c := range normCands {
				score, kind := scoreNormalized(h, c)
				topScore = max(topScore, score)
				m := Match{Header: headers[col], Column: col, Score: score, Kind: kind}
				if score < threshold || kind < minKind {
					continue
				}
				if !colBest.Matched() || m.outranks(colBest) {
					colBest = m
				}
			}
			if !colBest.Matched() {
				continue
			}
			hm.options[f.Key] = append(hm.options[f.Key], colBest)
			if !best.Matched() || colBest.outranks(best) {
				best = colBest
			}
		}
		if !best.Matched() {
			best = Match{Column: -1, Score: topScore}
		}

		hm.Fields[f.Key] = best
		hm.Order = append(hm.Order, f.Key)
	}
	return hm
}

// Exclusive returns a copy in which each header belongs to at most one
// field. Every acceptable (field, header) pair is ranked by kind, then
// score, then field order, then column, and assigned greedily. A field
// whose best header went to another field falls back to its next
// acceptable unclaimed header, or becomes unmatched.
func (hm HeaderMatch) Exclusive() HeaderMatch {
	out := HeaderMatch{
		Fields:  make(map[string]Match, len(hm.Fields)),
		Order:   append([]string(nil), hm.Order...),
		options: hm.options,
	}

	type pair struct {
		key   string
		order int
		m     Match
	}
	var pairs []pair
	for i, key := range hm.Order {
		opts := hm.options[key]
		if len(opts) == 0 && hm.Fields[key].Matched() {
			opts = []Match{hm.Fields[key]}
		}
		for _, m := range opts {
			pairs = append(pairs, pair{key: key, order: i, m: m})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.m.outranks(b.m) || b.m.outranks(a.m) {
			return a.m.outranks(b.m)
		}
		if a.order != b.order {
			return a.order < b.order
		}
		return a.m.Column < b.m.Column
	})

	owner := make(map[int]string)
	for _, p := range pairs {
		if _, done := out.Fields[p.key]; done {
			continue
		}
		if _, taken := owner[p.m.Column]; taken {
			continue
		}
		owner[p.m.Column] = p.key
		out.Fields[p.key] = p.m
	}

	for _, key := range hm.Order {
		best := hm.Fields[key]
		got, assigned := out.Fields[key]
		if !assigned {
			out.Fields[key] = Match{Column: -1, Score: best.Score}
		}
		if best.Matched() && (!assigned || got.Column != best.Column) {
			out.Conflicts = append(out.Conflicts, HeaderConflict{
				Header: best.Header,
				Winner: owner[best.Column],
				Loser:  key,
				Score:  best.Score,
			})
		}
	}
	return out
}

// Canonical score-import field keys.
const (
	FieldCode        = "ma_dk"
	FieldCabinHours  = "cabin_gio"
	FieldCabinLesson = "cabin_bai"
	FieldExamTheory  = "kt_lythuyet"
	FieldExamSim     = "kt_mophong"
	FieldExamPrac    = "kt_thuchanh"
	FieldCompletion  = "kt_hoanthanh"
)

// ScoreFields is the canonical field set of a score-import sheet, in
// priority order for Exclusive.
var ScoreFields = []FieldCandidates{
	{Key: FieldCode, Candidates: []string{
		"mã học viên", "ma hoc vien", "madh", "ma dk", "mã đk", "mã đăng ký",
		"code", "id", "mã", "ma", "học viên", "student",
	}},
	{Key: FieldCabinHours, Candidates: []string{
		"cabin_giờ", "cabin gio", "cabin hour", "cabin", "giờ cabin",
		"cabin giờ", "cabin h", "cabin_gio", "cabin giơ", "cabin time",
	}},
	{Key: FieldCabinLesson, Candidates: []string{
		"cabin_bài", "cabin bai", "cabin lesson", "bài cabin", "cabin bài",
		"cabin l", "cabin_bai", "cabin baì", "cabin lessons", "số bài cabin",
	}},
	{Key: FieldExamTheory, Candidates: []string{
		"kt_lythuyet", "kt ly thuyet", "lý thuyết", "theory", "lt",
		"kiểm tra lý thuyết", "kiem tra ly thuyet", "kết quả lý thuyết",
		"ly thuyet", "lth", "kt lt", "điểm lý thuyết", "điểm ktlt",
	}},
	{Key: FieldExamSim, Candidates: []string{
		"kt_mophong", "kt mo phong", "mô phỏng", "simulation", "mp",
		"kiểm tra mô phỏng", "kiem tra mo phong", "kết quả mô phỏng",
		"mo phong", "kt mp", "điểm mô phỏng", "điểm ktmp",
	}},
	{Key: FieldExamPrac, Candidates: []string{
		"kt_thuchanh", "kt thuc hanh", "thực hành", "practice", "th",
		"kiểm tra thực hành", "kiem tra thuc hanh", "kết quả thực hành",
		"thuc hanh", "kt th", "điểm thực hành", "điểm ktth",
	}},
	{Key: FieldCompletion, Candidates: []string{
		"kt_hoanthanh", "hoàn thành", "completed", "ht", "kết thúc",
		"ket thuc", "trạng thái", "status", "tình trạng", "tinh trang",
		"hoàn tất", "hoan tat", "ngày xét htkh", "ngay xet htkh",
	}},
}
