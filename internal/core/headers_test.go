package core

import "testing"

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Mã học viên", "mahocvien"},
		{"Điểm KTLT", "diemktlt"},
		{"CABIN_GIỜ", "cabingio"},
		{"  kt lý-thuyết (lần 1) ", "ktlythuyetlan1"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeHeader(tt.in); got != tt.want {
			t.Errorf("NormalizeHeader(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScoreHeader(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		candidate string
		want      float64
	}{
		{"exact after folding", "Mã Học Viên", "ma hoc vien", 100},
		{"header contains candidate", "Kết quả lý thuyết lần 2", "lý thuyết", 80},
		{"candidate contains header", "mp", "kt mp", 60},
		{"empty header", "", "code", 0},
		{"empty candidate", "code", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreHeader(tt.header, tt.candidate); got != tt.want {
				t.Errorf("ScoreHeader(%q, %q) = %v, want %v", tt.header, tt.candidate, got, tt.want)
			}
		})
	}
}

func TestScoreHeader_CharacterOverlap(t *testing.T) {
	// "xyz" shares no characters with "abc".
	if got := ScoreHeader("xyz", "abc"); got != 0 {
		t.Errorf("ScoreHeader(xyz, abc) = %v, want 0", got)
	}
	got := ScoreHeader("abcd", "abxy")
	if got != 50 {
		t.Errorf("ScoreHeader(abcd, abxy) = %v, want 50", got)
	}
}

func TestMatchHeaders_ScoreSheet(t *testing.T) {
	headers := []string{"STT", "Mã học viên", "Cabin giờ", "Cabin bài", "Điểm lý thuyết", "Điểm mô phỏng", "Điểm thực hành", "Hoàn thành"}
	hm := MatchHeaders(headers, ScoreFields).Exclusive()

	want := map[string]int{
		FieldCode:        1,
		FieldCabinHours:  2,
		FieldCabinLesson: 3,
		FieldExamTheory:  4,
		FieldExamSim:     5,
		FieldExamPrac:    6,
		FieldCompletion:  7,
	}
	for key, col := range want {
		if got := hm.Column(key); got != col {
			t.Errorf("Column(%s) = %d, want %d (%+v)", key, got, col, hm.Fields[key])
		}
	}
	if hm.MatchedCount() != len(ScoreFields) {
		t.Errorf("MatchedCount() = %d, want %d", hm.MatchedCount(), len(ScoreFields))
	}
}

func TestMatchHeaders_BelowThreshold(t *testing.T) {
	hm := MatchHeadersAbove([]string{"qqq"}, []FieldCandidates{{Key: "k", Candidates: []string{"zzz"}}}, 30)
	if hm.Fields["k"].Matched() {
		t.Errorf("field matched %+v, want unmatched", hm.Fields["k"])
	}
	if hm.Column("missing") != -1 {
		t.Error("Column(missing) should be -1")
	}
}

func TestMatchHeaders_FirstBestWins(t *testing.T) {
	fields := []FieldCandidates{{Key: "code", Candidates: []string{"code"}}}
	hm := MatchHeaders([]string{"Code", "code"}, fields)
	if got := hm.Column("code"); got != 0 {
		t.Errorf("Column(code) = %d, want 0", got)
	}
}

func TestExclusive_ResolvesSharedHeader(t *testing.T) {
	fields := []FieldCandidates{
		{Key: "a", Candidates: []string{"cabin"}},
		{Key: "b", Candidates: []string{"cabin gio"}},
	}
	hm := MatchHeaders([]string{"Cabin giờ"}, fields)
	if hm.Column("a") != 0 || hm.Column("b") != 0 {
		t.Fatalf("precondition: both fields should match column 0, got %+v", hm.Fields)
	}

	ex := hm.Exclusive()
	if ex.Column("b") != 0 {
		t.Errorf("higher score field b lost the header: %+v", ex.Fields)
	}
	if ex.Column("a") != -1 {
		t.Errorf("field a still matched: %+v", ex.Fields["a"])
	}
	if len(ex.Conflicts) != 1 || ex.Conflicts[0].Winner != "b" || ex.Conflicts[0].Loser != "a" {
		t.Errorf("Conflicts = %+v", ex.Conflicts)
	}
	// original untouched
	if hm.Column("a") != 0 {
		t.Error("Exclusive modified the receiver")
	}
}

func TestExclusive_TieGoesToEarlierField(t *testing.T) {
	fields := []FieldCandidates{
		{Key: "first", Candidates: []string{"diem"}},
		{Key: "second", Candidates: []string{"diem"}},
	}
	ex := MatchHeaders([]string{"Điểm"}, fields).Exclusive()
	if ex.Column("first") != 0 || ex.Column("second") != -1 {
		t.Errorf("Exclusive() = %+v", ex.Fields)
	}
}

func TestMatchHeaders_KindBeatsOverlapScore(t *testing.T) {
	// "ngaysinh" holds every letter of "nanghang", so both columns score 100.
	if got := ScoreHeader("Ngày sinh", "Nâng hạng"); got != 100 {
		t.Fatalf("precondition: ScoreHeader(Ngày sinh, Nâng hạng) = %v, want 100", got)
	}
	fields := []FieldCandidates{{Key: FieldUpgrade, Candidates: []string{"nâng hạng"}}}
	hm := MatchHeaders([]string{"Ngày sinh", "Nâng hạng"}, fields)

	m := hm.Fields[FieldUpgrade]
	if m.Column != 1 || m.Kind != KindExact {
		t.Errorf("Fields[nang_hang] = %+v, want column 1 exact", m)
	}
}

func TestMatchHeadersKind_MinKind(t *testing.T) {
	fields := []FieldCandidates{{Key: FieldUpgrade, Candidates: []string{"nâng hạng"}}}
	headers := []string{"Ngày sinh", "Kết quả nâng hạng"}

	if got := MatchHeadersKind(headers[:1], fields, 60, KindContains).Column(FieldUpgrade); got != -1 {
		t.Errorf("overlap-only header accepted at column %d", got)
	}
	if got := MatchHeadersKind(headers, fields, 60, KindContains).Column(FieldUpgrade); got != 1 {
		t.Errorf("Column(nang_hang) = %d, want 1", got)
	}
}

func TestExclusive_FallsBackToUnclaimedHeader(t *testing.T) {
	fields := []FieldCandidates{
		{Key: "first", Candidates: []string{"diem"}},
		{Key: "second", Candidates: []string{"diem"}},
	}
	ex := MatchHeaders([]string{"Điểm", "Điểm lần 2"}, fields).Exclusive()

	if ex.Column("first") != 0 {
		t.Errorf("Column(first) = %d, want 0", ex.Column("first"))
	}
	if ex.Column("second") != 1 {
		t.Errorf("Column(second) = %d, want 1 (fallback)", ex.Column("second"))
	}
	if len(ex.Conflicts) != 1 || ex.Conflicts[0].Loser != "second" || ex.Conflicts[0].Winner != "first" {
		t.Errorf("Conflicts = %+v", ex.Conflicts)
	}
}

func TestExclusive_TemplateHeaderOrder(t *testing.T) {
	headers := []string{
		"#", "Mã học viên", "Họ và tên", "Giờ cabin", "Số bài cabin",
		"Điểm KTLT", "Điểm KTMP", "Điểm KTTH", "Ngày xét HTKH",
	}
	hm := MatchHeaders(headers, ScoreFields).Exclusive()

	want := map[string]int{
		FieldCode:        1,
		FieldCabinHours:  3,
		FieldCabinLesson: 4,
		FieldExamTheory:  5,
		FieldExamSim:     6,
		FieldExamPrac:    7,
		FieldCompletion:  8,
	}
	for key, col := range want {
		if got := hm.Column(key); got != col {
			t.Errorf("Column(%s) = %d, want %d (%+v)", key, got, col, hm.Fields[key])
		}
	}
	if len(hm.Conflicts) != 0 {
		t.Errorf("Conflicts = %+v, want none", hm.Conflicts)
	}
}

func TestExclusive_OverlapLoserTakesItsOwnColumn(t *testing.T) {
	// cabin_bai overlaps "Giờ cabin" fully but only owns "Số bài cabin".
	headers := []string{"Mã học viên", "Giờ cabin", "Số bài cabin"}
	fields := []FieldCandidates{
		{Key: FieldCode, Candidates: []string{"mã học viên"}},
		{Key: FieldCabinLesson, Candidates: []string{"cabin bai", "số bài cabin"}},
		{Key: FieldCabinHours, Candidates: []string{"cabin gio", "giờ cabin"}},
	}
	hm := MatchHeaders(headers, fields).Exclusive()
	if hm.Column(FieldCabinLesson) != 2 || hm.Column(FieldCabinHours) != 1 {
		t.Errorf("cabin_bai=%d cabin_gio=%d, want 2 and 1", hm.Column(FieldCabinLesson), hm.Column(FieldCabinHours))
	}
}
