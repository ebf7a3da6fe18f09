package core

import (
	"errors"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// workbook builds an XLSX file whose first sheet holds rows.
func workbook(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("CoordinatesToCellName: %v", err)
		}
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = v
		}
		if err := f.SetSheetRow("Sheet1", cell, &vals); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

var theoryHeaders = []string{
	"STT", "Mã học viên", "Họ tên", "Pháp luật giao thông đường bộ", "Đạo đức người lái xe",
	"Cấu tạo và sửa chữa", "Kỹ thuật lái xe", "Nâng hạng", "Mô phỏng", "Kết quả", "Hạng đào tạo",
}

func theoryReport(rows ...[]string) [][]string {
	out := [][]string{
		{"BÁO CÁO KẾT QUẢ HỌC LÝ THUYẾT"},
		{"Khóa: K15"},
		{},
		{"Ngày xuất: 01/10/2025"},
		theoryHeaders,
	}
	return append(out, rows...)
}

func TestExtractTheory(t *testing.T) {
	data := workbook(t, theoryReport(
		[]string{"1", "hv001", "Nguyễn  Văn A", "85", "90", "80", "75", "", "88", "Đạt", "B"},
		[]string{"2", "", "Không Mã", "50"},
		[]string{"3", "HV003", "", "50"},
		[]string{"4", "hv 004", "Trần Thị B", "7,5", "abc", "02h30p"},
	))

	sheet, err := ExtractTheory(data)
	if err != nil {
		t.Fatalf("ExtractTheory() error = %v", err)
	}
	if len(sheet.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(sheet.Rows))
	}

	first := sheet.Rows[0].Record
	if got := first.Code(); got != "HV001" {
		t.Errorf("first code = %q, want HV001", got)
	}
	if got := first.Text(FieldName); got != "Nguyễn Văn A" {
		t.Errorf("first name = %q", got)
	}
	if got := first.Number(FieldLaw); got != 85 {
		t.Errorf("first phap_luat = %v, want 85", got)
	}
	if got := first.Number(FieldSimulation); got != 88 {
		t.Errorf("first mo_phong = %v, want 88", got)
	}
	if got := first.Text(FieldCategory); got != "B" {
		t.Errorf("first ma_hang = %q, want B", got)
	}
	if got := sheet.Rows[0].Raw["Mã học viên"]; got != "hv001" {
		t.Errorf("raw code = %q, want verbatim hv001", got)
	}

	second := sheet.Rows[1].Record.Student()
	if second.Code != "HV004" {
		t.Errorf("second code = %q, want HV004", second.Code)
	}
	if second.Law != 7.5 {
		t.Errorf("second Law = %v, want 7.5", second.Law)
	}
	if second.Ethics != 0 {
		t.Errorf("second Ethics = %v, want 0", second.Ethics)
	}
	if second.Mechanics != 2.5 {
		t.Errorf("second Mechanics = %v, want 2.5", second.Mechanics)
	}

	d := sheet.Diagnostics
	if d.RowsScanned != 4 || d.RecordsKept != 2 || d.RowsDropped != 2 {
		t.Errorf("diagnostics scanned/kept/dropped = %d/%d/%d, want 4/2/2", d.RowsScanned, d.RecordsKept, d.RowsDropped)
	}
	if d.DropReasons["missing_code"] != 1 || d.DropReasons["missing_name"] != 1 {
		t.Errorf("DropReasons = %v", d.DropReasons)
	}
	if d.Malformed[FieldEthics] != 1 {
		t.Errorf("Malformed = %v, want dao_duc:1", d.Malformed)
	}
	if d.Durations[FieldMechanics] != 1 {
		t.Errorf("Durations = %v, want cau_tao_oto:1", d.Durations)
	}
	if d.FieldsMatched != d.FieldsTotal {
		t.Errorf("FieldsMatched = %d, want %d (unmatched %v)", d.FieldsMatched, d.FieldsTotal, d.Unmatched)
	}
}

func TestExtractTheory_CSV(t *testing.T) {
	csv := "title\n,\n,\n,\nMã học viên,Họ tên,Pháp luật\nHV9,Lê C,70\n"
	sheet, err := ExtractTheory([]byte(csv))
	if err != nil {
		t.Fatalf("ExtractTheory() error = %v", err)
	}
	if len(sheet.Rows) != 1 || sheet.Rows[0].Record.Number(FieldLaw) != 70 {
		t.Errorf("Rows = %+v", sheet.Rows)
	}
}

func TestExtractTheory_Errors(t *testing.T) {
	tests := []struct {
		name       string
		data       []byte
		wantReason string
	}{
		{"empty", nil, "unreadable"},
		{"corrupt xlsx", []byte("PK\x03\x04not really a zip"), "unreadable"},
		{"short sheet", workbook(t, [][]string{{"a"}, {"b"}}), "no header row"},
		{"missing name column", workbook(t, [][]string{{}, {}, {}, {}, {"Mã học viên", "Điểm"}, {"HV1", "9"}}), "missing required column"},
		{"every row dropped", workbook(t, theoryReport([]string{"1", "", "A"})), "no valid records"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractTheory(tt.data)
			var ee *ExtractionError
			if !errors.As(err, &ee) {
				t.Fatalf("ExtractTheory() error = %v, want *ExtractionError", err)
			}
			if !strings.Contains(ee.Reason, tt.wantReason) {
				t.Errorf("Reason = %q, want containing %q", ee.Reason, tt.wantReason)
			}
		})
	}
}

func TestExtractScores(t *testing.T) {
	csv := "\xef\xbb\xbfMã học viên,Cabin giờ,Điểm lý thuyết,Hoàn thành\n" +
		"hv001,2h30p,\"8,5\",Đạt\n" +
		",1,2,\n" +
		",,,\n" +
		" hv002 ,x,,\n"

	sheet, err := ExtractScores([]byte(csv))
	if err != nil {
		t.Fatalf("ExtractScores() error = %v", err)
	}
	rows := sheet.Rows()
	if len(rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(rows))
	}

	want := ScoreRow{Code: "HV001", CabinHours: 2.5, ExamTheory: 8.5, Completion: "Đạt"}
	if rows[0] != want {
		t.Errorf("rows[0] = %+v, want %+v", rows[0], want)
	}
	if rows[1].Code != "HV002" || rows[1].HasData() {
		t.Errorf("rows[1] = %+v, want HV002 without data", rows[1])
	}

	d := sheet.Diagnostics
	if d.DropReasons["missing_code"] != 1 || d.DropReasons["blank_row"] != 1 {
		t.Errorf("DropReasons = %v", d.DropReasons)
	}
	if d.Malformed[FieldCabinHours] != 1 || d.Durations[FieldCabinHours] != 1 {
		t.Errorf("cabin diagnostics malformed=%v durations=%v", d.Malformed, d.Durations)
	}
	if !slices.Contains(d.Unmatched, FieldCabinLesson) {
		t.Errorf("Unmatched = %v, want cabin_bai listed", d.Unmatched)
	}
	if _, ok := sheet.Records[0][FieldCabinLesson]; ok {
		t.Error("unmatched field present in record")
	}
}

func TestExtractScores_XLSX(t *testing.T) {
	data := workbook(t, [][]string{
		{"Mã ĐK", "KT thực hành", "Cabin bài"},
		{"A1", "5", "8"},
	})
	sheet, err := ExtractScores(data)
	if err != nil {
		t.Fatalf("ExtractScores() error = %v", err)
	}
	rows := sheet.Rows()
	if len(rows) != 1 || rows[0].ExamPrac != 5 || rows[0].CabinLessons != 8 {
		t.Errorf("Rows() = %+v", rows)
	}
}

func TestExtractScores_Errors(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		wantReason string
	}{
		{"blank header", ",,\nA,1,2\n", "no header row"},
		{"no code column", "xxx,zzz\n1,2\n", "column not found"},
		{"header only", "Mã học viên,Cabin giờ\n", "no valid records"},
		{"empty", "", "unreadable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractScores([]byte(tt.data))
			var ee *ExtractionError
			if !errors.As(err, &ee) {
				t.Fatalf("ExtractScores() error = %v, want *ExtractionError", err)
			}
			if !strings.Contains(ee.Reason, tt.wantReason) {
				t.Errorf("Reason = %q, want containing %q", ee.Reason, tt.wantReason)
			}
		})
	}
}

func TestExtractTheory_BirthDateColumn(t *testing.T) {
	tests := []struct {
		name        string
		headers     []string
		row         []string
		wantLaw     float64
		wantUpgrade float64
		wantMatched bool
	}{
		{
			name:        "birth date before upgrade",
			headers:     []string{"STT", "Mã học viên", "Họ tên", "Ngày sinh", "Pháp luật", "Nâng hạng"},
			row:         []string{"1", "HV1", "A", "01/02/2000", "80", "72"},
			wantLaw:     80,
			wantUpgrade: 72,
			wantMatched: true,
		},
		{
			name:        "no upgrade column",
			headers:     []string{"STT", "Mã học viên", "Họ tên", "Ngày sinh", "Pháp luật"},
			row:         []string{"1", "HV1", "A", "01/02/2000", "80"},
			wantLaw:     80,
			wantUpgrade: 0,
			wantMatched: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := workbook(t, [][]string{{"title"}, {}, {}, {}, tt.headers, tt.row})
			sheet, err := ExtractTheory(data)
			if err != nil {
				t.Fatalf("ExtractTheory() error = %v", err)
			}
			rec := sheet.Rows[0].Record
			if got := rec.Number(FieldLaw); got != tt.wantLaw {
				t.Errorf("phap_luat = %v, want %v", got, tt.wantLaw)
			}
			if got := rec.Number(FieldUpgrade); got != tt.wantUpgrade {
				t.Errorf("nang_hang = %v, want %v", got, tt.wantUpgrade)
			}
			_, ok := rec[FieldUpgrade]
			if ok != tt.wantMatched {
				t.Errorf("nang_hang present = %v, want %v", ok, tt.wantMatched)
			}
			if unmatched := slices.Contains(sheet.Diagnostics.Unmatched, FieldUpgrade); unmatched == tt.wantMatched {
				t.Errorf("Unmatched = %v, nang_hang matched want %v", sheet.Diagnostics.Unmatched, tt.wantMatched)
			}
		})
	}
}

func TestExtractScores_Records(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []Record
	}{
		{
			name: "duration cell and dropped codeless row",
			data: "Mã học viên,Giờ cabin\nHV001,2h30p\n,1h\n",
			want: []Record{{FieldCode: "HV001", FieldCabinHours: 2.5}},
		},
		{
			name: "template header order",
			data: "#,Mã học viên,Họ và tên,Giờ cabin,Số bài cabin,Điểm KTLT,Điểm KTMP,Điểm KTTH,Ngày xét HTKH\n" +
				"1,HV002,Trần B,12,9,92,85,90,21/10/2024\n",
			want: []Record{{
				FieldCode:        "HV002",
				FieldCabinHours:  12.0,
				FieldCabinLesson: 9.0,
				FieldExamTheory:  "92",
				FieldExamSim:     "85",
				FieldExamPrac:    "90",
				FieldCompletion:  "21/10/2024",
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet, err := ExtractScores([]byte(tt.data))
			if err != nil {
				t.Fatalf("ExtractScores() error = %v", err)
			}
			if !reflect.DeepEqual(sheet.Records, tt.want) {
				t.Errorf("Records = %#v, want %#v", sheet.Records, tt.want)
			}
		})
	}
}
