package core

// extract.go reads the two workbook shapes the school deals with:
//
//   - the LMS theory report: four title rows, header on row 5, fixed
//     "Mã học viên" and "Họ tên" columns
//   - instructor score sheets: header on row 1 with free-form names
//
// Both return canonical Records plus Diagnostics. Cells reach the
// normalizer as the original strings, never pre-coerced numbers.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Diagnostics source names.
const (
	SourceTheory = "lms"
	SourceScores = "scores"
)

// TheoryHeaderRow is the zero-based index of the LMS report header row.
const TheoryHeaderRow = 4

// LMS report column labels that every kept row must fill.
const (
	TheoryCodeHeader = "Mã học viên"
	TheoryNameHeader = "Họ tên"
)

// theoryColumnThreshold is stricter than DefaultMatchThreshold because the
// LMS report carries many unrelated columns and a loose match would read
// the wrong subject score.
const theoryColumnThreshold = 60.0

var theoryColumns = []FieldCandidates{
	{Key: FieldSeq, Candidates: []string{"stt", "số thứ tự"}},
	{Key: FieldLaw, Candidates: []string{"pháp luật giao thông đường bộ", "pháp luật"}},
	{Key: FieldEthics, Candidates: []string{"đạo đức người lái xe", "đạo đức"}},
	{Key: FieldMechanics, Candidates: []string{"cấu tạo và sửa chữa", "cấu tạo"}},
	{Key: FieldTechnique, Candidates: []string{"kỹ thuật lái xe", "kỹ thuật lái"}},
	{Key: FieldUpgrade, Candidates: []string{"nâng hạng"}},
	{Key: FieldSimulation, Candidates: []string{"mô phỏng"}},
	{Key: FieldResult, Candidates: []string{"kết quả"}},
	{Key: FieldCategory, Candidates: []string{"hạng đào tạo", "hạng gplx", "mã hạng"}},
}

var numericTheoryFields = map[string]bool{
	FieldSeq: true, FieldLaw: true, FieldEthics: true, FieldMechanics: true,
	FieldTechnique: true, FieldUpgrade: true, FieldSimulation: true,
}

var numericScoreFields = map[string]bool{
	FieldCabinHours: true, FieldCabinLesson: true,
	FieldExamTheory: true, FieldExamSim: true, FieldExamPrac: true,
}

// TheoryRow is one kept LMS row: every column verbatim plus the
// canonical record derived from it.
type TheoryRow struct {
	Raw    map[string]string `json:"raw"`
	Record Record            `json:"record"`
}

// TheorySheet is the result of ExtractTheory.
type TheorySheet struct {
	Headers     []string     `json:"headers"`
	Rows        []TheoryRow  `json:"rows"`
	Diagnostics *Diagnostics `json:"diagnostics"`
}

// Records returns the canonical records in sheet order.
func (t TheorySheet) Records() []Record {
	out := make([]Record, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Record
	}
	return out
}

// ScoreSheet is the result of ExtractScores.
type ScoreSheet struct {
	Records     []Record     `json:"records"`
	Diagnostics *Diagnostics `json:"diagnostics"`
}

// Rows returns the records as score rows.
func (s ScoreSheet) Rows() []ScoreRow {
	out := make([]ScoreRow, len(s.Records))
	for i, r := range s.Records {
		out[i] = ScoreRowFromRecord(r)
	}
	return out
}

var zipMagic = []byte("PK\x03\x04")

// ReadSheet returns the first sheet of an XLSX workbook, or a CSV file, as
// a rectangular grid of the original cell strings.
func ReadSheet(data []byte) ([][]string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty file")
	}

	var rows [][]string
	if bytes.HasPrefix(data, zipMagic) {
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer f.Close()

		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		rows, err = f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, err
		}
	} else {
		r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
		var err error
		rows, err = r.ReadAll()
		if err != nil {
			return nil, errors.New("invalid csv: " + err.Error())
		}
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	for i, row := range rows {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			rows[i] = padded
		}
	}
	return rows, nil
}

// ExtractTheory reads an LMS theory report.
func ExtractTheory(data []byte) (TheorySheet, error) {
	diag := newDiagnostics(SourceTheory)

	rows, err := ReadSheet(data)
	if err != nil {
		return TheorySheet{}, &ExtractionError{Source: SourceTheory, Reason: "unreadable workbook", Err: err}
	}
	if len(rows) <= TheoryHeaderRow {
		return TheorySheet{}, &ExtractionError{Source: SourceTheory, Reason: "no header row on line 5"}
	}

	headers := rows[TheoryHeaderRow]
	codeCol, nameCol := -1, -1
	for i, h := range headers {
		switch NormalizeHeader(h) {
		case NormalizeHeader(TheoryCodeHeader):
			if codeCol < 0 {
				codeCol = i
			}
		case NormalizeHeader(TheoryNameHeader):
			if nameCol < 0 {
				nameCol = i
			}
		}
	}
	if codeCol < 0 || nameCol < 0 {
		return TheorySheet{}, &ExtractionError{Source: SourceTheory, Reason: "missing required column " + TheoryCodeHeader + " or " + TheoryNameHeader}
	}

	// Canonicalize the remaining subject columns once, here. Code and name
	// columns are hidden from the matcher and a subject header must contain
	// its label; overlap alone reads "Ngày sinh" as "Nâng hạng".
	subjects := slices.Clone(headers)
	subjects[codeCol], subjects[nameCol] = "", ""
	match := MatchHeadersKind(subjects, theoryColumns, theoryColumnThreshold, KindContains).Exclusive()
	colField := map[int]string{codeCol: FieldCode, nameCol: FieldName}
	for _, key := range match.Order {
		if col := match.Column(key); col >= 0 {
			colField[col] = key
		}
	}
	match.Fields[FieldCode] = Match{Header: headers[codeCol], Column: codeCol, Score: 100, Kind: KindExact}
	match.Fields[FieldName] = Match{Header: headers[nameCol], Column: nameCol, Score: 100, Kind: KindExact}
	match.Order = append([]string{FieldCode, FieldName}, match.Order...)
	diag.recordMatch(match)

	sheet := TheorySheet{Headers: headers, Diagnostics: diag}
	for _, row := range rows[TheoryHeaderRow+1:] {
		diag.RowsScanned++

		if strings.TrimSpace(row[codeCol]) == "" {
			diag.drop("missing_code")
			continue
		}
		if strings.TrimSpace(row[nameCol]) == "" {
			diag.drop("missing_name")
			continue
		}

		raw := make(map[string]string, len(headers))
		for i, h := range headers {
			if h = strings.TrimSpace(h); h != "" {
				raw[h] = row[i]
			}
		}

		rec := Record{}
		for col, key := range colField {
			cell := row[col]
			switch {
			case key == FieldCode:
				rec[key] = NormalizeCode(cell)
				diag.present(key)
			case numericTheoryFields[key]:
				v, status := NormalizeCell(cell)
				diag.cell(key, status)
				rec[key] = v
			default:
				if text := CleanText(cell); text != "" {
					rec[key] = text
					diag.present(key)
				}
			}
		}

		sheet.Rows = append(sheet.Rows, TheoryRow{Raw: raw, Record: rec})
	}

	diag.RecordsKept = len(sheet.Rows)
	if len(sheet.Rows) == 0 {
		return TheorySheet{}, &ExtractionError{Source: SourceTheory, Reason: "no valid records after filtering"}
	}
	return sheet, nil
}

// ExtractScores reads an instructor score sheet with a free-form header row.
func ExtractScores(data []byte) (ScoreSheet, error) {
	diag := newDiagnostics(SourceScores)

	rows, err := ReadSheet(data)
	if err != nil {
		return ScoreSheet{}, &ExtractionError{Source: SourceScores, Reason: "unreadable workbook", Err: err}
	}
	if len(rows) == 0 || blankRow(rows[0]) {
		return ScoreSheet{}, &ExtractionError{Source: SourceScores, Reason: "no header row"}
	}

	match := MatchHeaders(rows[0], ScoreFields).Exclusive()
	diag.recordMatch(match)
	codeCol := match.Column(FieldCode)
	if codeCol < 0 {
		return ScoreSheet{}, &ExtractionError{Source: SourceScores, Reason: "column not found for registration code"}
	}

	sheet := ScoreSheet{Diagnostics: diag}
	for _, row := range rows[1:] {
		diag.RowsScanned++
		if blankRow(row) {
			diag.drop("blank_row")
			continue
		}

		code := NormalizeCode(row[codeCol])
		if code == "" {
			diag.drop("missing_code")
			continue
		}

		rec := Record{FieldCode: code}
		diag.present(FieldCode)
		for _, key := range match.Order {
			col := match.Column(key)
			if col < 0 || key == FieldCode {
				continue
			}
			if numericScoreFields[key] {
				v, status := NormalizeCell(row[col])
				diag.cell(key, status)
				rec[key] = v
				continue
			}
			text := CleanText(row[col])
			if text != "" {
				diag.present(key)
			}
			rec[key] = text
		}
		sheet.Records = append(sheet.Records, rec)
	}

	diag.RecordsKept = len(sheet.Records)
	if len(sheet.Records) == 0 {
		return ScoreSheet{}, &ExtractionError{Source: SourceScores, Reason: "no valid records after filtering"}
	}
	return sheet, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
