// Package export writes course progress and the score-import template as
// XLSX workbooks.
package export

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/traintrack/internal/core"
)

const (
	ProgressSheet = "DanhSachHocVien"
	TemplateSheet = "Template_Nhap_Diem"
)

// ProgressHeaders are the progress sheet columns.
var ProgressHeaders = []string{
	"#", "Mã học viên", "Họ và tên",
	"Pháp luật", "Đạo đức", "Cấu tạo oto", "Kỹ thuật lái", "Nâng hạng", "Mô phỏng",
	"Giờ cabin", "Số bài cabin",
	"Thời gian TH", "Quãng đường TH", "Giờ đêm TH", "Giờ tự động TH",
	"Lý thuyết KT", "Mô phỏng KT", "Thực hành KT", "Hoàn thành KT",
}

// progressFields maps columns 4..18 to the record field evaluated there.
var progressFields = []string{
	core.FieldLaw, core.FieldEthics, core.FieldMechanics, core.FieldTechnique, core.FieldUpgrade, core.FieldSimulation,
	core.FieldCabinHours, core.FieldCabinLesson,
	core.FieldOutdoorSeconds, core.FieldOutdoorMeters, core.FieldNightSeconds, core.FieldAutoSeconds,
	core.FieldExamTheory, core.FieldExamSim, core.FieldExamPrac,
}

// TemplateHeaders are the score-import template columns; they match the
// candidates the score extractor looks for.
var TemplateHeaders = []string{
	"#", "Mã học viên", "Họ và tên", "Giờ cabin", "Số bài cabin",
	"Điểm KTLT", "Điểm KTMP", "Điểm KTTH", "Ngày xét HTKH",
}

const completionPending = "Chưa"

// ProgressRow renders one student as the 19 progress cells. Practice
// values are converted to hours and kilometres with one decimal.
func ProgressRow(seq int, p core.StudentProgress) []any {
	s := p.Student
	completion := s.Completion
	if completion == "" {
		completion = completionPending
	}
	return []any{
		seq, s.Code, s.Name,
		s.Law, s.Ethics, s.Mechanics, s.Technique, s.Upgrade, s.Simulation,
		s.CabinHours, s.CabinLessons,
		round1(s.PracticeHours()), round1(s.PracticeKm()), round1(s.NightHours()), round1(s.AutoHours()),
		s.ExamTheory, s.ExamSimulation, s.ExamPractical, completion,
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// FileName returns the download name for a course export.
func FileName(courseCode string, now time.Time) string {
	if courseCode == "" {
		return fmt.Sprintf("TienDoDaoTao_%s.xlsx", now.Format("2006-01-02"))
	}
	return fmt.Sprintf("TienDoDaoTao_%s_%s.xlsx", courseCode, now.Format("2006-01-02"))
}

// TemplateFileName returns the download name for the score template.
func TemplateFileName(now time.Time) string {
	return fmt.Sprintf("Template_Nhap_Diem_%s.xlsx", now.Format("02-01-2006"))
}

// WriteProgress writes the evaluated students of result to w. Cells whose
// field violates the category standard are filled red.
func WriteProgress(w io.Writer, result core.CourseResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ProgressSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
		Border: thinBorder(),
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	violation, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "9C0006"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}},
	})
	if err != nil {
		return fmt.Errorf("violation style: %w", err)
	}

	if err := writeHeader(f, ProgressSheet, ProgressHeaders, header); err != nil {
		return err
	}

	for i, p := range result.Students {
		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := ProgressRow(i+1, p)
		if err := f.SetSheetRow(ProgressSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		for j, field := range progressFields {
			if !p.Compliance.Violated(field) {
				continue
			}
			ref, _ := excelize.CoordinatesToCellName(j+4, row)
			if err := f.SetCellStyle(ProgressSheet, ref, ref, violation); err != nil {
				return fmt.Errorf("style %s: %w", ref, err)
			}
		}
	}

	if err := f.SetColWidth(ProgressSheet, "B", "C", 22); err != nil {
		return err
	}
	if err := f.SetColWidth(ProgressSheet, "D", "S", 13); err != nil {
		return err
	}
	return f.Write(w)
}

// WriteTemplate writes the score-import template with two sample rows.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TemplateSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E8F4FD"}},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := writeHeader(f, TemplateSheet, TemplateHeaders, header); err != nil {
		return err
	}

	samples := [][]any{
		{1, "HV001", "Nguyễn Văn A", 10.5, 8, 85, 90, 88, "20/10/2024"},
		{2, "HV002", "Trần Thị B", 12.0, 9, 92, 85, 90, "21/10/2024"},
	}
	for i, s := range samples {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(TemplateSheet, cell, &s); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(TemplateSheet, "B", "C", 20); err != nil {
		return err
	}
	return f.Write(w)
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	return nil
}

func thinBorder() []excelize.Border {
	sides := []string{"top", "left", "bottom", "right"}
	out := make([]excelize.Border, 0, len(sides))
	for _, s := range sides {
		out = append(out, excelize.Border{Type: s, Color: "000000", Style: 1})
	}
	return out
}
