package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/traintrack/internal/core"
)

type column struct {
	Title string
	Field string
	Value func(core.StudentRecord) string
}

func num(v float64) string     { return strconv.FormatFloat(v, 'f', -1, 64) }
func hours(sec float64) string { return strconv.FormatFloat(sec/3600, 'f', 1, 64) }
func km(m float64) string      { return strconv.FormatFloat(m/1000, 'f', 1, 64) }

var columns = []column{
	{"Pháp luật", core.FieldLaw, func(s core.StudentRecord) string { return num(s.Law) }},
	{"Đạo đức", core.FieldEthics, func(s core.StudentRecord) string { return num(s.Ethics) }},
	{"Cấu tạo", core.FieldMechanics, func(s core.StudentRecord) string { return num(s.Mechanics) }},
	{"Kỹ thuật lái", core.FieldTechnique, func(s core.StudentRecord) string { return num(s.Technique) }},
	{"Nâng hạng", core.FieldUpgrade, func(s core.StudentRecord) string { return num(s.Upgrade) }},
	{"Mô phỏng", core.FieldSimulation, func(s core.StudentRecord) string { return num(s.Simulation) }},
	{"Giờ cabin", core.FieldCabinHours, func(s core.StudentRecord) string { return num(s.CabinHours) }},
	{"Bài cabin", core.FieldCabinLesson, func(s core.StudentRecord) string { return num(s.CabinLessons) }},
	{"Giờ TH", core.FieldOutdoorSeconds, func(s core.StudentRecord) string { return hours(s.OutdoorSeconds) }},
	{"Km TH", core.FieldOutdoorMeters, func(s core.StudentRecord) string { return km(s.OutdoorMeters) }},
	{"Giờ đêm", core.FieldNightSeconds, func(s core.StudentRecord) string { return hours(s.NightSeconds) }},
	{"Giờ tự động", core.FieldAutoSeconds, func(s core.StudentRecord) string { return hours(s.AutoSeconds) }},
	{"KT lý thuyết", core.FieldExamTheory, func(s core.StudentRecord) string { return num(s.ExamTheory) }},
	{"KT mô phỏng", core.FieldExamSim, func(s core.StudentRecord) string { return num(s.ExamSimulation) }},
	{"KT thực hành", core.FieldExamPrac, func(s core.StudentRecord) string { return num(s.ExamPractical) }},
}

// ProgressPage renders a course's evaluated students as a full page.
// Cells are classed by their compliance status (pass, fail,
// not_applicable, unknown).
func ProgressPage(result core.CourseResult) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		e := &errWriter{w: w}
		title := "Khóa " + result.Course.CourseID
		e.printf(`<!DOCTYPE html><html lang="vi"><head><meta charset="utf-8"><title>%s</title>`, templ.EscapeString(title))
		e.printf(`<style>td.fail{background:#ffc7ce;color:#9c0006}td.pass{background:#c6efce}td.unknown{color:#888}</style></head><body>`)
		e.printf(`<h1>%s</h1>`, templ.EscapeString(title))

		if result.Partial {
			e.printf(`<p class="warning">Một số nguồn dữ liệu không khả dụng; kết quả có thể thiếu.</p>`)
		}
		if !result.Success {
			e.printf(`<p class="warning">%s</p>`, templ.EscapeString(result.Reason))
		}
		writeSources(e, result.Sources)
		writeStats(e, result.Stats)

		e.printf(`<table><thead><tr><th>#</th><th>Mã học viên</th><th>Họ và tên</th><th>Hạng</th>`)
		for _, c := range columns {
			e.printf(`<th>%s</th>`, templ.EscapeString(c.Title))
		}
		e.printf(`<th>Hoàn thành</th></tr></thead><tbody>`)

		for i, p := range result.Students {
			s := p.Student
			e.printf(`<tr><td>%d</td><td>%s</td><td>%s</td><td>%s</td>`, i+1,
				templ.EscapeString(s.Code), templ.EscapeString(s.Name), templ.EscapeString(p.Category))
			for _, c := range columns {
				e.printf(`<td class="%s">%s</td>`, p.Compliance.Status(c.Field), templ.EscapeString(c.Value(s)))
			}
			done := "Chưa"
			if p.Complete {
				done = "Đạt"
			}
			e.printf(`<td>%s</td></tr>`, done)
		}
		e.printf(`</tbody></table></body></html>`)
		return e.err
	})
}

func writeSources(e *errWriter, sources []core.SourceStatus) {
	if len(sources) == 0 {
		return
	}
	e.printf(`<ul class="sources">`)
	for _, src := range sources {
		state := "ok"
		if !src.OK {
			state = "lỗi: " + src.Error
		}
		e.printf(`<li>%s: %d bản ghi (%s)</li>`, templ.EscapeString(src.Name), src.Records, templ.EscapeString(state))
	}
	e.printf(`</ul>`)
}

func writeStats(e *errWriter, st core.Stats) {
	e.printf(`<p class="stats">Tổng %d · Lý thuyết %d · Cabin %d · Thực hành %d · Kiểm tra %d · Hoàn thành %d</p>`,
		st.Total, st.Theory, st.Cabin, st.Practice, st.Exam, st.Complete)
}

// errWriter stops writing after the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
