// Command report evaluates one course offline from exported files and
// prints the progress table to the terminal. A .env file in the working
// directory is loaded first; LOG_LEVEL from it sets the default -log-level.
//
//	report -theory lms.xlsx -practice jira.json -scores diem.xlsx -category B
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"github.com/JonMunkholm/traintrack/internal/core"
	"github.com/JonMunkholm/traintrack/internal/export"
	"github.com/JonMunkholm/traintrack/internal/logging"
	"github.com/JonMunkholm/traintrack/internal/store"
)

// fileTheory serves a downloaded LMS report.
type fileTheory struct{ path string }

func (f fileTheory) FetchReport(context.Context, string) ([]byte, error) {
	return os.ReadFile(f.path)
}

// filePractice serves a JSON array of trainees as a single page.
type filePractice struct{ items []core.PracticeRecord }

func (f filePractice) FetchPage(_ context.Context, _ string, page int) (core.PracticePage, error) {
	if page > 1 {
		return core.PracticePage{}, nil
	}
	return core.PracticePage{Items: f.items}, nil
}

func main() {
	defaultLevel := loadEnv(".env")

	var (
		theoryPath    = flag.String("theory", "", "LMS theory report (.xlsx)")
		practicePath  = flag.String("practice", "", "task API trainee list (.json)")
		scoresPath    = flag.String("scores", "", "score sheet to import first (.xlsx or .csv)")
		standardsPath = flag.String("standards", "", "standards document (.yaml); defaults to the built-in set")
		category      = flag.String("category", "", "license category override")
		courseName    = flag.String("course-name", "", "course name used as category fallback")
		out           = flag.String("out", "", "write the progress workbook to this path")
		logLevel      = flag.String("log-level", defaultLevel, "log level")
	)
	flag.Parse()
	logging.SetupWriter(os.Stderr, *logLevel, "text")

	if *theoryPath == "" && *practicePath == "" {
		color.Red("at least one of -theory or -practice is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(context.Background(), options{
		theory: *theoryPath, practice: *practicePath, scores: *scoresPath,
		standards: *standardsPath, category: *category, courseName: *courseName, out: *out,
	}); err != nil {
		color.Red("Error: %s", core.FormatUserError(err))
		os.Exit(1)
	}
}

// loadEnv reads the given .env files if present and returns the default
// log level.
func loadEnv(files ...string) string {
	_ = godotenv.Load(files...)
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return "warn"
}

type options struct {
	theory, practice, scores, standards string
	category, courseName, out           string
}

func run(ctx context.Context, opts options) error {
	mem := store.NewMemory()
	deps := core.Deps{Standards: mem, Scores: mem, Imports: mem}
	if opts.theory != "" {
		deps.Theory = fileTheory{path: opts.theory}
	}
	if opts.practice != "" {
		data, err := os.ReadFile(opts.practice)
		if err != nil {
			return err
		}
		var items []core.PracticeRecord
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("parse %s: %w", opts.practice, err)
		}
		deps.Practice = filePractice{items: items}
	}

	svc, err := core.NewService(deps, core.Options{})
	if err != nil {
		return err
	}

	if err := loadStandards(ctx, svc, opts.standards); err != nil {
		return err
	}

	if opts.scores != "" {
		data, err := os.ReadFile(opts.scores)
		if err != nil {
			return err
		}
		res, err := svc.ImportScores(ctx, opts.scores, data)
		if err != nil {
			return err
		}
		color.Cyan("Imported %d score rows (%d skipped, %d failed)", res.Processed, res.Skipped, len(res.Failed))
	}

	result := svc.LoadCourse(ctx, core.CourseRequest{
		CourseID:   "offline",
		Category:   opts.category,
		CourseName: opts.courseName,
	})
	printSources(result)
	if !result.Success {
		return fmt.Errorf("course not loaded: %s", result.Reason)
	}
	printStudents(result)
	printSummary(result)

	if opts.out != "" {
		var buf bytes.Buffer
		if err := export.WriteProgress(&buf, result); err != nil {
			return err
		}
		if err := os.WriteFile(opts.out, buf.Bytes(), 0o644); err != nil {
			return err
		}
		color.Green("Wrote %s", opts.out)
	}
	return nil
}

func loadStandards(ctx context.Context, svc *core.Service, path string) error {
	if path == "" {
		_, err := svc.SeedStandards(ctx)
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	rulesets, err := core.ParseRulesets(data)
	if err != nil {
		return err
	}
	for _, rs := range rulesets {
		if _, _, err := svc.PutStandard(ctx, rs); err != nil {
			return fmt.Errorf("standards %s: %w", rs.Category, err)
		}
	}
	return nil
}

func printSources(result core.CourseResult) {
	color.Yellow("\nSources")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Source", "OK", "Records", "Error"})
	for _, src := range result.Sources {
		table.Append([]string{src.Name, strconv.FormatBool(src.OK), strconv.Itoa(src.Records), src.Error})
	}
	table.Render()
	if result.Diagnostics.PracticeTruncated {
		color.Red("Practice list truncated after %d pages", result.Diagnostics.PracticePages)
	}
}

var statusMark = map[string]string{
	core.StatusPass:          "ok",
	core.StatusFail:          "FAIL",
	core.StatusNotApplicable: "-",
	core.StatusUnknown:       "?",
}

func printStudents(result core.CourseResult) {
	color.Yellow("\nStudents")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Code", "Name", "Class", "Law", "Sim", "Cabin h", "Practice h", "Km", "Sections", "Done"})
	for i, p := range result.Students {
		s := p.Student
		done := color.RedString("no")
		if p.Complete {
			done = color.GreenString("yes")
		}
		table.Append([]string{
			strconv.Itoa(i + 1),
			s.Code,
			s.Name,
			p.Category,
			fmt.Sprintf("%.0f %s", s.Law, statusMark[p.Fields[core.FieldLaw]]),
			fmt.Sprintf("%.0f %s", s.Simulation, statusMark[p.Fields[core.FieldSimulation]]),
			fmt.Sprintf("%.1f", s.CabinHours),
			fmt.Sprintf("%.1f", s.PracticeHours()),
			fmt.Sprintf("%.1f", s.PracticeKm()),
			sectionSummary(p.Compliance),
			done,
		})
	}
	table.Render()
}

func sectionSummary(c core.Compliance) string {
	if !c.Known {
		return "no standards"
	}
	passed := 0
	for _, name := range core.Sections {
		if c.Sections[name] {
			passed++
		}
	}
	return fmt.Sprintf("%d/%d", passed, len(core.Sections))
}

func printSummary(result core.CourseResult) {
	st := result.Stats
	color.Cyan("\n%d students: %d complete, theory %d, cabin %d, practice %d, exam %d",
		st.Total, st.Complete, st.Theory, st.Cabin, st.Practice, st.Exam)
	if st.Unknown > 0 {
		color.Red("%d students have no standards for their category: %v", st.Unknown, result.Diagnostics.MissingStandards)
	}
	if n := len(result.Diagnostics.Excluded); n > 0 {
		color.Yellow("%d practice or score codes are not on the theory roster", n)
	}
	if result.Partial {
		color.Yellow("Partial result: at least one source failed")
	}
}
