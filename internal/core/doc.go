// Package core provides the training-progress domain logic.
//
// The package has no transport or storage dependencies of its own: the
// web server, the report command and the tests all drive the same
// [Service] through the collaborator interfaces in ports.go.
//
// # Pipeline
//
// A course load ([Service.LoadCourse]) reconciles three sources keyed by
// registration code (ma_dk):
//
//   - theory: the LMS report workbook, read by [ExtractTheory]
//   - practice: the task-tracking API roster, paged by [FetchAllPractice]
//   - scores: rows previously imported with [Service.ImportScores]
//
// [Merge] layers them with precedence score > practice > theory and keeps
// only students on the theory roster. [Evaluate] then checks each student
// against the [Ruleset] of their license category (ma_hang).
//
// # Tolerant parsing
//
// Spreadsheet cells go through [Normalize] / [NormalizeCell], which never
// fail: anything unreadable becomes 0. Headers are matched with
// [MatchHeaders], a scored fuzzy match that survives missing diacritics and
// abbreviations. What was suppressed along the way is counted in
// [Diagnostics] and returned to the caller.
//
// # Errors
//
// Technical errors are mapped to staff-facing messages with [MapError];
// the code table lives in error_messages.go.
package core
