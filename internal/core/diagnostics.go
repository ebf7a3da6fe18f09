package core

// Diagnostics is the side channel every extractor fills in. Parse-tolerant
// failures never become errors, so this is the only place they are visible.
type Diagnostics struct {
	Source        string           `json:"source"`
	RowsScanned   int              `json:"rows_scanned"`
	RecordsKept   int              `json:"records_kept"`
	RowsDropped   int              `json:"rows_dropped"`
	DropReasons   map[string]int   `json:"drop_reasons,omitempty"`
	FieldsMatched int              `json:"fields_matched"`
	FieldsTotal   int              `json:"fields_total"`
	Headers       map[string]Match `json:"headers,omitempty"`
	Unmatched     []string         `json:"unmatched,omitempty"`
	Conflicts     []HeaderConflict `json:"conflicts,omitempty"`
	Presence      map[string]int   `json:"presence,omitempty"`
	Durations     map[string]int   `json:"durations,omitempty"`
	Malformed     map[string]int   `json:"malformed,omitempty"`
}

func newDiagnostics(source string) *Diagnostics {
	return &Diagnostics{
		Source:      source,
		DropReasons: make(map[string]int),
		Presence:    make(map[string]int),
		Durations:   make(map[string]int),
		Malformed:   make(map[string]int),
	}
}

func (d *Diagnostics) drop(reason string) {
	d.RowsDropped++
	d.DropReasons[reason]++
}

// cell records how one field's cell was read.
func (d *Diagnostics) cell(field string, status CellStatus) {
	switch status {
	case CellEmpty:
		return
	case CellDuration:
		d.Durations[field]++
	case CellMalformed:
		d.Malformed[field]++
	}
	d.Presence[field]++
}

func (d *Diagnostics) present(field string) {
	d.Presence[field]++
}

func (d *Diagnostics) recordMatch(hm HeaderMatch) {
	d.Headers = hm.Fields
	d.Conflicts = hm.Conflicts
	d.FieldsTotal = len(hm.Order)
	d.FieldsMatched = hm.MatchedCount()
	d.Unmatched = d.Unmatched[:0]
	for _, key := range hm.Order {
		if !hm.Fields[key].Matched() {
			d.Unmatched = append(d.Unmatched, key)
		}
	}
}

// MalformedTotal is the number of non-empty cells that degraded to 0.
func (d *Diagnostics) MalformedTotal() int {
	n := 0
	for _, c := range d.Malformed {
		n += c
	}
	return n
}

// ExtractionError is a fatal input failure: the workbook could not yield
// any usable records.
type ExtractionError struct {
	Source string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return "extract " + e.Source + ": " + e.Reason + ": " + e.Err.Error()
	}
	return "extract " + e.Source + ": " + e.Reason
}

func (e *ExtractionError) Unwrap() error { return e.Err }
