package core

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"nil", nil, 0},
		{"float", 7.5, 7.5},
		{"int", 12, 12},
		{"int64", int64(3), 3},
		{"plain string", "8.5", 8.5},
		{"comma decimal", "8,5", 8.5},
		{"thousands dot then comma", "1.234,5", 1.234},
		{"surrounding text", " 9 điểm ", 9},
		{"hours and minutes", "02h30p", 2.5},
		{"uppercase duration", "1H15P", 1.25},
		{"spaced duration", "3 h 20 p", 3.33},
		{"hours only", "4h", 4},
		{"minutes only", "45p", 0.75},
		{"duration word without digits", "hết", 0},
		{"letters only", "abc", 0},
		{"empty", "", 0},
		{"blank", "   ", 0},
		{"bytes", []byte("6"), 6},
		{"unsupported type", struct{}{}, 0},
		{"bool", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%#v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeCell_Status(t *testing.T) {
	tests := []struct {
		raw  string
		want CellStatus
	}{
		{"", CellEmpty},
		{"  ", CellEmpty},
		{"10", CellNumber},
		{"7,25", CellNumber},
		{"1h30p", CellDuration},
		{"phút", CellMalformed},
		{"n/a", CellMalformed},
		{"---", CellMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			_, got := NormalizeCell(tt.raw)
			if got != tt.want {
				t.Errorf("NormalizeCell(%q) status = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hv001", "HV001"},
		{" HV 002 ", "HV002"},
		{"\tab\n12", "AB12"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeCode(tt.in); got != tt.want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanText(t *testing.T) {
	if got := CleanText("  Nguyễn   Văn\tA "); got != "Nguyễn Văn A" {
		t.Errorf("CleanText() = %q", got)
	}
}
