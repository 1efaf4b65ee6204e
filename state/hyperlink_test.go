package state

import (
	"testing"

	"github.com/raventerm/termengine/units"
)

func TestColumnRangeOnLine(t *testing.T) {
	h := HyperlinkHoverView{
		Start: units.AbsolutePoint(10, 5),
		End:   units.AbsolutePoint(12, 15),
		URI:   "https://example.com",
	}

	cases := []struct {
		name       string
		row        int
		start, end int
		ok         bool
	}{
		{"before span", 9, 0, 0, false},
		{"first row", 10, 5, 80, true},
		{"middle row", 11, 0, 80, true},
		{"last row", 12, 0, 15, true},
		{"after span", 13, 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, end, ok := h.ColumnRangeOnLine(tc.row, 80)
			if ok != tc.ok {
				t.Fatalf("row %d: ok = %v, want %v", tc.row, ok, tc.ok)
			}
			if ok && (start != tc.start || end != tc.end) {
				t.Fatalf("row %d: got (%d,%d), want (%d,%d)", tc.row, start, end, tc.start, tc.end)
			}
		})
	}
}

func TestColumnRangeOnLineSingleRow(t *testing.T) {
	h := HyperlinkHoverView{
		Start: units.AbsolutePoint(3, 7),
		End:   units.AbsolutePoint(3, 20),
	}
	start, end, ok := h.ColumnRangeOnLine(3, 80)
	if !ok || start != 7 || end != 20 {
		t.Fatalf("got (%d,%d,%v), want (7,20,true)", start, end, ok)
	}
}
