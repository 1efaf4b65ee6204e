package units

import "testing"

func TestPixelsRoundTrip(t *testing.T) {
	scales := []float64{1, 1.25, 1.5, 2, 3}
	for _, s := range scales {
		p := LogicalPixels(37.5)
		got := p.ToPhysical(s).ToLogical(s)
		if diff := got.Value() - p.Value(); diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("scale=%v: round-trip mismatch: got %v want %v", s, got.Value(), p.Value())
		}
	}
}

func TestPixelsAddSameSpace(t *testing.T) {
	a := LogicalPixels(10)
	b := LogicalPixels(5)
	sum := a.Add(b)
	if sum.Value() != 15 || sum.Space() != Logical {
		t.Fatalf("unexpected sum: %+v", sum)
	}
}

func TestPixelsAddCrossSpacePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when adding across spaces")
		}
	}()
	LogicalPixels(1).Add(PhysicalPixels(1))
}

func TestGridPointScreenToAbsolute(t *testing.T) {
	cases := []struct {
		historySize, displayOffset, screenRow int
		wantAbsolute                          int
	}{
		{100, 50, 0, 50},
		{100, 50, 23, 73},
		{0, 0, 0, 0},
	}
	for _, c := range cases {
		sp := ScreenPoint(c.screenRow, 0)
		abs := sp.ToAbsolute(c.historySize, c.displayOffset)
		if abs.Line != c.wantAbsolute {
			t.Fatalf("historySize=%d displayOffset=%d screenRow=%d: got absolute=%d want %d",
				c.historySize, c.displayOffset, c.screenRow, abs.Line, c.wantAbsolute)
		}
	}
}

func TestGridPointRoundTrip(t *testing.T) {
	historySize, displayOffset := 200, 30
	for screenRow := 0; screenRow < 24; screenRow++ {
		sp := ScreenPoint(screenRow, 5)
		abs := sp.ToAbsolute(historySize, displayOffset)
		back := abs.ToScreen(historySize, displayOffset)
		if back.Line != screenRow {
			t.Fatalf("round-trip mismatch at screenRow=%d: got %d", screenRow, back.Line)
		}
	}
}

func TestGridPointSaturatesAtZero(t *testing.T) {
	sp := ScreenPoint(-500, 0)
	abs := sp.ToAbsolute(10, 5)
	if abs.Line != 0 {
		t.Fatalf("expected saturation to 0, got %d", abs.Line)
	}
}
