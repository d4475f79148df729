package content

import (
	"errors"
	"testing"
)

func TestAllContentLoads(t *testing.T) {
	want := map[ID]int{
		Welcome:    1,
		RiskMaps:   1,
		Seasonal:   1,
		Animals:    1,
		Vegetation: 1,
		Removal:    3,
		Emergency:  3,
		TickChart:  1,
	}
	for id, n := range want {
		if got := Pages(id); got != n {
			t.Errorf("Pages(%s) = %d, want %d", id, got, n)
		}
		p, err := Render(id, 1)
		if err != nil {
			t.Fatalf("Render(%s): %v", id, err)
		}
		if p.Title == "" {
			t.Errorf("Render(%s): empty title", id)
		}
	}
}

func TestRenderClampsPage(t *testing.T) {
	p, err := Render(Removal, 99)
	if err != nil {
		t.Fatal(err)
	}
	if p.Number != 3 || p.Total != 3 || p.Title != "After Removal" {
		t.Fatalf("got page %d/%d %q", p.Number, p.Total, p.Title)
	}
	p, _ = Render(Removal, 0)
	if p.Number != 1 || p.Media != "tick-removal.mp4" {
		t.Fatalf("got page %d media %q", p.Number, p.Media)
	}
}

func TestRenderUnknown(t *testing.T) {
	if _, err := Render("nope", 1); !errors.Is(err, ErrUnknownContent) {
		t.Fatalf("err = %v, want ErrUnknownContent", err)
	}
}

func TestEmergencyPagesReferenceDialTargets(t *testing.T) {
	for i := 1; i <= Pages(Emergency); i++ {
		p, _ := Render(Emergency, i)
		if _, ok := Dial(p.Dial); !ok {
			t.Errorf("emergency page %d: unknown dial target %q", i, p.Dial)
		}
	}
}

func TestDialTargets(t *testing.T) {
	cases := map[string]string{
		"emergency": "tel:000",
		"nurse":     "tel:1300606024",
		"poisons":   "tel:131126",
	}
	for key, uri := range cases {
		d, ok := Dial(key)
		if !ok {
			t.Fatalf("Dial(%q) missing", key)
		}
		if d.TelURI() != uri {
			t.Errorf("Dial(%q).TelURI() = %q, want %q", key, d.TelURI(), uri)
		}
	}
	if _, ok := Dial("pizza"); ok {
		t.Error("Dial(pizza) found")
	}
}

func TestSeasonalForecast(t *testing.T) {
	p, _ := Render(Seasonal, 1)
	last := p.Sections[len(p.Sections)-1]
	if last.Heading != "Victoria 3-Month Forecast" || len(last.Facts) != 3 {
		t.Fatalf("unexpected forecast section: %+v", last)
	}
	if last.Facts[0] != (Fact{Label: "Oct", Value: "Peak"}) {
		t.Errorf("first forecast = %+v", last.Facts[0])
	}
}
