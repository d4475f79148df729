package vision

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestParseVerdict(t *testing.T) {
	cases := []struct {
		in   string
		want Verdict
	}{
		{"Yes", VerdictYes},
		{"yes.", VerdictYes},
		{"  **Yes**, it is a tick", VerdictYes},
		{"No", VerdictNo},
		{"No, this is a leaf", VerdictNo},
		{"Uncertain", VerdictUncertain},
		{"", VerdictUncertain},
		{"Maybe", VerdictUncertain},
		{"Not sure", VerdictUncertain},
		{"Not certain, it could be a tick", VerdictUncertain},
		{"Nope", VerdictUncertain},
		{"None", VerdictUncertain},
		{"No, but I'm not sure", VerdictUncertain},
		{"no!", VerdictNo},
		{"`No`", VerdictNo},
		{"Yesterday", VerdictUncertain},
	}
	for _, c := range cases {
		if got := ParseVerdict(c.in); got != c.want {
			t.Errorf("ParseVerdict(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestHedgedAnswersAreNotNegative(t *testing.T) {
	for _, in := range []string{"Not sure", "Not certain, it could be a tick", "Nope"} {
		if r := Result(Classification{Verdict: ParseVerdict(in)}, "不是"); strings.Contains(r, "不是") {
			t.Errorf("%q became negative result %q", in, r)
		}
	}
}

func TestResultMarkerContract(t *testing.T) {
	const marker = "不是"
	if r := Result(Classification{Verdict: VerdictNo}, marker); !strings.HasPrefix(r, marker) {
		t.Errorf("negative result %q must start with the marker", r)
	}
	for _, v := range []Verdict{VerdictYes, VerdictUncertain} {
		if r := Result(Classification{Verdict: v}, marker); strings.Contains(r, marker) {
			t.Errorf("%s result %q must not contain the marker", v, r)
		}
	}
}

type nopEngine struct{ name string }

func (n nopEngine) Name() string     { return n.name }
func (n nopEngine) GetModel() string { return "m" }
func (n nopEngine) Classify(context.Context, []byte, string) (Classification, error) {
	return Classification{}, nil
}

func TestGetEngine(t *testing.T) {
	e := &Engines{Azure: nopEngine{"azure"}}
	if got, err := e.GetEngine("Azure"); err != nil || got.Name() != "azure" {
		t.Fatalf("GetEngine(azure) = %v, %v", got, err)
	}
	if _, err := e.GetEngine("gemini"); !errors.Is(err, ErrUnknownEngine) {
		t.Fatalf("unconfigured gemini: err = %v", err)
	}
}
