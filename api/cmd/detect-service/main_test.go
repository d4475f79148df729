package main

import "testing"

func TestSafeDSNSummary(t *testing.T) {
	cases := []struct{ dsn, want string }{
		{"postgres://tick:secret@db:5432/ticksafe?sslmode=disable", "host=db port=5432 db=ticksafe user=tick"},
		{"postgres://tick@db/ticksafe", "host=db db=ticksafe user=tick"},
		{"://bad", "dsn: parse error"},
	}
	for _, c := range cases {
		got := safeDSNSummary(c.dsn)
		if got != c.want {
			t.Errorf("safeDSNSummary(%q) = %q, want %q", c.dsn, got, c.want)
		}
	}
}
