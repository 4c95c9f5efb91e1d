package cron

import "testing"

func TestParseInterval(t *testing.T) {
	valid := []string{"300", "1", "*/5 * * * *", "@hourly"}
	for _, s := range valid {
		if !ParseInterval(s) {
			t.Errorf("expected %q to be a valid interval", s)
		}
	}

	invalid := []string{"", "0", "-5", "not a schedule"}
	for _, s := range invalid {
		if ParseInterval(s) {
			t.Errorf("expected %q to be rejected", s)
		}
	}
}
