package schedule

import (
	"testing"
	"time"
)

func TestParseCronRejectsGarbage(t *testing.T) {
	if _, err := ParseCron("not a cron"); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestCronMatchesMinute(t *testing.T) {
	expr, err := ParseCron("*/5 * * * *")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	at := time.Date(2024, 3, 1, 12, 5, 30, 0, time.UTC)
	if !expr.Matches(at) {
		t.Errorf("%s should match 12:05", expr)
	}
	if expr.Matches(at.Add(time.Minute)) {
		t.Errorf("%s should not match 12:06", expr)
	}
}

func TestCronNext(t *testing.T) {
	expr, err := ParseCron("0 9 * * *")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	next := expr.Next(at)
	if next.Hour() != 9 || next.Day() != 2 {
		t.Errorf("unexpected next activation: %v", next)
	}
}
