package ichat

import "testing"

func TestFormatNSDateEpoch(t *testing.T) {
	got := FormatNSDate(0, 0, true)
	if got != "2001-01-01 00:00:00" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatNSDateShortForm(t *testing.T) {
	got := FormatNSDate(3661, 0, false) // 1h 1m 1s
	if got != "01:01:01" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatNSDateNegativeOffsetRollsBackADay(t *testing.T) {
	// 00:30:00 on 2001-01-01, offset -5h rolls back to the previous day.
	got := FormatNSDate(1800, -5, true)
	if got != "2000-12-31 19:30:00" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatNSDatePositiveOffsetRollsForwardADay(t *testing.T) {
	// 23:30:00 on 2001-01-01, offset +5h rolls forward to the next day.
	got := FormatNSDate(84600, 5, true)
	if got != "2001-01-02 04:30:00" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatNSDateCrossesLeapDay(t *testing.T) {
	// 2004 is a leap year; walk seconds up to Feb 29.
	secondsToFeb29_2004 := 0.0
	for y := 2001; y < 2004; y++ {
		secondsToFeb29_2004 += float64(daysInYear(y)) * 86400
	}
	secondsToFeb29_2004 += float64(31+29-1) * 86400 // Jan (31) + Feb up to the 29th
	got := FormatNSDate(secondsToFeb29_2004, 0, true)
	if got != "2004-02-29 00:00:00" {
		t.Fatalf("got %q", got)
	}
}
