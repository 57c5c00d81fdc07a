package ichat

import "fmt"

// daysInMonth returns the number of days in the given 1-based month of
// year, honoring the Gregorian leap-year rule.
func daysInMonth(year, month int) int {
	if month == 2 {
		return daysInFeb(year)
	}
	days := [...]int{31, 0, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	return days[month-1]
}

func daysInFeb(year int) int {
	if !isLeapYear(year) {
		return 28
	}
	return 29
}

func isLeapYear(year int) bool {
	if year%400 == 0 {
		return true
	}
	if year%100 == 0 {
		return false
	}
	return year%4 == 0
}

func daysInYear(year int) int {
	if isLeapYear(year) {
		return 366
	}
	return 365
}

// FormatNSDate converts an NSDate value (seconds since 2001-01-01 00:00:00
// UTC) to a formatted local-time string, applying a fixed hour offset (no
// timezone database, no DST — see spec.md §4.6/§9). When long is true the
// result is "YYYY-MM-DD HH:MM:SS"; otherwise it is the short "HH:MM:SS"
// form.
func FormatNSDate(seconds float64, offsetHours int, long bool) string {
	days := int(seconds / 86400)
	fraction := seconds - float64(days)*86400
	if fraction < 0 {
		fraction += 86400
		days--
	}

	year := 2001
	for days >= daysInYear(year) {
		days -= daysInYear(year)
		year++
	}

	month := 1
	for days >= daysInMonth(year, month) {
		days -= daysInMonth(year, month)
		month++
		if month > 12 {
			month = 1
			year++
		}
	}
	day := days + 1

	hour := int(fraction) / 3600
	minute := (int(fraction) / 60) % 60
	second := int(fraction) % 60

	hour += offsetHours
	for hour < 0 {
		hour += 24
		day--
		if day < 1 {
			month--
			if month < 1 {
				month = 12
				year--
			}
			day = daysInMonth(year, month)
		}
	}
	for hour >= 24 {
		hour -= 24
		day++
		if day > daysInMonth(year, month) {
			day = 1
			month++
			if month > 12 {
				month = 1
				year++
			}
		}
	}

	if long {
		return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", year, month, day, hour, minute, second)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hour, minute, second)
}
