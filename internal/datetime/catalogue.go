package datetime

import (
	"regexp"
	"strings"
)

// literalShape splits a timestamp literal into its date, separator, time, fraction,
// meridiem and zone tokens. A zone only follows a time, so the year of a dash
// separated date is never read as an offset.
var literalShape = regexp.MustCompile(
	`^(?P<date>.+?)` +
		`(?:(?P<sep>T| )(?P<time>\d{1,2}:\d{2}(?::\d{2})?)(?:(?P<fracsep>[.,])(?P<frac>\d{1,9}))?(?P<ampm> ?[AaPp][Mm])?` +
		`(?P<zone>Z| ?[+-]\d{2}:?\d{2}| UTC| GMT)?)?$`)

type parts struct {
	date, sep, clock, fracSep, frac, ampm, zone string
}

func split(literal string) (parts, bool) {
	m := literalShape.FindStringSubmatch(literal)
	if m == nil {
		return parts{}, false
	}
	get := func(name string) string { return m[literalShape.SubexpIndex(name)] }
	return parts{
		date:    get("date"),
		sep:     get("sep"),
		clock:   get("time"),
		fracSep: get("fracsep"),
		frac:    get("frac"),
		ampm:    get("ampm"),
		zone:    get("zone"),
	}, true
}

// order of the day, month and year groups of a numeric date.
type order int

const (
	ymd order = iota
	mdy
	dmy
)

// datePattern is one entry of the date catalogue. layouts returns the candidate
// layouts the pattern offers for a date token, in preference order.
type datePattern struct {
	name    string
	layouts func(date string) []string
}

var numericDate = regexp.MustCompile(`^(\d{1,4})([-/.])(\d{1,2})([-/.])(\d{1,4})$`)

var (
	dayMonthNameYear = regexp.MustCompile(`^(\d{1,2})([ -])([A-Za-z]{3,9})([ -])(\d{2}|\d{4})$`)
	monthNameDayYear = regexp.MustCompile(`^([A-Za-z]{3,9}) (\d{1,2})(,?) (\d{4})$`)
)

// dateCatalogue is tried in order. Slash and dash dates are month-first unless the
// first group cannot be a month; dotted dates are day-first.
var dateCatalogue = []datePattern{
	{name: "iso", layouts: func(date string) []string { return numericLayouts(date, ymd) }},
	{name: "dotted", layouts: func(date string) []string {
		if m := numericDate.FindStringSubmatch(date); m != nil && m[2] == "." {
			return numericLayouts(date, dmy)
		}
		return nil
	}},
	{name: "month-first", layouts: func(date string) []string {
		if m := numericDate.FindStringSubmatch(date); m != nil && m[2] != "." {
			return numericLayouts(date, mdy)
		}
		return nil
	}},
	{name: "day-first", layouts: func(date string) []string {
		if m := numericDate.FindStringSubmatch(date); m != nil && m[2] != "." {
			return numericLayouts(date, dmy)
		}
		return nil
	}},
	{name: "day-month-name", layouts: func(date string) []string {
		m := dayMonthNameYear.FindStringSubmatch(date)
		if m == nil {
			return nil
		}
		return []string{dayLayout(m[1]) + m[2] + monthNameLayout(m[3]) + m[4] + yearLayout(m[5])}
	}},
	{name: "month-name-day", layouts: func(date string) []string {
		m := monthNameDayYear.FindStringSubmatch(date)
		if m == nil {
			return nil
		}
		return []string{monthNameLayout(m[1]) + " " + dayLayout(m[2]) + m[3] + " " + yearLayout(m[4])}
	}},
}

func numericLayouts(date string, o order) []string {
	m := numericDate.FindStringSubmatch(date)
	if m == nil || m[2] != m[4] {
		return nil
	}
	a, sep, b, c := m[1], m[2], m[3], m[5]
	switch o {
	case ymd:
		if len(a) != 4 || len(c) > 2 {
			return nil
		}
		return []string{"2006" + sep + monthLayout(b) + sep + dayLayout(c)}
	case mdy:
		if len(a) > 2 || !yearShaped(c) {
			return nil
		}
		return []string{monthLayout(a) + sep + dayLayout(b) + sep + yearLayout(c)}
	case dmy:
		if len(a) > 2 || !yearShaped(c) {
			return nil
		}
		return []string{dayLayout(a) + sep + monthLayout(b) + sep + yearLayout(c)}
	}
	return nil
}

func yearShaped(s string) bool {
	return len(s) == 2 || len(s) == 4
}

func dayLayout(s string) string {
	if len(s) == 1 {
		return "2"
	}
	return "02"
}

func monthLayout(s string) string {
	if len(s) == 1 {
		return "1"
	}
	return "01"
}

func yearLayout(s string) string {
	if len(s) == 2 {
		return "06"
	}
	return "2006"
}

func monthNameLayout(s string) string {
	if len(s) == 3 {
		return "Jan"
	}
	return "January"
}

// timeLayout renders the clock, fraction and meridiem tokens as a layout. It returns
// false when the tokens are not a consistent 12h or 24h clock.
func timeLayout(p parts) (string, bool) {
	if p.clock == "" {
		return "", p.frac == "" && p.ampm == ""
	}
	groups := strings.Split(p.clock, ":")
	var b strings.Builder
	if p.ampm != "" {
		if len(groups[0]) == 1 {
			b.WriteString("3")
		} else {
			b.WriteString("03")
		}
	} else {
		// 15 also parses a single digit hour; see unpaddedHour
		b.WriteString("15")
	}
	b.WriteString(":04")
	if len(groups) == 3 {
		b.WriteString(":05")
		if p.frac != "" {
			b.WriteString(p.fracSep)
			b.WriteString(strings.Repeat("0", len(p.frac)))
		}
	} else if p.frac != "" {
		return "", false
	}
	if p.ampm != "" {
		if strings.HasPrefix(p.ampm, " ") {
			b.WriteString(" ")
		}
		if strings.ToUpper(p.ampm) == strings.TrimSpace(p.ampm) {
			b.WriteString("PM")
		} else {
			b.WriteString("pm")
		}
	}
	return b.String(), true
}

// unpaddedHour reports a 24h clock written without the leading zero, which no layout
// element renders.
func unpaddedHour(p parts) bool {
	return p.ampm == "" && strings.IndexByte(p.clock, ':') == 1
}

// zoneLayout renders the zone token as a layout.
func zoneLayout(zone string) string {
	switch {
	case zone == "":
		return ""
	case zone == "Z":
		return "Z07:00"
	case zone == " UTC" || zone == " GMT":
		return zone
	}
	prefix := ""
	z := zone
	if strings.HasPrefix(z, " ") {
		prefix = " "
		z = z[1:]
	}
	if strings.Contains(z, ":") {
		return prefix + "-07:00"
	}
	return prefix + "-0700"
}
