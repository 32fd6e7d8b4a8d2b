package tools

import (
	"context"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/goodsign/monday"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

const clockKey = "datetime.clock"

// DateTimePack formats and parses dates. The clock can be replaced per
// interpreter with SetClock.
func DateTimePack() *evaluator.Pack {
	return newPack("datetime", "current date and time, formatting and parsing", []Def{
		{Name: "datetime.date", Aliases: []string{"date"}, Execute: dateFormatter("%Y-%m-%d")},
		{Name: "datetime.time", Aliases: []string{"time"}, Execute: dateFormatter("%H:%M:%S")},
		{Name: "datetime.now", Execute: datetimeNow},
		{Name: "datetime.parse", Execute: datetimeParse},
	}, nil)
}

// SetClock overrides the time source used by the datetime pack.
func SetClock(ip *evaluator.Interpreter, now func() time.Time) {
	ip.SetState(clockKey, now)
}

func clock(ip *evaluator.Interpreter) time.Time {
	if v, ok := ip.State(clockKey); ok {
		if now, ok := v.(func() time.Time); ok {
			return now()
		}
	}
	return time.Now()
}

// dateFormatter accepts a format string or {format, locale}.
func dateFormatter(defaultFormat string) func(context.Context, *evaluator.Interpreter, evaluator.NJValue) (evaluator.NJValue, error) {
	return func(_ context.Context, ip *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
		format, locale := defaultFormat, ""
		switch a := args.(type) {
		case evaluator.NJString:
			if a.Value != "" {
				format = a.Value
			}
		case evaluator.NJRecord:
			format = optString(a, "format", defaultFormat)
			locale = optString(a, "locale", "")
		}
		return evaluator.NewString(Strftime(clock(ip), format, monday.Locale(locale))), nil
	}
}

func datetimeNow(_ context.Context, ip *evaluator.Interpreter, _ evaluator.NJValue) (evaluator.NJValue, error) {
	return evaluator.NewNumber(float64(clock(ip).UnixMilli())), nil
}

// datetimeParse reads a date in any common layout, or in an explicit
// strftime format, and returns {unix, iso}.
func datetimeParse(_ context.Context, _ *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
	rec, err := argRecord("datetime.parse", args, "value")
	if err != nil {
		return nil, err
	}
	value, err := reqString("datetime.parse", rec, "value")
	if err != nil {
		return nil, err
	}

	var t time.Time
	if format := optString(rec, "format", ""); format != "" {
		t, err = time.ParseInLocation(strftimeLayout(format), value, time.Local)
	} else {
		t, err = dateparse.ParseLocal(value)
	}
	if err != nil {
		return nil, argError("datetime.parse", "cannot parse %q: %v", value, err)
	}
	return record(
		kv("unix", evaluator.NewNumber(float64(t.Unix()))),
		kv("iso", evaluator.NewString(t.Format(time.RFC3339))),
	), nil
}

// strftimeDirectives maps strftime conversions to Go layouts.
var strftimeDirectives = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'e': "_2",
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'p': "PM",
	'b': "Jan",
	'h': "Jan",
	'B': "January",
	'a': "Mon",
	'A': "Monday",
	'j': "002",
	'z': "-0700",
	'Z': "MST",
	'f': ".000",
}

// Strftime renders t with a strftime-style format. Month and weekday names
// follow locale when it is set. Unknown directives are kept as written.
func Strftime(t time.Time, format string, locale monday.Locale) string {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 >= len(format) {
			b.WriteByte(c)
			continue
		}
		i++
		d := format[i]
		switch d {
		case '%':
			b.WriteByte('%')
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'F':
			b.WriteString(t.Format("2006-01-02"))
		case 'T':
			b.WriteString(t.Format("15:04:05"))
		case 's':
			b.WriteString(evaluator.FormatNumber(float64(t.Unix())))
		default:
			layout, ok := strftimeDirectives[d]
			if !ok {
				b.WriteByte('%')
				b.WriteByte(d)
				continue
			}
			if locale != "" {
				b.WriteString(monday.Format(t, layout, locale))
			} else {
				b.WriteString(t.Format(layout))
			}
		}
	}
	return b.String()
}

// strftimeLayout converts a strftime format into a Go layout for parsing.
func strftimeLayout(format string) string {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 >= len(format) {
			b.WriteByte(c)
			continue
		}
		i++
		switch d := format[i]; d {
		case '%':
			b.WriteByte('%')
		case 'F':
			b.WriteString("2006-01-02")
		case 'T':
			b.WriteString("15:04:05")
		default:
			if layout, ok := strftimeDirectives[d]; ok {
				b.WriteString(layout)
			} else {
				b.WriteByte('%')
				b.WriteByte(d)
			}
		}
	}
	return b.String()
}
