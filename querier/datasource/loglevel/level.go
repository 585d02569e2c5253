package loglevel

import (
	"strings"
	"unicode"
)

type Level int

const (
	Unknown Level = iota
	Critical
	Error
	Warning
	Info
	Debug

	maxLineLenForGuessing = 255
	guessInFields         = 7
)

// String returns the canonical lowercase name. Unknown renders as the empty
// string so it can go straight into LogEntry.Level.
func (l Level) String() string {
	switch l {
	case Critical:
		return "critical"
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Debug:
		return "debug"
	}
	return ""
}

var (
	glogLevels = map[byte]Level{
		'I': Info,
		'W': Warning,
		'E': Error,
		'F': Critical,
	}
	// syslog numeric priorities.
	priorityLevels = map[string]Level{
		"0": Critical,
		"1": Critical,
		"2": Critical,
		"3": Error,
		"4": Warning,
		"5": Info,
		"6": Info,
		"7": Debug,
	}
	shortLevels = map[string]Level{
		"err": Error,
		"dbg": Debug,
		"wrn": Warning,
	}
)

// FromValue normalizes the content of an explicit level column: canonical
// names, truncated spellings and syslog priorities all map to a Level.
func FromValue(v string) Level {
	s := strings.ToLower(strings.TrimSpace(v))
	if s == "" {
		return Unknown
	}
	if l, ok := priorityLevels[s]; ok {
		return l
	}
	if l, ok := shortLevels[s]; ok {
		return l
	}
	return byKeyword(s)
}

// Guess extracts the level from a raw log line. It checks the glog header
// first, then scans the leading fields for level keywords.
func Guess(line string) Level {
	if len(line) > maxLineLenForGuessing {
		line = line[:maxLineLenForGuessing]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Unknown
	}
	if l := tryGlog(fields[0]); l != Unknown {
		return l
	}
	limit := len(fields)
	if limit > guessInFields {
		limit = guessInFields
	}
	for _, f := range fields[:limit] {
		subfields := strings.FieldsFunc(f, func(r rune) bool {
			return r == ']' || r == ')' || r == ';' || r == '|' || r == ':' || r == ',' || r == '.' || r == '='
		})
		for _, sf := range subfields {
			sf = strings.TrimLeft(strings.ToLower(sf), "\"[(<'")
			if l := byKeyword(sf); l != Unknown {
				return l
			}
		}
	}
	return Unknown
}

func byKeyword(s string) Level {
	if len(s) < 4 {
		return Unknown
	}
	switch s[:4] {
	case "debu", "trac":
		return Debug
	case "info", "noti":
		return Info
	case "warn":
		return Warning
	case "erro":
		return Error
	case "crit", "fata":
		return Critical
	}
	return Unknown
}

// tryGlog matches the klog/glog header, e.g. "E0921 12:00:00.123".
func tryGlog(first string) Level {
	if len(first) != 5 {
		return Unknown
	}
	level, ok := glogLevels[first[0]]
	if !ok {
		return Unknown
	}
	for _, r := range first[1:] {
		if !unicode.IsDigit(r) {
			return Unknown
		}
	}
	return level
}
