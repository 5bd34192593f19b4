package protocol

// LogLevel is one of the eight RFC 5424 severities the logging capability
// filters against.
type LogLevel string

const (
	LevelDebug     LogLevel = "debug"
	LevelInfo      LogLevel = "info"
	LevelNotice    LogLevel = "notice"
	LevelWarning   LogLevel = "warning"
	LevelError     LogLevel = "error"
	LevelCritical  LogLevel = "critical"
	LevelAlert     LogLevel = "alert"
	LevelEmergency LogLevel = "emergency"
)

// DefaultLogLevel is the threshold a session starts at before any
// logging/setLevel request.
const DefaultLogLevel = LevelError

var logSeverity = map[LogLevel]int{
	LevelDebug:     7,
	LevelInfo:      6,
	LevelNotice:    5,
	LevelWarning:   4,
	LevelError:     3,
	LevelCritical:  2,
	LevelAlert:     1,
	LevelEmergency: 0,
}

// ParseLogLevel validates a wire-provided level string, returning the
// typed LogLevel and false if it isn't one of the eight RFC 5424 names.
func ParseLogLevel(s string) (LogLevel, bool) {
	l := LogLevel(s)
	if _, ok := logSeverity[l]; !ok {
		return "", false
	}
	return l, true
}

// Severity returns l's RFC 5424 numeric severity (0 = emergency, the most
// severe, through 7 = debug, the least).
func (l LogLevel) Severity() int {
	return logSeverity[l]
}

// Admits reports whether a message at level l should be delivered to a
// session whose threshold is set to threshold: admitted messages are at
// least as severe as the threshold (numerically less than or equal).
func (l LogLevel) Admits(threshold LogLevel) bool {
	return l.Severity() <= threshold.Severity()
}
