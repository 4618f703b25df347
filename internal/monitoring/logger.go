package monitoring

import "log"

// Logf is the package-level diagnostic logger used by the store. It defaults
// to log.Printf and may be replaced by SetLogger; tests usually mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil sets a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Eventf logs a project lifecycle event with a uniform prefix, e.g.
// "[store] sample42: saved in 12ms".
func Eventf(project, format string, v ...interface{}) {
	Logf("[store] "+project+": "+format, v...)
}
