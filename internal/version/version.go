package version

import "fmt"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info возвращает версию сборки, проставляемую через -ldflags.
func Info() (v, c, d string) { return version, commit, date }

// String возвращает версию в одну строку для логов и health-ответов.
func String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", version, commit, date)
}
