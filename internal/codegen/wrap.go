package codegen

import "strings"

// shellQuote wraps s in POSIX single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Wrap turns a generated program into one shell command running it inline:
// `<interpreter> <flag> '<source>'`. An empty interpreter selects the
// runtime's default.
func Wrap(source string, r Runtime, interpreter string) string {
	info := r.info()
	if info == nil {
		return source
	}
	if strings.TrimSpace(interpreter) == "" {
		interpreter = info.interpreter
	}
	code := strings.TrimPrefix(source, info.opener)
	code = strings.TrimRight(code, "\n")
	return interpreter + " " + info.inlineFlag + " " + shellQuote(code) + "\n"
}
