// Package shellquote builds shell-pasteable command lines for debug logs.
package shellquote

import (
	"slices"
	"strings"
)

// Redacted replaces the value of a secret flag.
const Redacted = "[redacted]"

// safe chars are kept unquoted.
const safe = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_@%+=:,./-"

// Quote returns a bash/zsh-safe argument using double quotes when needed.
// Inside double quotes \ " $ ` are escaped.
func Quote(s string) string {
	if s == "" {
		return `""`
	}

	if !strings.ContainsFunc(s, func(r rune) bool { return !strings.ContainsRune(safe, r) }) {
		return s
	}

	var b strings.Builder
	b.WriteByte('"')

	for _, r := range s {
		switch r {
		case '\\', '"', '$', '`':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}

	b.WriteByte('"')

	return b.String()
}

// Join constructs a shell-pasteable command line from bin and args.
func Join(bin string, args []string) string {
	var cmdLine strings.Builder

	cmdLine.WriteString(Quote(bin))

	for _, arg := range args {
		cmdLine.WriteByte(' ')
		cmdLine.WriteString(Quote(arg))
	}

	return cmdLine.String()
}

// Redact returns a copy of args where the value following any of flags is replaced.
func Redact(args []string, flags ...string) []string {
	out := slices.Clone(args)

	for i := 0; i < len(out)-1; i++ {
		if slices.Contains(flags, out[i]) {
			out[i+1] = Redacted
			i++
		}
	}

	return out
}
