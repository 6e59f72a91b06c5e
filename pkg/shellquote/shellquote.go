// Package shellquote constructs shell-pasteable command strings for logging.
package shellquote

import (
	"strings"
)

// escape returns a bash/zsh-safe argument using double quotes when needed.
// Inside double quotes these must be escaped: \ " $ `.
func escape(s string) string {
	if s == "" {
		return `""`
	}

	// Chars safe to keep unquoted.
	const safe = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_@%+=:,./-"

	needsQuotes := false

	for _, r := range s {
		if !strings.ContainsRune(safe, r) {
			needsQuotes = true

			break
		}
	}

	if !needsQuotes {
		return s
	}

	var quoted strings.Builder

	quoted.WriteByte('"')

	for _, r := range s {
		switch r {
		case '\\', '"', '$', '`':
			quoted.WriteByte('\\')
			quoted.WriteRune(r)
		case '\n':
			// Newlines are rare in CLI args; keep the line pasteable.
			quoted.WriteString(`\n`)
		case '\r':
			quoted.WriteString(`\r`)
		case '\t':
			quoted.WriteString(`\t`)
		default:
			quoted.WriteRune(r)
		}
	}

	quoted.WriteByte('"')

	return quoted.String()
}

// Join constructs a shell-pasteable command line from bin and args.
func Join(bin string, args []string) string {
	var cmdLine strings.Builder

	cmdLine.WriteString(escape(bin))

	for _, arg := range args {
		cmdLine.WriteByte(' ')
		cmdLine.WriteString(escape(arg))
	}

	return cmdLine.String()
}
