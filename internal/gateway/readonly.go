package gateway

import (
	"strings"
	"unicode"
)

// writeKeywords are statement prefixes that are refused outright. The check
// looks at the first keyword only, so it is a heuristic rather than a parser:
// a CTE followed by DELETE, or a SELECT ... INTO, is not caught.
var writeKeywords = map[string]bool{
	"INSERT":   true,
	"UPDATE":   true,
	"DELETE":   true,
	"DROP":     true,
	"ALTER":    true,
	"CREATE":   true,
	"TRUNCATE": true,
	"EXEC":     true,
	"EXECUTE":  true,
	"MERGE":    true,
}

// CheckReadOnly rejects empty statements and statements whose first keyword
// would modify data or schema. The returned error is always an InvalidInput
// *Error.
func CheckReadOnly(statement string) error {
	keyword, ok := leadingKeyword(statement)
	if !ok {
		return invalidInput("statement is empty")
	}
	if writeKeywords[keyword] {
		return invalidInput("only read-only statements are allowed, got " + keyword)
	}
	return nil
}

// leadingKeyword skips whitespace, statement separators and comments, then
// returns the first word upper-cased. ok is false when nothing but
// whitespace and comments remains.
func leadingKeyword(statement string) (keyword string, ok bool) {
	s := statement
	for {
		s = strings.TrimLeftFunc(s, func(r rune) bool {
			return unicode.IsSpace(r) || r == ';'
		})

		switch {
		case strings.HasPrefix(s, "--"):
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				return "", false
			}
			s = s[i+1:]
		case strings.HasPrefix(s, "/*"):
			i := strings.Index(s[2:], "*/")
			if i < 0 {
				return "", false
			}
			s = s[i+4:]
		default:
			if s == "" {
				return "", false
			}
			end := strings.IndexFunc(s, func(r rune) bool {
				return !unicode.IsLetter(r) && r != '_'
			})
			if end < 0 {
				end = len(s)
			}
			return strings.ToUpper(s[:end]), true
		}
	}
}
