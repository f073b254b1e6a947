package writer

import (
	"strings"
	"unicode"
)

// words splits a name on every character that is not a letter or digit,
// e.g. "/users/{id}" gives ["users", "id"].
func words(name string) []string {
	return strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// PascalCase joins the words of name with each first letter upper-cased:
// "user_id" gives "UserId", "/pets/{id}" gives "PetsId". Letters after the
// first of each word are kept as they are.
func PascalCase(name string) string {
	var b strings.Builder
	for _, word := range words(name) {
		r := []rune(word)
		b.WriteRune(unicode.ToUpper(r[0]))
		b.WriteString(string(r[1:]))
	}
	return b.String()
}

// CamelCase is PascalCase with a lower-case first letter.
func CamelCase(name string) string {
	s := []rune(PascalCase(name))
	if len(s) == 0 {
		return ""
	}
	s[0] = unicode.ToLower(s[0])
	return string(s)
}
