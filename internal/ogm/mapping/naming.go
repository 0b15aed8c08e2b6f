package mapping

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Convention splits a name into lower-case tokens and joins tokens back
type Convention struct {
	Tokenize func(name string) []string
	Encode   func(tokens []string) string
}

// Standard convention names
const (
	SnakeCase          = "snake_case"
	KebabCase          = "kebab-case"
	ScreamingSnakeCase = "SCREAMING_SNAKE_CASE"
	PascalCase         = "PascalCase"
	CamelCase          = "camelCase"
)

var conventions = map[string]Convention{
	SnakeCase: {
		Tokenize: func(name string) []string { return strings.Split(name, "_") },
		Encode:   func(tokens []string) string { return strings.Join(tokens, "_") },
	},
	KebabCase: {
		Tokenize: func(name string) []string { return strings.Split(name, "-") },
		Encode:   func(tokens []string) string { return strings.Join(tokens, "-") },
	},
	ScreamingSnakeCase: {
		Tokenize: func(name string) []string {
			return lowerAll(strings.Split(name, "_"))
		},
		Encode: func(tokens []string) string {
			return cases.Upper(language.Und).String(strings.Join(tokens, "_"))
		},
	},
	PascalCase: {
		Tokenize: splitOnUpper,
		Encode: func(tokens []string) string {
			var b strings.Builder
			for _, tok := range tokens {
				b.WriteString(title(tok))
			}
			return b.String()
		},
	},
	CamelCase: {
		Tokenize: splitOnUpper,
		Encode: func(tokens []string) string {
			var b strings.Builder
			for i, tok := range tokens {
				if i == 0 {
					b.WriteString(tok)
					continue
				}
				b.WriteString(title(tok))
			}
			return b.String()
		},
	},
}

// Conventions returns the recognised convention names
func Conventions() []string {
	names := make([]string, 0, len(conventions))
	for name := range conventions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CaseTranslator returns a Translator from code-side field names written in
// codeConvention to record keys written in databaseConvention
func CaseTranslator(databaseConvention, codeConvention string) (Translator, error) {
	db, ok := conventions[databaseConvention]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConvention, databaseConvention)
	}
	code, ok := conventions[codeConvention]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConvention, codeConvention)
	}
	return func(name string) string {
		return db.Encode(code.Tokenize(name))
	}, nil
}

// splitOnUpper splits before every upper-case letter and lower-cases tokens
func splitOnUpper(name string) []string {
	var tokens []string
	var cur []rune
	for _, r := range name {
		if unicode.IsUpper(r) && len(cur) > 0 {
			tokens = append(tokens, string(cur))
			cur = cur[:0]
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		tokens = append(tokens, string(cur))
	}
	return lowerAll(tokens)
}

func lowerAll(tokens []string) []string {
	lower := cases.Lower(language.Und)
	for i, tok := range tokens {
		tokens[i] = lower.String(tok)
	}
	return tokens
}

// title upper-cases the first letter only
func title(tok string) string {
	return cases.Title(language.Und, cases.NoLower).String(tok)
}
