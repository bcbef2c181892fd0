package sqlbatch

import (
	"strings"
	"unicode"
)

// Statement is the recognized INSERT statement of a batch file.
type Statement struct {
	Table string
	// Body is the existing text the new tuples are appended to.
	Body string
	// Terminated reports whether the trimmed content ended with ';'.
	Terminated bool
}

// Parse looks for this table's statement in content. Only one statement per
// file is recognized and detection is by the table's sentinel header.
func Parse(content string, table Table) (Statement, bool) {
	if content == "" || !strings.Contains(content, table.Sentinel()) {
		return Statement{}, false
	}

	trimmed := strings.TrimRightFunc(content, unicode.IsSpace)
	if strings.HasSuffix(trimmed, ";") {
		return Statement{
			Table:      table.Name,
			Body:       strings.TrimSuffix(trimmed, ";"),
			Terminated: true,
		}, true
	}

	// Unterminated statements are extended as-is, which yields invalid SQL.
	return Statement{Table: table.Name, Body: content}, true
}

// Extend reopens the statement and appends tuples, closing it again.
func (s Statement) Extend(tuples []string) string {
	var b strings.Builder
	b.WriteString(s.Body)
	if s.Terminated {
		b.WriteString(",")
	}
	b.WriteString("\n")
	b.WriteString(strings.Join(tuples, ",\n"))
	b.WriteString(";\n\n")
	return b.String()
}

// Summary counts what a batch file holds for one table.
type Summary struct {
	Table       string `json:"table"`
	HasHeader   bool   `json:"has_header"`
	Tuples      int    `json:"tuples"`
	Terminators int    `json:"terminators"`
}

// WellFormed reports a single statement closed by exactly one ';'.
func (s Summary) WellFormed() bool {
	return s.HasHeader && s.Tuples > 0 && s.Terminators == 1
}

// Inspect counts top-level value tuples and statement terminators after the
// table's VALUES keyword, skipping anything inside string literals.
func Inspect(content string, table Table) Summary {
	sum := Summary{Table: table.Name}

	start := strings.Index(content, table.Sentinel())
	if start < 0 {
		return sum
	}
	sum.HasHeader = true

	values := strings.Index(content[start:], "VALUES")
	if values < 0 {
		return sum
	}

	rest := content[start+values+len("VALUES"):]
	depth := 0
	inString := false
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if inString {
			if c == '\'' {
				if i+1 < len(rest) && rest[i+1] == '\'' {
					i++
					continue
				}
				inString = false
			}
			continue
		}

		switch c {
		case '\'':
			inString = true
		case '(':
			if depth == 0 {
				sum.Tuples++
			}
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ';':
			if depth == 0 {
				sum.Terminators++
			}
		}
	}

	return sum
}
