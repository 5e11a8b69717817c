package rdf

import (
	"fmt"
	"strings"
)

// ParseTerm reads the compact term syntax used on the command line and in
// query parameters:
//
//	<http://example.org/x>   absolute IRI
//	?name                    placeholder
//	"text" or "text"@en      literal
//	skmf:Resource or a       prefixed name
func ParseTerm(s string) (Term, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Term{}, fmt.Errorf("%w: empty term", ErrMalformedTerm)
	}

	var t Term
	switch {
	case strings.HasPrefix(s, "<"):
		if !strings.HasSuffix(s, ">") || len(s) < 3 {
			return Term{}, fmt.Errorf("%w: unterminated IRI %q", ErrMalformedTerm, s)
		}
		t = URI(s[1 : len(s)-1])
	case strings.HasPrefix(s, "?"):
		t = Placeholder(s)
	case strings.HasPrefix(s, `"`):
		end := strings.LastIndex(s, `"`)
		if end == 0 {
			return Term{}, fmt.Errorf("%w: unterminated literal %s", ErrMalformedTerm, s)
		}
		value := strings.ReplaceAll(s[1:end], `\"`, `"`)
		rest := s[end+1:]
		switch {
		case rest == "":
			t = Literal(value)
		case strings.HasPrefix(rest, "@"):
			t = LangLiteral(value, rest[1:])
		default:
			return Term{}, fmt.Errorf("%w: unexpected %q after literal", ErrMalformedTerm, rest)
		}
	default:
		t = Prefixed(s)
	}

	if err := t.Validate(); err != nil {
		return Term{}, err
	}
	return t, nil
}

// ParseTriple reads "subject predicate object" in the ParseTerm syntax.
// Whitespace inside a quoted literal is kept.
func ParseTriple(s string) (Triple, error) {
	fields, err := splitTerms(s)
	if err != nil {
		return Triple{}, err
	}
	if len(fields) != 3 {
		return Triple{}, fmt.Errorf("%w: expected 3 terms, got %d in %q", ErrMalformedPattern, len(fields), s)
	}

	var terms [3]Term
	for i, f := range fields {
		if terms[i], err = ParseTerm(f); err != nil {
			return Triple{}, err
		}
	}
	return Triple{Subject: terms[0], Predicate: terms[1], Object: terms[2]}, nil
}

func splitTerms(s string) ([]string, error) {
	var (
		fields  []string
		current strings.Builder
		quoted  bool
		escaped bool
	)
	flush := func() {
		if current.Len() > 0 {
			fields = append(fields, current.String())
			current.Reset()
		}
	}

	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && quoted:
			escaped = true
		case r == '"':
			quoted = !quoted
		case !quoted && (r == ' ' || r == '\t'):
			flush()
			continue
		}
		current.WriteRune(r)
	}
	if quoted {
		return nil, fmt.Errorf("%w: unterminated literal in %q", ErrMalformedTerm, s)
	}
	flush()
	return fields, nil
}
