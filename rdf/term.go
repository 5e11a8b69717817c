// Package rdf holds the in-memory model that SPARQL statements are built from:
// single terms, the subject → predicate → objects pattern and the prefix
// registry used to resolve prefixed names.
package rdf

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cayleygraph/quad"
)

// Kind identifies which of the four term shapes a Term holds.
type Kind int

const (
	KindInvalid Kind = iota
	KindURI
	KindPrefixed
	KindPlaceholder
	KindLiteral
)

var (
	prefixedPattern    = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.-]*)?:[A-Za-z0-9_:%.-]*$`)
	placeholderPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	langPattern        = regexp.MustCompile(`^[A-Za-z]+(-[A-Za-z0-9]+)*$`)
	blankLabelPattern  = regexp.MustCompile(`[^A-Za-z0-9_-]`)
)

// String returns the wire discriminator used in JSON payloads and fixtures.
func (k Kind) String() string {
	switch k {
	case KindURI:
		return "uri"
	case KindPrefixed:
		return "pfx"
	case KindPlaceholder:
		return "label"
	case KindLiteral:
		return "literal"
	default:
		return "invalid"
	}
}

// ParseKind maps a wire discriminator to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "uri", "iri":
		return KindURI, nil
	case "pfx", "prefixed":
		return KindPrefixed, nil
	case "label", "placeholder", "var":
		return KindPlaceholder, nil
	case "literal":
		return KindLiteral, nil
	}
	return KindInvalid, fmt.Errorf("%w: unknown term type %q", ErrMalformedTerm, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k == KindInvalid {
		return nil, fmt.Errorf("%w: invalid term type", ErrMalformedTerm)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Term is one SPARQL term. Lang is only meaningful for literals.
type Term struct {
	Kind  Kind   `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
	Lang  string `json:"xml:lang,omitempty" yaml:"lang,omitempty"`
}

// URI returns an absolute IRI term.
func URI(value string) Term {
	return Term{Kind: KindURI, Value: value}
}

// Prefixed returns a prefixed-name term such as skmf:Resource.
func Prefixed(value string) Term {
	return Term{Kind: KindPrefixed, Value: value}
}

// Placeholder returns a query variable. A leading '?' is dropped.
func Placeholder(name string) Term {
	return Term{Kind: KindPlaceholder, Value: strings.TrimPrefix(name, "?")}
}

// Literal returns a plain string literal.
func Literal(value string) Term {
	return Term{Kind: KindLiteral, Value: value}
}

// LangLiteral returns a language-tagged string literal.
func LangLiteral(value, lang string) Term {
	return Term{Kind: KindLiteral, Value: value, Lang: lang}
}

// Validate reports whether the term is acceptable as input to a pattern.
// Empty values are rejected for every kind.
func (t Term) Validate() error {
	if t.Value == "" {
		return fmt.Errorf("%w: empty %s value", ErrMalformedTerm, t.Kind)
	}
	return t.CheckSyntax()
}

// CheckSyntax reports whether the term can be rendered. Unlike Validate it
// accepts the empty literal, which is valid RDF and may come back from a store.
func (t Term) CheckSyntax() error {
	if t.Value == "" && t.Kind != KindLiteral {
		return fmt.Errorf("%w: empty %s value", ErrMalformedTerm, t.Kind)
	}
	if t.Lang != "" && t.Kind != KindLiteral {
		return fmt.Errorf("%w: language tag on %s term %q", ErrMalformedTerm, t.Kind, t.Value)
	}

	switch t.Kind {
	case KindURI:
		if strings.ContainsAny(t.Value, "<>\"{}|^`\\") || strings.IndexFunc(t.Value, isSpaceOrControl) >= 0 {
			return fmt.Errorf("%w: illegal character in IRI %q", ErrMalformedTerm, t.Value)
		}
	case KindPrefixed:
		if t.Value == "a" {
			return nil
		}
		if !prefixedPattern.MatchString(t.Value) || strings.HasSuffix(t.Value, ".") {
			return fmt.Errorf("%w: invalid prefixed name %q", ErrMalformedTerm, t.Value)
		}
	case KindPlaceholder:
		if !placeholderPattern.MatchString(t.Value) {
			return fmt.Errorf("%w: invalid placeholder name %q", ErrMalformedTerm, t.Value)
		}
	case KindLiteral:
		if t.Lang != "" && !langPattern.MatchString(t.Lang) {
			return fmt.Errorf("%w: invalid language tag %q", ErrMalformedTerm, t.Lang)
		}
	default:
		return fmt.Errorf("%w: unknown kind for value %q", ErrMalformedTerm, t.Value)
	}
	return nil
}

// Render serializes the term into SPARQL syntax.
func (t Term) Render() (string, error) {
	if err := t.CheckSyntax(); err != nil {
		return "", err
	}

	switch t.Kind {
	case KindURI:
		return quad.IRI(t.Value).String(), nil
	case KindPrefixed:
		return t.Value, nil
	case KindPlaceholder:
		return "?" + t.Value, nil
	default:
		if t.Lang != "" {
			return quad.LangString{Value: quad.String(t.Value), Lang: strings.ToLower(t.Lang)}.String(), nil
		}
		return quad.String(t.Value).String(), nil
	}
}

// String renders the term for log output. Invalid terms are shown with their kind.
func (t Term) String() string {
	text, err := t.Render()
	if err != nil {
		return fmt.Sprintf("%s(%q)", t.Kind, t.Value)
	}
	return text
}

// Equal compares kind, value and language. Language tags are case-insensitive.
func (t Term) Equal(other Term) bool {
	return t.Kind == other.Kind &&
		t.Value == other.Value &&
		strings.EqualFold(t.Lang, other.Lang)
}

// Prefix returns the prefix of a prefixed name, without the colon.
func (t Term) Prefix() (string, bool) {
	if t.Kind != KindPrefixed {
		return "", false
	}
	i := strings.Index(t.Value, ":")
	if i < 0 {
		return "", false
	}
	return t.Value[:i], true
}

// IsBlank reports whether the term is a blank node label (_:id).
func (t Term) IsBlank() bool {
	return t.Kind == KindPrefixed && strings.HasPrefix(t.Value, "_:")
}

// FromBinding converts one value of a SPARQL JSON result binding into a Term.
// Empty literals are kept. Blank node labels are rewritten into the _:label
// form, since stores label them freely (Virtuoso uses nodeID://b1).
func FromBinding(typ, value, lang string) (Term, error) {
	var t Term
	switch typ {
	case "uri":
		t = URI(value)
	case "literal", "typed-literal":
		t = LangLiteral(value, lang)
	case "bnode":
		t = Prefixed("_:" + blankLabel(value))
	default:
		return Term{}, fmt.Errorf("%w: unknown binding type %q", ErrMalformedTerm, typ)
	}
	if err := t.CheckSyntax(); err != nil {
		return Term{}, err
	}
	return t, nil
}

func blankLabel(value string) string {
	label := blankLabelPattern.ReplaceAllString(value, "_")
	if label == "" || label[0] == '-' {
		return "b" + label
	}
	return label
}

func isSpaceOrControl(r rune) bool {
	return r <= 0x20 || r == 0x7f
}
