package resource

import (
	"fmt"
	"io"
	"strings"

	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/nquads"
	"github.com/cayleygraph/quad/voc"

	"skmf.evalgo.org/rdf"
)

// QuadValue converts a bound term into a quad value, expanding prefixed names.
func QuadValue(prefixes *voc.Namespaces, t rdf.Term) (quad.Value, error) {
	if err := t.CheckSyntax(); err != nil {
		return nil, err
	}
	switch t.Kind {
	case rdf.KindURI:
		return quad.IRI(t.Value), nil
	case rdf.KindPrefixed:
		if t.IsBlank() {
			return quad.BNode(strings.TrimPrefix(t.Value, "_:")), nil
		}
		iri, ok := rdf.Expand(prefixes, t.Value)
		if !ok {
			return nil, fmt.Errorf("%w: undeclared prefix in %q", rdf.ErrMalformedTerm, t.Value)
		}
		return quad.IRI(iri), nil
	case rdf.KindLiteral:
		if t.Lang != "" {
			return quad.LangString{Value: quad.String(t.Value), Lang: strings.ToLower(t.Lang)}, nil
		}
		return quad.String(t.Value), nil
	default:
		return nil, fmt.Errorf("%w: %s cannot be exported", rdf.ErrMalformedTerm, t)
	}
}

// Quads converts the subject's cached statements. A non-empty graphIRI is
// set as the label of every quad.
func (s *Subject) Quads(prefixes *voc.Namespaces, graphIRI string) ([]quad.Quad, error) {
	var label quad.Value
	if graphIRI != "" {
		label = quad.IRI(graphIRI)
	}

	subject, err := QuadValue(prefixes, s.ID)
	if err != nil {
		return nil, err
	}

	var quads []quad.Quad
	for _, e := range s.Preds.Entries() {
		pred, err := QuadValue(prefixes, e.Predicate)
		if err != nil {
			return nil, err
		}
		for _, o := range e.Objects {
			obj, err := QuadValue(prefixes, o)
			if err != nil {
				return nil, err
			}
			quads = append(quads, quad.Quad{Subject: subject, Predicate: pred, Object: obj, Label: label})
		}
	}
	return quads, nil
}

// WriteNQuads serializes the subject's cached statements as N-Quads.
func WriteNQuads(w io.Writer, s *Subject, prefixes *voc.Namespaces, graphIRI string) (int, error) {
	quads, err := s.Quads(prefixes, graphIRI)
	if err != nil {
		return 0, err
	}

	qw := nquads.NewWriter(w)
	for i, q := range quads {
		if err := qw.WriteQuad(q); err != nil {
			return i, fmt.Errorf("error writing quad: %w", err)
		}
	}
	if err := qw.Close(); err != nil {
		return len(quads), err
	}
	return len(quads), nil
}
