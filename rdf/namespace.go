package rdf

import (
	"sort"
	"strings"

	"github.com/cayleygraph/quad/voc"
	vocrdf "github.com/cayleygraph/quad/voc/rdf"
	"github.com/cayleygraph/quad/voc/rdfs"
	"github.com/cayleygraph/quad/voc/xsd"
)

// Vocabulary used by the resource layer.
const (
	FOAFNS     = "http://xmlns.com/foaf/0.1/"
	FOAFPrefix = "foaf:"

	RDFType      = vocrdf.Type
	RDFProperty  = vocrdf.Property
	RDFSLabel    = rdfs.Label
	RDFSComment  = rdfs.Comment
	RDFSClass    = rdfs.Class
	LocalPrefix  = "skmf:"
	TypeKeyword  = "a"
	blankPrefix  = "_"
	prefixSuffix = ":"
)

// NewNamespaces returns the prefix registry every statement is rendered with:
// xsd, rdf, rdfs, foaf and skmf, the latter bound to base + "#".
func NewNamespaces(base string) *voc.Namespaces {
	ns := &voc.Namespaces{}
	ns.Register(voc.Namespace{Full: xsd.NS, Prefix: xsd.Prefix})
	ns.Register(voc.Namespace{Full: vocrdf.NS, Prefix: vocrdf.Prefix})
	ns.Register(voc.Namespace{Full: rdfs.NS, Prefix: rdfs.Prefix})
	ns.Register(voc.Namespace{Full: FOAFNS, Prefix: FOAFPrefix})
	ns.Register(voc.Namespace{Full: base + "#", Prefix: LocalPrefix})
	return ns
}

func sortedNamespaces(ns *voc.Namespaces) []voc.Namespace {
	if ns == nil {
		return nil
	}
	list := ns.List()
	sort.Slice(list, func(i, j int) bool { return list[i].Prefix < list[j].Prefix })
	return list
}

// Prologue renders one PREFIX declaration per registered namespace, sorted by prefix.
func Prologue(ns *voc.Namespaces) string {
	var b strings.Builder
	for _, n := range sortedNamespaces(ns) {
		b.WriteString("PREFIX ")
		b.WriteString(n.Prefix)
		b.WriteString(" <")
		b.WriteString(n.Full)
		b.WriteString(">\n")
	}
	return b.String()
}

// HasPrefix reports whether a prefixed term can be resolved against ns.
// The rdf:type keyword and blank node labels need no declaration.
func HasPrefix(ns *voc.Namespaces, t Term) bool {
	if t.Kind != KindPrefixed {
		return true
	}
	if t.Value == TypeKeyword {
		return true
	}
	prefix, ok := t.Prefix()
	if !ok {
		return false
	}
	if prefix == blankPrefix {
		return true
	}
	for _, n := range sortedNamespaces(ns) {
		if n.Prefix == prefix+prefixSuffix {
			return true
		}
	}
	return false
}

// Expand resolves a prefixed name to its full IRI.
func Expand(ns *voc.Namespaces, curie string) (string, bool) {
	if curie == TypeKeyword {
		return vocrdf.NS + "type", true
	}
	for _, n := range sortedNamespaces(ns) {
		if strings.HasPrefix(curie, n.Prefix) {
			return n.Full + strings.TrimPrefix(curie, n.Prefix), true
		}
	}
	return "", false
}

// Shorten rewrites a full IRI into a prefixed name when a namespace matches.
func Shorten(ns *voc.Namespaces, iri string) (string, bool) {
	best := voc.Namespace{}
	for _, n := range sortedNamespaces(ns) {
		if strings.HasPrefix(iri, n.Full) && len(n.Full) > len(best.Full) {
			best = n
		}
	}
	if best.Full == "" {
		return "", false
	}
	return best.Prefix + strings.TrimPrefix(iri, best.Full), true
}

// Resolve returns the absolute IRI a non-literal term refers to.
func Resolve(ns *voc.Namespaces, t Term) (string, bool) {
	switch t.Kind {
	case KindURI:
		return t.Value, true
	case KindPrefixed:
		if t.IsBlank() {
			return "", false
		}
		return Expand(ns, t.Value)
	}
	return "", false
}
