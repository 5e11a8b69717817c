// Package sparql renders triple patterns into SPARQL statements and runs them
// against an endpoint. Only the fragment this system needs is produced:
// SELECT DISTINCT with FROM and OPTIONAL, INSERT DATA and DELETE DATA.
package sparql

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cayleygraph/quad/voc"

	"skmf.evalgo.org/rdf"
)

// Action selects the update statement kind.
type Action int

const (
	Insert Action = iota
	Delete
)

func (a Action) String() string {
	switch a {
	case Insert:
		return "INSERT"
	case Delete:
		return "DELETE"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

const indent = "  "

// Formatter renders statements for one namespace and prefix registry.
// It holds no mutable state and is safe for concurrent use.
type Formatter struct {
	Namespace string
	Prefixes  *voc.Namespaces
}

// NewFormatter returns a formatter. A nil registry means the default one for namespace.
func NewFormatter(namespace string, prefixes *voc.Namespaces) *Formatter {
	if prefixes == nil {
		prefixes = rdf.NewNamespaces(namespace)
	}
	return &Formatter{Namespace: namespace, Prefixes: prefixes}
}

// GraphURI maps a short graph name to its IRI. The empty name is the default graph.
func (f *Formatter) GraphURI(name string) string {
	if name == "" {
		return f.Namespace
	}
	return f.Namespace + "/" + name
}

// FormatSelect renders a SELECT DISTINCT statement. Labels are emitted sorted;
// graphs are emitted in the order given.
func (f *Formatter) FormatSelect(graphs, labels []string, pattern *rdf.Pattern, optionals []*rdf.Pattern) (string, error) {
	body, err := f.renderBlocks(pattern, true)
	if err != nil {
		return "", err
	}

	var opts []string
	for _, opt := range optionals {
		if opt.IsEmpty() {
			continue
		}
		lines, err := f.renderBlocks(opt, true)
		if err != nil {
			return "", err
		}
		opts = append(opts, "OPTIONAL { "+strings.Join(lines, " ")+" }")
	}

	header := "*"
	if len(labels) > 0 {
		sorted := append([]string(nil), labels...)
		sort.Strings(sorted)
		vars := make([]string, 0, len(sorted))
		for _, l := range sorted {
			v, err := rdf.Placeholder(l).Render()
			if err != nil {
				return "", err
			}
			vars = append(vars, v)
		}
		header = strings.Join(vars, " ")
	}

	var b strings.Builder
	b.WriteString(rdf.Prologue(f.Prefixes))
	b.WriteString("SELECT DISTINCT ")
	b.WriteString(header)
	b.WriteString("\n")
	for _, g := range graphs {
		b.WriteString("FROM <")
		b.WriteString(f.GraphURI(g))
		b.WriteString(">\n")
	}
	b.WriteString("WHERE {\n")
	for _, line := range append(body, opts...) {
		b.WriteString(indent)
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String(), nil
}

// FormatUpdate renders an INSERT DATA or DELETE DATA statement targeting one graph.
// Placeholders are not allowed in data blocks and an empty pattern is rejected.
func (f *Formatter) FormatUpdate(action Action, graph string, pattern *rdf.Pattern) (string, error) {
	if action != Insert && action != Delete {
		return "", fmt.Errorf("unknown update action %v", action)
	}
	if pattern.IsEmpty() {
		return "", fmt.Errorf("%w: %s DATA without triples", rdf.ErrMalformedPattern, action)
	}

	body, err := f.renderBlocks(pattern, false)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(rdf.Prologue(f.Prefixes))
	b.WriteString(action.String())
	b.WriteString(" DATA {\n")
	b.WriteString(indent + "GRAPH <" + f.GraphURI(graph) + "> {\n")
	for _, line := range body {
		b.WriteString(indent + indent)
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(indent + "}\n")
	b.WriteString("}")
	return b.String(), nil
}

// renderBlocks renders one "s p o1 , o2 ; p2 o3 ." line per subject.
func (f *Formatter) renderBlocks(pattern *rdf.Pattern, placeholders bool) ([]string, error) {
	if err := pattern.Validate(); err != nil {
		return nil, err
	}

	var lines []string
	for _, s := range pattern.Entries() {
		subject, err := f.renderTerm(s.Subject, placeholders)
		if err != nil {
			return nil, err
		}

		var preds []string
		for _, e := range s.Predicates.Entries() {
			pred, err := f.renderTerm(e.Predicate, placeholders)
			if err != nil {
				return nil, err
			}
			objs := make([]string, 0, len(e.Objects))
			for _, o := range e.Objects {
				obj, err := f.renderTerm(o, placeholders)
				if err != nil {
					return nil, err
				}
				objs = append(objs, obj)
			}
			preds = append(preds, pred+" "+strings.Join(objs, " , "))
		}
		lines = append(lines, subject+" "+strings.Join(preds, " ; ")+" .")
	}
	return lines, nil
}

func (f *Formatter) renderTerm(t rdf.Term, placeholders bool) (string, error) {
	if t.Kind == rdf.KindPlaceholder && !placeholders {
		return "", fmt.Errorf("%w: placeholder %s in data block", rdf.ErrMalformedPattern, t)
	}
	if !rdf.HasPrefix(f.Prefixes, t) {
		return "", fmt.Errorf("%w: undeclared prefix in %q", rdf.ErrMalformedTerm, t.Value)
	}
	return t.Render()
}

// SortedGraphs returns the graph names of a set in lexical order.
func SortedGraphs(set map[string]struct{}) []string {
	return sortedKeys(set)
}

// SortedLabels returns the label names of a set in lexical order.
func SortedLabels(set map[string]struct{}) []string {
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
