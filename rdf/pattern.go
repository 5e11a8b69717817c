package rdf

import "fmt"

// Triple is a single (subject, predicate, object) statement or pattern.
type Triple struct {
	Subject   Term `json:"subject" yaml:"subject"`
	Predicate Term `json:"predicate" yaml:"predicate"`
	Object    Term `json:"object" yaml:"object"`
}

// PredicateEntry is one predicate and the objects recorded for it.
type PredicateEntry struct {
	Predicate Term   `json:"predicate"`
	Objects   []Term `json:"objects"`
}

// Predicates is an ordered set of predicates, each holding a set of objects.
// Entries never hold an empty object list.
type Predicates struct {
	entries []*PredicateEntry
}

// NewPredicates returns an empty predicate set.
func NewPredicates() *Predicates {
	return &Predicates{}
}

func checkNode(t Term, position string) error {
	if err := t.CheckSyntax(); err != nil {
		return err
	}
	if t.Kind == KindLiteral {
		return fmt.Errorf("%w: literal %s %s", ErrMalformedPattern, position, t)
	}
	return nil
}

// checkObjects validates objects. Caller input is held to Validate, terms
// recorded from a store only to CheckSyntax.
func checkObjects(objects []Term, input bool) error {
	for _, o := range objects {
		check := o.CheckSyntax
		if input {
			check = o.Validate
		}
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func containsTerm(list []Term, t Term) bool {
	for _, item := range list {
		if item.Equal(t) {
			return true
		}
	}
	return false
}

func (p *Predicates) index(pred Term) int {
	if p == nil {
		return -1
	}
	for i, e := range p.entries {
		if e.Predicate.Equal(pred) {
			return i
		}
	}
	return -1
}

// Add records objects under pred and returns the ones that were not already present.
// Nothing is changed when any term is malformed or empty.
func (p *Predicates) Add(pred Term, objects ...Term) ([]Term, error) {
	return p.add(pred, objects, true)
}

// Record is Add for statements read back from a store: the empty literal is
// accepted.
func (p *Predicates) Record(pred Term, objects ...Term) ([]Term, error) {
	return p.add(pred, objects, false)
}

func (p *Predicates) add(pred Term, objects []Term, input bool) ([]Term, error) {
	if err := checkNode(pred, "predicate"); err != nil {
		return nil, err
	}
	if err := checkObjects(objects, input); err != nil {
		return nil, err
	}

	i := p.index(pred)
	entry := &PredicateEntry{Predicate: pred}
	if i >= 0 {
		entry = p.entries[i]
	}

	var added []Term
	for _, o := range objects {
		if containsTerm(entry.Objects, o) {
			continue
		}
		entry.Objects = append(entry.Objects, o)
		added = append(added, o)
	}

	if i < 0 && len(entry.Objects) > 0 {
		p.entries = append(p.entries, entry)
	}
	return added, nil
}

// Remove drops objects from pred and returns the ones that were present.
// A predicate left without objects is removed.
func (p *Predicates) Remove(pred Term, objects ...Term) []Term {
	i := p.index(pred)
	if i < 0 {
		return nil
	}

	entry := p.entries[i]
	var removed []Term
	for _, o := range objects {
		for j, existing := range entry.Objects {
			if existing.Equal(o) {
				entry.Objects = append(entry.Objects[:j], entry.Objects[j+1:]...)
				removed = append(removed, existing)
				break
			}
		}
	}

	if len(entry.Objects) == 0 {
		p.entries = append(p.entries[:i], p.entries[i+1:]...)
	}
	return removed
}

// Merge adds every object of other and returns the subset that was new.
func (p *Predicates) Merge(other *Predicates) (*Predicates, error) {
	if err := other.Validate(); err != nil {
		return nil, err
	}

	added := NewPredicates()
	for _, e := range other.Entries() {
		objs, err := p.Record(e.Predicate, e.Objects...)
		if err != nil {
			return nil, err
		}
		if len(objs) > 0 {
			if _, err := added.Record(e.Predicate, objs...); err != nil {
				return nil, err
			}
		}
	}
	return added, nil
}

// Subtract removes every object of other and returns the subset that was present.
func (p *Predicates) Subtract(other *Predicates) *Predicates {
	removed := NewPredicates()
	for _, e := range other.Entries() {
		objs := p.Remove(e.Predicate, e.Objects...)
		if len(objs) > 0 {
			// objects came out of p, which only ever holds valid terms
			_, _ = removed.Record(e.Predicate, objs...)
		}
	}
	return removed
}

// Objects returns a copy of the objects recorded for pred.
func (p *Predicates) Objects(pred Term) []Term {
	i := p.index(pred)
	if i < 0 {
		return nil
	}
	return append([]Term(nil), p.entries[i].Objects...)
}

// First returns the first object recorded for pred.
func (p *Predicates) First(pred Term) (Term, bool) {
	i := p.index(pred)
	if i < 0 {
		return Term{}, false
	}
	return p.entries[i].Objects[0], true
}

// Has reports whether pred has at least one object.
func (p *Predicates) Has(pred Term) bool {
	return p.index(pred) >= 0
}

// Entries returns copies of the predicate entries in insertion order.
func (p *Predicates) Entries() []PredicateEntry {
	if p == nil {
		return nil
	}
	out := make([]PredicateEntry, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, PredicateEntry{
			Predicate: e.Predicate,
			Objects:   append([]Term(nil), e.Objects...),
		})
	}
	return out
}

// Len returns the number of predicates.
func (p *Predicates) Len() int {
	if p == nil {
		return 0
	}
	return len(p.entries)
}

// IsEmpty reports whether no predicate is recorded.
func (p *Predicates) IsEmpty() bool {
	return p.Len() == 0
}

// Clone returns a deep copy.
func (p *Predicates) Clone() *Predicates {
	c := NewPredicates()
	for _, e := range p.Entries() {
		entry := e
		c.entries = append(c.entries, &entry)
	}
	return c
}

// Validate checks that every predicate and object can be rendered.
func (p *Predicates) Validate() error {
	if p == nil {
		return nil
	}
	for _, e := range p.entries {
		if err := checkNode(e.Predicate, "predicate"); err != nil {
			return err
		}
		if len(e.Objects) == 0 {
			return fmt.Errorf("%w: predicate %s has no objects", ErrMalformedPattern, e.Predicate)
		}
		if err := checkObjects(e.Objects, false); err != nil {
			return err
		}
	}
	return nil
}

// SubjectEntry is one subject and its predicates.
type SubjectEntry struct {
	Subject    Term
	Predicates *Predicates
}

// Pattern maps subjects to predicates to objects, keeping insertion order so
// that rendering is deterministic.
type Pattern struct {
	entries []*SubjectEntry
}

// NewPattern returns an empty pattern.
func NewPattern() *Pattern {
	return &Pattern{}
}

// PatternOf builds a pattern from a list of triples.
func PatternOf(triples ...Triple) (*Pattern, error) {
	p := NewPattern()
	for _, t := range triples {
		if _, err := p.AddTriple(t.Subject, t.Predicate, t.Object); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Pattern) index(subject Term) int {
	if p == nil {
		return -1
	}
	for i, e := range p.entries {
		if e.Subject.Equal(subject) {
			return i
		}
	}
	return -1
}

// AddTriple adds one statement and reports whether it was new.
func (p *Pattern) AddTriple(subject, pred, object Term) (bool, error) {
	preds := NewPredicates()
	if _, err := preds.Add(pred, object); err != nil {
		return false, err
	}
	added, err := p.AddPredicates(subject, preds)
	if err != nil {
		return false, err
	}
	return !added.IsEmpty(), nil
}

// RemoveTriple removes one statement and reports whether it was present.
func (p *Pattern) RemoveTriple(subject, pred, object Term) bool {
	preds := NewPredicates()
	if _, err := preds.Record(pred, object); err != nil {
		return false
	}
	return !p.RemovePredicates(subject, preds).IsEmpty()
}

// AddPredicates merges preds under subject and returns what was new.
func (p *Pattern) AddPredicates(subject Term, preds *Predicates) (*Predicates, error) {
	if err := checkNode(subject, "subject"); err != nil {
		return nil, err
	}

	i := p.index(subject)
	entry := &SubjectEntry{Subject: subject, Predicates: NewPredicates()}
	if i >= 0 {
		entry = p.entries[i]
	}

	added, err := entry.Predicates.Merge(preds)
	if err != nil {
		return nil, err
	}
	if i < 0 && !entry.Predicates.IsEmpty() {
		p.entries = append(p.entries, entry)
	}
	return added, nil
}

// RemovePredicates removes preds from subject and returns what was present.
// A subject left without predicates is removed.
func (p *Pattern) RemovePredicates(subject Term, preds *Predicates) *Predicates {
	i := p.index(subject)
	if i < 0 {
		return NewPredicates()
	}

	entry := p.entries[i]
	removed := entry.Predicates.Subtract(preds)
	if entry.Predicates.IsEmpty() {
		p.entries = append(p.entries[:i], p.entries[i+1:]...)
	}
	return removed
}

// Merge adds every statement of other and returns the subset that was new.
func (p *Pattern) Merge(other *Pattern) (*Pattern, error) {
	if err := other.Validate(); err != nil {
		return nil, err
	}

	added := NewPattern()
	for _, e := range other.Entries() {
		preds, err := p.AddPredicates(e.Subject, e.Predicates)
		if err != nil {
			return nil, err
		}
		if !preds.IsEmpty() {
			if _, err := added.AddPredicates(e.Subject, preds); err != nil {
				return nil, err
			}
		}
	}
	return added, nil
}

// Subtract removes every statement of other and returns the subset that was present.
func (p *Pattern) Subtract(other *Pattern) *Pattern {
	removed := NewPattern()
	for _, e := range other.Entries() {
		preds := p.RemovePredicates(e.Subject, e.Predicates)
		if !preds.IsEmpty() {
			_, _ = removed.AddPredicates(e.Subject, preds)
		}
	}
	return removed
}

// Lookup returns a copy of the predicates recorded for subject.
func (p *Pattern) Lookup(subject Term) (*Predicates, bool) {
	i := p.index(subject)
	if i < 0 {
		return nil, false
	}
	return p.entries[i].Predicates.Clone(), true
}

// Entries returns deep copies of the subject entries in insertion order.
func (p *Pattern) Entries() []SubjectEntry {
	if p == nil {
		return nil
	}
	out := make([]SubjectEntry, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, SubjectEntry{Subject: e.Subject, Predicates: e.Predicates.Clone()})
	}
	return out
}

// Triples flattens the pattern into statements.
func (p *Pattern) Triples() []Triple {
	var out []Triple
	for _, s := range p.Entries() {
		for _, e := range s.Predicates.Entries() {
			for _, o := range e.Objects {
				out = append(out, Triple{Subject: s.Subject, Predicate: e.Predicate, Object: o})
			}
		}
	}
	return out
}

// Len returns the number of statements.
func (p *Pattern) Len() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, s := range p.entries {
		for _, e := range s.Predicates.entries {
			n += len(e.Objects)
		}
	}
	return n
}

// IsEmpty reports whether the pattern holds no statement.
func (p *Pattern) IsEmpty() bool {
	return p == nil || len(p.entries) == 0
}

// Clone returns a deep copy.
func (p *Pattern) Clone() *Pattern {
	c := NewPattern()
	for _, e := range p.Entries() {
		entry := e
		c.entries = append(c.entries, &entry)
	}
	return c
}

// Validate checks every subject, predicate and object.
func (p *Pattern) Validate() error {
	if p == nil {
		return nil
	}
	for _, e := range p.entries {
		if err := checkNode(e.Subject, "subject"); err != nil {
			return err
		}
		if e.Predicates.IsEmpty() {
			return fmt.Errorf("%w: subject %s has no predicates", ErrMalformedPattern, e.Subject)
		}
		if err := e.Predicates.Validate(); err != nil {
			return err
		}
	}
	return nil
}
