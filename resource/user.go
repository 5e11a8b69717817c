package resource

import (
	"context"
	"fmt"

	"skmf.evalgo.org/rdf"
)

// UsersGraph is the named graph user accounts are stored in.
const UsersGraph = "users"

const inactiveValue = "0"

// User is a Subject describing an account. It carries the activation flag,
// the password hash and an optional display name. The hash is stored
// as an opaque literal and never computed here.
type User struct {
	*Subject

	Username string

	// Authenticated is session state and is never written to the store.
	Authenticated bool
}

// ActiveKey is the predicate holding the activation flag.
func ActiveKey(namespace string) rdf.Term {
	return rdf.URI(namespace + "#active")
}

// HashKey is the predicate holding the password hash.
func HashKey(namespace string) rdf.Term {
	return rdf.URI(namespace + "#hashpass")
}

// NameKey is the predicate holding the display name.
func NameKey() rdf.Term {
	return rdf.URI(rdf.FOAFNS + "name")
}

// UserClass is the rdf:type given to accounts.
var UserClass = rdf.Prefixed(rdf.LocalPrefix + "User")

// UserID returns the subject id of username.
func UserID(username string) (rdf.Term, error) {
	id := rdf.Prefixed(rdf.LocalPrefix + username)
	if username == "" {
		return id, fmt.Errorf("%w: empty username", rdf.ErrMalformedTerm)
	}
	if err := id.Validate(); err != nil {
		return id, err
	}
	return id, nil
}

// NewUser builds a user without contacting the store.
func NewUser(store Store, username string, preds *rdf.Predicates) (*User, error) {
	id, err := UserID(username)
	if err != nil {
		return nil, err
	}
	return &User{
		Subject:  NewSubject(store, id, []string{UsersGraph}, preds),
		Username: username,
	}, nil
}

// LoadUser fetches username from the store. It returns nil without an error
// when the account lacks the activation flag or the password hash, since
// such a subject is not a registered user.
func LoadUser(ctx context.Context, store Store, username string) (*User, error) {
	u, err := NewUser(store, username, nil)
	if err != nil {
		return nil, err
	}
	if err := u.Load(ctx); err != nil {
		return nil, err
	}
	if !u.Valid() {
		return nil, nil
	}
	return u, nil
}

// CreateUser stores a new active account. An existing registered user with
// the same name is left untouched and ErrResourceExists is returned.
func CreateUser(ctx context.Context, store Store, username string, hash []byte, name string) (*User, error) {
	existing, err := LoadUser(ctx, store, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("user %s: %w", username, ErrResourceExists)
	}
	if len(hash) == 0 {
		return nil, fmt.Errorf("%w: empty password hash", rdf.ErrMalformedTerm)
	}

	u, err := NewUser(store, username, nil)
	if err != nil {
		return nil, err
	}

	ns := store.Namespace()
	preds := rdf.NewPredicates()
	if _, err := preds.Add(rdf.Prefixed(rdf.TypeKeyword), UserClass); err != nil {
		return nil, err
	}
	if _, err := preds.Add(ActiveKey(ns), rdf.Literal("1")); err != nil {
		return nil, err
	}
	if _, err := preds.Add(HashKey(ns), rdf.Literal(string(hash))); err != nil {
		return nil, err
	}
	if name != "" {
		if _, err := preds.Add(NameKey(), rdf.Literal(name)); err != nil {
			return nil, err
		}
	}

	if _, _, err := u.AddData(ctx, []string{UsersGraph}, preds); err != nil {
		return nil, err
	}
	return u, nil
}

// Valid reports whether both required predicates are present.
func (u *User) Valid() bool {
	return u.Preds.Has(ActiveKey(u.namespace())) && u.Preds.Has(HashKey(u.namespace()))
}

// IsActive reports whether the activation flag is set to anything but "0".
func (u *User) IsActive() bool {
	v, ok := u.Preds.First(ActiveKey(u.namespace()))
	return ok && v.Value != inactiveValue
}

// Hash returns the stored password hash.
func (u *User) Hash() []byte {
	v, ok := u.Preds.First(HashKey(u.namespace()))
	if !ok {
		return nil
	}
	return []byte(v.Value)
}

// Name returns the display name, falling back to the username.
func (u *User) Name() string {
	if v, ok := u.Preds.First(NameKey()); ok && v.Value != "" {
		return v.Value
	}
	return u.Username
}

// SetActive marks the account active when no activation flag is stored.
func (u *User) SetActive(ctx context.Context) error {
	key := ActiveKey(u.namespace())
	if u.Preds.Has(key) {
		return nil
	}
	preds := rdf.NewPredicates()
	if _, err := preds.Add(key, rdf.Literal("1")); err != nil {
		return err
	}
	_, _, err := u.AddData(ctx, []string{UsersGraph}, preds)
	return err
}

// Deactivate disables the account. Its hash and name are kept.
func (u *User) Deactivate(ctx context.Context) error {
	if u.Preds.Has(ActiveKey(u.namespace())) && !u.IsActive() {
		return nil
	}
	_, err := u.replace(ctx, ActiveKey(u.namespace()), rdf.Literal(inactiveValue))
	return err
}

// SetHash replaces the stored password hash. The old value is deleted before
// the new one is inserted; the two statements are not atomic. When the insert
// fails after the delete succeeded a *HashReplaceError is returned and the
// account has no hash in the store.
func (u *User) SetHash(ctx context.Context, hash []byte) error {
	if len(hash) == 0 {
		return fmt.Errorf("%w: empty password hash", rdf.ErrMalformedTerm)
	}
	removed, err := u.replace(ctx, HashKey(u.namespace()), rdf.Literal(string(hash)))
	if err != nil && removed {
		return &HashReplaceError{Username: u.Username, Err: err}
	}
	return err
}

// SetName replaces the display name. An empty name removes it.
func (u *User) SetName(ctx context.Context, name string) error {
	if name == "" {
		_, err := u.drop(ctx, NameKey())
		return err
	}
	_, err := u.replace(ctx, NameKey(), rdf.Literal(name))
	return err
}

// replace deletes every object of key and then inserts value. It reports
// whether the delete had taken effect when an error is returned.
func (u *User) replace(ctx context.Context, key, value rdf.Term) (bool, error) {
	if err := value.Validate(); err != nil {
		return false, err
	}
	removed, err := u.drop(ctx, key)
	if err != nil {
		return false, err
	}

	preds := rdf.NewPredicates()
	if _, err := preds.Add(key, value); err != nil {
		return removed, err
	}
	if _, _, err := u.AddData(ctx, []string{UsersGraph}, preds); err != nil {
		return removed, err
	}
	return removed, nil
}

func (u *User) drop(ctx context.Context, key rdf.Term) (bool, error) {
	objects := u.Preds.Objects(key)
	if len(objects) == 0 {
		return false, nil
	}
	old := rdf.NewPredicates()
	if _, err := old.Record(key, objects...); err != nil {
		return false, err
	}
	_, removed, err := u.RemoveData(ctx, []string{UsersGraph}, old)
	if err != nil {
		return false, err
	}
	return !removed.IsEmpty(), nil
}
