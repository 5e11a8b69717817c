// Package seed loads fixture accounts and resources from YAML and writes
// them to a triple store. Entries that already exist are skipped, so a
// fixture file can be applied repeatedly.
//
// Example fixture file:
//
//	users:
//	  - username: admin
//	    password: changeme123
//	    name: Administrator
//	resources:
//	  - label: Solar Panel
//	    description: A photovoltaic module
//	    lang: en
//	  - category: "skmf:Resource"
//	    label: Inverter
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"skmf.evalgo.org/auth"
	"skmf.evalgo.org/common"
	"skmf.evalgo.org/rdf"
	"skmf.evalgo.org/resource"
)

// UserFixture describes one account. Active defaults to true.
type UserFixture struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Active   *bool  `yaml:"active"`
}

// ResourceFixture describes one labeled resource. An empty category
// means skmf:Resource.
type ResourceFixture struct {
	Category    string `yaml:"category"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
	Lang        string `yaml:"lang"`
}

// File is the root of a fixture document.
type File struct {
	Users     []UserFixture     `yaml:"users"`
	Resources []ResourceFixture `yaml:"resources"`
}

// Report counts what Apply did.
type Report struct {
	UsersCreated     int `json:"users_created"`
	UsersSkipped     int `json:"users_skipped"`
	ResourcesCreated int `json:"resources_created"`
	ResourcesSkipped int `json:"resources_skipped"`
}

// Registrar creates accounts with hashed passwords.
type Registrar interface {
	Register(ctx context.Context, username, password, name string) (*resource.User, error)
}

var _ Registrar = (*auth.Service)(nil)

// Load reads a fixture file from path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return Parse(data)
}

// Parse decodes a fixture document. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks required fields before anything is written.
func (f *File) Validate() error {
	seen := map[string]bool{}
	for i, u := range f.Users {
		if u.Username == "" {
			return fmt.Errorf("users[%d]: username is required", i)
		}
		if u.Password == "" {
			return fmt.Errorf("users[%d]: password is required", i)
		}
		if seen[u.Username] {
			return fmt.Errorf("users[%d]: duplicate username %q", i, u.Username)
		}
		seen[u.Username] = true
	}
	for i, r := range f.Resources {
		if r.Label == "" {
			return fmt.Errorf("resources[%d]: label is required", i)
		}
		if _, err := r.category(); err != nil {
			return fmt.Errorf("resources[%d]: %w", i, err)
		}
	}
	return nil
}

func (r ResourceFixture) category() (rdf.Term, error) {
	if r.Category == "" {
		return resource.CategoryResource, nil
	}
	return rdf.ParseTerm(r.Category)
}

// Apply writes the fixtures. Users go through registrar so passwords are
// hashed and policy checked; resources are added to the default graph of
// store. The first error other than an existing entry stops the run.
func Apply(ctx context.Context, f *File, registrar Registrar, store resource.Store) (*Report, error) {
	logger := common.ServiceLogger("seed").WithContext(ctx)
	report := &Report{}

	for _, u := range f.Users {
		user, err := registrar.Register(ctx, u.Username, u.Password, u.Name)
		switch {
		case errors.Is(err, auth.ErrUserExists):
			logger.WithField("username", u.Username).Debug("user exists, skipping")
			report.UsersSkipped++
			continue
		case err != nil:
			return report, fmt.Errorf("user %s: %w", u.Username, err)
		}
		if u.Active != nil && !*u.Active {
			if err := user.Deactivate(ctx); err != nil {
				return report, fmt.Errorf("user %s: %w", u.Username, err)
			}
		}
		report.UsersCreated++
	}

	q := resource.NewQuery(store)
	for _, r := range f.Resources {
		category, err := r.category()
		if err != nil {
			return report, err
		}
		_, err = q.AddResource(ctx, category, r.Label, r.Description, r.Lang)
		switch {
		case errors.Is(err, resource.ErrResourceExists):
			logger.WithField("label", r.Label).Debug("resource exists, skipping")
			report.ResourcesSkipped++
		case err != nil:
			return report, fmt.Errorf("resource %s: %w", r.Label, err)
		default:
			report.ResourcesCreated++
		}
	}

	logger.WithFields(map[string]interface{}{
		"users_created":     report.UsersCreated,
		"resources_created": report.ResourcesCreated,
	}).Info("fixtures applied")
	return report, nil
}
