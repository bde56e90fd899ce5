// Package fixture seeds a record store from YAML files and checks the
// result.
//
// A fixture lists records to create, in order, and optional expectations
// evaluated through Find afterwards:
//
//	name: blog
//	description: one post with two comments
//	records:
//	  - type: comment
//	    attributes: {id: 1, text: x}
//	  - type: comment
//	    attributes: {id: 2, text: y}
//	  - type: post
//	    attributes: {id: 1, title: A, comments: [1, 2]}
//	expect:
//	  - type: post
//	    id: "1"
//	    attributes: {title: A}
//	    embedded: {comments: 2}
package fixture

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/relstore/internal/ir"
	"github.com/roach88/relstore/internal/records"
)

// Fixture is a parsed fixture file.
type Fixture struct {
	// Name identifies the fixture in logs and output.
	Name string `yaml:"name"`

	// Description says what the fixture sets up.
	Description string `yaml:"description,omitempty"`

	// Records are created in order through CreateRecord.
	Records []Seed `yaml:"records"`

	// Expect is checked by Verify after the records are created.
	Expect []Expectation `yaml:"expect,omitempty"`
}

// Seed is one record to create.
type Seed struct {
	// Type is the record type name.
	Type string `yaml:"type"`

	// Attributes are converted to ir values; floats are rejected.
	Attributes map[string]any `yaml:"attributes"`
}

// Expectation checks one stored record.
type Expectation struct {
	Type string `yaml:"type"`
	ID   string `yaml:"id"`

	// Attributes is a subset match against the found record.
	Attributes map[string]any `yaml:"attributes,omitempty"`

	// Embedded maps relationship names to the number of embedded records.
	// 0 means the relationship must not be embedded.
	Embedded map[string]int `yaml:"embedded,omitempty"`

	// Missing expects Find to fail with records.ErrNotFound.
	Missing bool `yaml:"missing,omitempty"`
}

// Load reads and parses a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return Parse(data)
}

// Parse parses fixture YAML. Unknown fields are rejected.
func Parse(data []byte) (*Fixture, error) {
	var fx Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&fx); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validate(&fx); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	return &fx, nil
}

func validate(fx *Fixture) error {
	if fx.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(fx.Records) == 0 {
		return fmt.Errorf("records list is required and must be non-empty")
	}
	for i, seed := range fx.Records {
		if seed.Type == "" {
			return fmt.Errorf("records[%d]: type is required", i)
		}
		if seed.Attributes == nil {
			return fmt.Errorf("records[%d]: attributes is required (use empty map if none)", i)
		}
		if _, err := seed.attributes(); err != nil {
			return fmt.Errorf("records[%d]: %w", i, err)
		}
	}
	for i, exp := range fx.Expect {
		if exp.Type == "" || exp.ID == "" {
			return fmt.Errorf("expect[%d]: type and id are required", i)
		}
		if exp.Missing && (exp.Attributes != nil || exp.Embedded != nil) {
			return fmt.Errorf("expect[%d]: missing cannot be combined with attributes or embedded", i)
		}
	}
	return nil
}

func (s Seed) attributes() (records.Attributes, error) {
	v, err := ir.FromGo(s.Attributes)
	if err != nil {
		return nil, err
	}
	return records.Attributes(v.(ir.IRObject)), nil
}

// Store is the part of records.Store fixtures need.
type Store interface {
	CreateRecord(ctx context.Context, typeName string, rec records.Record) (ir.IRObject, error)
	Find(ctx context.Context, typeName, id string) (ir.IRObject, error)
	GenerateID() string
}

var _ Store = (*records.Store)(nil)

// Created identifies a record created by Apply.
type Created struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Apply creates the fixture's records in order. Records without an id get
// one from store.GenerateID. It stops at the first failure and returns the
// records created so far.
func Apply(ctx context.Context, store Store, fx *Fixture) ([]Created, error) {
	created := make([]Created, 0, len(fx.Records))
	for i, seed := range fx.Records {
		attrs, err := seed.attributes()
		if err != nil {
			return created, fmt.Errorf("records[%d]: %w", i, err)
		}
		if attrs.ID() == nil {
			attrs = attrs.WithID(ir.IRString(store.GenerateID()))
		}

		stored, err := store.CreateRecord(ctx, seed.Type, attrs)
		if err != nil {
			return created, fmt.Errorf("records[%d]: %w", i, err)
		}
		_, key, _ := stored.ID()
		created = append(created, Created{Type: seed.Type, ID: key})
	}
	return created, nil
}
