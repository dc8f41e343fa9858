// Package query selects dividend events by equality criteria and by the
// drill-down coordinates of a pivot cell.
package query

import (
	"errors"
	"html"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"divs/internal/core"
)

// Field is a filterable attribute of a dividend event.
type Field int

const (
	Payer Field = iota
	Holder
	Custodian
	AccountClass
	Projected
)

// Fields lists every filterable field in sidebar order.
var Fields = []Field{Projected, AccountClass, Holder, Custodian, Payer}

var fieldParams = map[Field]string{
	Payer:        "company",
	Holder:       "person",
	Custodian:    "broker",
	AccountClass: "accountType",
	Projected:    "isProjected",
}

var getters = map[Field]func(core.DividendEvent) string{
	Payer:        func(e core.DividendEvent) string { return e.Payer },
	Holder:       func(e core.DividendEvent) string { return e.Holder },
	Custodian:    func(e core.DividendEvent) string { return e.Custodian },
	AccountClass: func(e core.DividendEvent) string { return e.AccountClass.String() },
	Projected: func(e core.DividendEvent) string {
		if e.Projected {
			return "1"
		}
		return "0"
	},
}

var (
	ErrUnknownField = errors.New("unknown filter field")
	errProjected    = errors.New("expected 0 or 1")
)

// Param returns the request parameter and record column name of f.
func (f Field) Param() string {
	return fieldParams[f]
}

func (f Field) String() string {
	if p, ok := fieldParams[f]; ok {
		return p
	}
	return "field(" + strconv.Itoa(int(f)) + ")"
}

// Value returns the attribute of e selected by f, or "" for an unknown field.
func (f Field) Value(e core.DividendEvent) string {
	get, ok := getters[f]
	if !ok {
		return ""
	}
	return get(e)
}

// ParseField resolves a parameter name to a Field.
func ParseField(name string) (Field, error) {
	for f, p := range fieldParams {
		if p == name {
			return f, nil
		}
	}
	return 0, &core.ValidationError{Field: "filter", Value: name, Err: ErrUnknownField}
}

// Criteria are AND-composed equality constraints.
type Criteria map[Field]string

// Set validates value for f and stores it.
func (c Criteria) Set(f Field, value string) error {
	if err := validate(f, value); err != nil {
		return err
	}
	c[f] = value
	return nil
}

// Validate checks every criterion the way Set does.
func (c Criteria) Validate() error {
	for _, f := range c.Keys() {
		if err := validate(f, c[f]); err != nil {
			return err
		}
	}
	return nil
}

func validate(f Field, value string) error {
	if _, ok := getters[f]; !ok {
		return &core.ValidationError{Field: "filter", Value: f.String(), Err: ErrUnknownField}
	}
	switch f {
	case AccountClass:
		if _, err := core.ParseAccountClass(value); err != nil {
			return err
		}
	case Projected:
		if value != "0" && value != "1" {
			return &core.ValidationError{Field: f.Param(), Value: value, Err: errProjected}
		}
	}
	return nil
}

// Clone returns a copy that can be modified independently.
func (c Criteria) Clone() Criteria {
	out := make(Criteria, len(c))
	for f, v := range c {
		out[f] = v
	}
	return out
}

// Matches reports whether e satisfies every criterion.
func (c Criteria) Matches(e core.DividendEvent) bool {
	for f, v := range c {
		if f.Value(e) != v {
			return false
		}
	}
	return true
}

// Encode adds the criteria to v as request parameters.
func (c Criteria) Encode(v url.Values) {
	for f, val := range c {
		v.Set(f.Param(), val)
	}
}

// Keys returns the constrained fields in a stable order.
func (c Criteria) Keys() []Field {
	keys := make([]Field, 0, len(c))
	for f := range c {
		keys = append(keys, f)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Filter returns the events matching c, in input order. Invalid criteria
// fail with a ValidationError.
func Filter(events []core.DividendEvent, c Criteria) ([]core.DividendEvent, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if len(c) == 0 {
		return events, nil
	}
	out := make([]core.DividendEvent, 0, len(events))
	for _, e := range events {
		if c.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

var strict = bluemonday.StrictPolicy()

// clean strips markup from a request value. Entities the policy escapes are
// decoded again so names such as "M&G" survive.
func clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// FromValues builds criteria from request parameters. Empty values mean
// no constraint.
func FromValues(v url.Values) (Criteria, error) {
	c := Criteria{}
	for _, f := range Fields {
		val := clean(v.Get(f.Param()))
		if val == "" {
			continue
		}
		if err := c.Set(f, val); err != nil {
			return nil, err
		}
	}
	return c, nil
}
