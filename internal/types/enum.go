package types

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// enumTable maps a closed set of enum values to their wire and storage word.
// The same word is used in JSON, URL path segments and database columns.
type enumTable[T comparable] struct {
	kind   string
	names  map[T]string
	values map[string]T
}

func newEnumTable[T comparable](kind string, names map[T]string) enumTable[T] {
	values := make(map[string]T, len(names))
	for v, name := range names {
		values[name] = v
	}
	return enumTable[T]{kind: kind, names: names, values: values}
}

func (t enumTable[T]) name(v T) string {
	if name, ok := t.names[v]; ok {
		return name
	}
	return "unknown"
}

// parse matches case-insensitively and ignores surrounding whitespace.
func (t enumTable[T]) parse(s string) (T, error) {
	if v, ok := t.values[strings.ToLower(strings.TrimSpace(s))]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("unknown %s %q", t.kind, s)
}

func (t enumTable[T]) scan(src any) (T, error) {
	switch v := src.(type) {
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		var zero T
		return zero, fmt.Errorf("cannot scan %T into %s", src, t.kind)
	}
}

// IssueCategory classifies what kind of problem an Issue reports.
type IssueCategory uint8

const (
	IssueCategoryUnknown IssueCategory = iota
	IssueCategorySecurity
	IssueCategoryReliability
	IssueCategoryPerformance
	IssueCategoryConfiguration
)

var issueCategories = newEnumTable("issue category", map[IssueCategory]string{
	IssueCategoryUnknown:       "unknown",
	IssueCategorySecurity:      "security",
	IssueCategoryReliability:   "reliability",
	IssueCategoryPerformance:   "performance",
	IssueCategoryConfiguration: "configuration",
})

// ParseIssueCategory returns the category named by s.
func ParseIssueCategory(s string) (IssueCategory, error) { return issueCategories.parse(s) }

// String returns the category's wire word.
func (c IssueCategory) String() string { return issueCategories.name(c) }

// MarshalText implements encoding.TextMarshaler.
func (c IssueCategory) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *IssueCategory) UnmarshalText(text []byte) error {
	v, err := issueCategories.parse(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Value implements driver.Valuer.
func (c IssueCategory) Value() (driver.Value, error) { return c.String(), nil }

// Scan implements sql.Scanner.
func (c *IssueCategory) Scan(src any) error {
	v, err := issueCategories.scan(src)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// IssueSeverity indicates how urgently an Issue needs attention.
type IssueSeverity uint8

const (
	IssueSeverityUnknown IssueSeverity = iota
	IssueSeverityCritical
	IssueSeverityHigh
	IssueSeverityMedium
	IssueSeverityLow
)

var issueSeverities = newEnumTable("issue severity", map[IssueSeverity]string{
	IssueSeverityUnknown:  "unknown",
	IssueSeverityCritical: "critical",
	IssueSeverityHigh:     "high",
	IssueSeverityMedium:   "medium",
	IssueSeverityLow:      "low",
})

// ParseIssueSeverity returns the severity named by s.
func ParseIssueSeverity(s string) (IssueSeverity, error) { return issueSeverities.parse(s) }

// String returns the severity's wire word.
func (s IssueSeverity) String() string { return issueSeverities.name(s) }

// MarshalText implements encoding.TextMarshaler.
func (s IssueSeverity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *IssueSeverity) UnmarshalText(text []byte) error {
	v, err := issueSeverities.parse(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Value implements driver.Valuer.
func (s IssueSeverity) Value() (driver.Value, error) { return s.String(), nil }

// Scan implements sql.Scanner.
func (s *IssueSeverity) Scan(src any) error {
	v, err := issueSeverities.scan(src)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// AllIssueCategories lists every category in declaration order.
func AllIssueCategories() []IssueCategory {
	return []IssueCategory{
		IssueCategorySecurity,
		IssueCategoryReliability,
		IssueCategoryPerformance,
		IssueCategoryConfiguration,
		IssueCategoryUnknown,
	}
}

// AllIssueSeverities lists every severity, most urgent first.
func AllIssueSeverities() []IssueSeverity {
	return []IssueSeverity{
		IssueSeverityCritical,
		IssueSeverityHigh,
		IssueSeverityMedium,
		IssueSeverityLow,
		IssueSeverityUnknown,
	}
}
