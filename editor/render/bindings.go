package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Bindings maps a field label to the record key its value comes from.
type Bindings map[string]string

// DefaultBindings returns the built-in label table.
func DefaultBindings() Bindings {
	return Bindings{
		"First Name":          "first_name",
		"Middle Name":         "middle_name",
		"Last Name":           "last_name",
		"Email":               "email",
		"Student ID":          "student_id",
		"Course":              "course",
		"Year Level":          "year_level",
		"Address":             "address",
		"Phone":               "phone",
		"Date of Birth":       "date_of_birth",
		"Guardian Name":       "guardian_name",
		"Guardian Contact No": "guardian_contact_no",
	}
}

// Resolve returns the text for label: the bound record value when present
// and non-empty, otherwise the label itself.
func (b Bindings) Resolve(label string, record map[string]string) string {
	if key, ok := b[label]; ok {
		if v := record[key]; v != "" {
			return v
		}
	}
	return label
}

// Extend adds entries for labels that are not bound yet. Existing entries
// are never overwritten; the labels that were skipped are returned.
func (b Bindings) Extend(extra map[string]string) []string {
	var skipped []string
	for label, key := range extra {
		label, key = strings.TrimSpace(label), strings.TrimSpace(key)
		if label == "" || key == "" {
			continue
		}
		if _, ok := b[label]; ok {
			skipped = append(skipped, label)
			continue
		}
		b[label] = key
	}
	return skipped
}

// LoadBindings returns the default table extended with the YAML mapping in
// path. An empty path yields the defaults. The file is a flat mapping:
//
//	Nickname: nickname
//	Blood Type: blood_type
func LoadBindings(path string) (Bindings, error) {
	b := DefaultBindings()
	if path == "" {
		return b, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bindings file: %w", err)
	}
	var extra map[string]string
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, fmt.Errorf("failed to parse bindings file %s: %w", path, err)
	}
	for _, label := range b.Extend(extra) {
		logrus.WithField("label", label).Warn("Ignoring binding that overrides a built-in label")
	}
	return b, nil
}
