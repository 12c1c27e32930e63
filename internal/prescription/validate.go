package prescription

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/prescribe/internal/schema"
)

const (
	msgFirstName   = "Invalid first name. Must be 4-15 characters and start with an uppercase letter."
	msgLastName    = "Invalid last name. Must be 4-15 characters and start with an uppercase letter."
	msgAddress     = "Invalid address. Must be at least 20 characters long."
	msgSphere      = "Invalid sphere value. Must be between -20.00 and 20.00."
	msgCylinder    = "Invalid cylinder value. Must be between -4.00 and 4.00."
	msgAxis        = "Invalid axis value. Must be between 0 and 180."
	msgDate        = "Invalid examination date. Must be set in DD/MM/YYYY format."
	msgOptometrist = "Invalid optometrist name. Length must be 8-25 characters."

	msgRemarkText        = "Invalid remark. Must be 6-20 words and start with an uppercase letter."
	msgRemarkCategory    = "Invalid category. Must be 'Client' or 'Optometrist'."
	msgDuplicateCategory = "Duplicate category. Each category can only be used once."
	msgCategoryLimit     = "Maximum number of remark categories reached. You can only add up to 2."
)

// Validate runs every prescription rule against the current field values and
// returns one violation per failed rule, in field order. It does not stop at
// the first failure and has no side effects.
func (r *Record) Validate() []schema.Violation {
	var out []schema.Violation
	add := func(ok bool, rule schema.Rule, msg string) {
		if !ok {
			out = append(out, schema.Violation{Rule: rule, Message: msg})
		}
	}

	add(IsValidName(r.FirstName), schema.RuleFirstName, msgFirstName)
	add(IsValidName(r.LastName), schema.RuleLastName, msgLastName)
	add(IsValidAddress(r.Address), schema.RuleAddress, msgAddress)
	add(IsValidSphere(r.Sphere), schema.RuleSphere, msgSphere)
	add(IsValidCylinder(r.Cylinder), schema.RuleCylinder, msgCylinder)
	add(IsValidAxis(r.Axis), schema.RuleAxis, msgAxis)
	add(!r.ExaminationDate.IsZero(), schema.RuleExaminationDate, msgDate)
	add(IsValidOptometrist(r.Optometrist), schema.RuleOptometrist, msgOptometrist)
	return out
}

// ValidateRemark checks a remark against the text rules, the category domain
// and this record's accepted categories. Text length and capitalization share
// one violation. Nothing on the record changes.
func (r *Record) ValidateRemark(text, category string) []schema.Violation {
	var out []schema.Violation

	if !IsValidRemarkText(text) {
		out = append(out, schema.Violation{Rule: schema.RuleRemarkText, Message: msgRemarkText})
	}
	c, ok := ParseCategory(category)
	if !ok {
		out = append(out, schema.Violation{Rule: schema.RuleRemarkCategory, Message: msgRemarkCategory})
	}
	if ok && r.HasCategory(c) {
		out = append(out, schema.Violation{Rule: schema.RuleDuplicateCategory, Message: msgDuplicateCategory})
	}
	if len(r.accepted) >= MaxRemarkCategories {
		out = append(out, schema.Violation{Rule: schema.RuleCategoryLimit, Message: msgCategoryLimit})
	}
	return out
}

// IsValidName reports whether name has 4-15 characters and starts uppercase.
func IsValidName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n >= 4 && n <= 15 && startsUpper(name)
}

// IsValidAddress reports whether address has at least 20 characters.
func IsValidAddress(address string) bool {
	return utf8.RuneCountInString(address) >= 20
}

// IsValidSphere reports whether v is within -20.00 to 20.00 inclusive.
func IsValidSphere(v float64) bool { return v >= -20.00 && v <= 20.00 }

// IsValidCylinder reports whether v is within -4.00 to 4.00 inclusive.
func IsValidCylinder(v float64) bool { return v >= -4.00 && v <= 4.00 }

// IsValidAxis reports whether v is within 0 to 180 inclusive.
func IsValidAxis(v float64) bool { return v >= 0 && v <= 180 }

// IsValidOptometrist reports whether name has 8-25 characters.
func IsValidOptometrist(name string) bool {
	n := utf8.RuneCountInString(name)
	return n >= 8 && n <= 25
}

// IsValidRemarkText reports whether text has 6-20 whitespace-separated words
// and its trimmed form starts with an uppercase letter.
func IsValidRemarkText(text string) bool {
	words := len(strings.Fields(text))
	return words >= 6 && words <= 20 && startsUpper(strings.TrimSpace(text))
}

func startsUpper(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	return size > 0 && r != utf8.RuneError && unicode.IsUpper(r)
}
