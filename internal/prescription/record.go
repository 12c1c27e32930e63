// Package prescription validates optometric prescription records and remarks
// and commits accepted ones to append-only logs.
package prescription

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dshills/prescribe/internal/schema"
)

// MaxRemarkCategories caps the remarks one record can accept.
const MaxRemarkCategories = 2

// Category classifies the author of a remark.
type Category string

const (
	// CategoryClient marks a remark written by or about the client.
	CategoryClient Category = "Client"
	// CategoryOptometrist marks a remark written by the examining optometrist.
	CategoryOptometrist Category = "Optometrist"
)

// Categories lists the fixed category domain in canonical form.
var Categories = []Category{CategoryClient, CategoryOptometrist}

// ParseCategory matches s case-insensitively against the category domain.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// Record is one prescription entry. Fields may be set and reset freely;
// every submission validates whatever values are current.
// ExaminationDate is required: a zero date fails validation.
// The zero value is a record with no accepted remarks.
type Record struct {
	ID              int
	FirstName       string
	LastName        string
	Address         string
	Sphere          float64
	Cylinder        float64
	Axis            float64
	ExaminationDate time.Time
	Optometrist     string

	// accepted grows in submission order, never shrinks, holds each
	// category at most once and never exceeds MaxRemarkCategories.
	accepted []Category
}

// NewRecord returns a record with no accepted remark categories.
func NewRecord() *Record {
	return &Record{}
}

// AcceptedCategories returns the categories accepted so far, in acceptance order.
func (r *Record) AcceptedCategories() []Category {
	out := make([]Category, len(r.accepted))
	copy(out, r.accepted)
	return out
}

// HasCategory reports whether c has already been accepted on this record.
func (r *Record) HasCategory(c Category) bool {
	for _, a := range r.accepted {
		if a == c {
			return true
		}
	}
	return false
}

// acceptCategory records c. Callers must have validated the remark first.
func (r *Record) acceptCategory(c Category) {
	if r.HasCategory(c) || len(r.accepted) >= MaxRemarkCategories {
		return
	}
	r.accepted = append(r.accepted, c)
}

// Line formats the record as one prescription log line. Measurements are
// written with two decimals, halves rounded away from zero.
func (r *Record) Line() string {
	return fmt.Sprintf("ID: %d, Name: %s %s, Address: %s, Sphere: %s, Cylinder: %s, Axis: %s, Date: %s, Optometrist: %s",
		r.ID, r.FirstName, r.LastName, r.Address,
		formatMeasure(r.Sphere), formatMeasure(r.Cylinder), formatMeasure(r.Axis),
		r.ExaminationDate.Format(schema.DateLayout), r.Optometrist)
}

// formatMeasure rounds v half-up to two decimals from its shortest decimal form.
func formatMeasure(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprintf("%.2f", v)
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// RemarkLine formats one remark log line. category is written as submitted.
func RemarkLine(text, category string) string {
	return fmt.Sprintf("Remark: %s, Category: %s", text, category)
}
