// Package taxonomy holds the category table shared by forms, filters and
// validation hints.
package taxonomy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"

	"fintrack/internal/core"
)

// Table lists the known categories for each kind.
type Table struct {
	Income  []string `json:"income"`
	Expense []string `json:"expense"`
}

// Default returns the built-in category table.
func Default() Table {
	return Table{
		Income: []string{
			"Salary",
			"Freelance",
			"Investment",
			"Gift",
			"Refund",
			core.DefaultIncomeCategory,
		},
		Expense: []string{
			"Food & Dining",
			"Housing",
			"Transportation",
			"Utilities",
			"Entertainment",
			"Shopping",
			"Healthcare",
			"Education",
			"Personal Care",
			"Travel",
			"Gifts & Donations",
			core.DefaultExpenseCategory,
		},
	}
}

// Load reads a table from a JSON file. An empty path or a missing file
// yields the default table. Kinds left empty in the file fall back to the
// defaults, and each kind's "Other" category is always present.
func Load(path string) (Table, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Table{}, fmt.Errorf("read categories: %w", err)
	}
	var t Table
	if err := json.Unmarshal(b, &t); err != nil {
		return Table{}, fmt.Errorf("parse categories %s: %w", path, err)
	}
	def := Default()
	if len(t.Income) == 0 {
		t.Income = def.Income
	}
	if len(t.Expense) == 0 {
		t.Expense = def.Expense
	}
	t.Income = withDefault(dedupe(t.Income), core.DefaultIncomeCategory)
	t.Expense = withDefault(dedupe(t.Expense), core.DefaultExpenseCategory)
	return t, nil
}

// For returns a copy of the categories for kind.
func (t Table) For(k core.Kind) []string {
	if k == core.Expense {
		return slices.Clone(t.Expense)
	}
	return slices.Clone(t.Income)
}

// All returns every category once, income first.
func (t Table) All() []string {
	return dedupe(append(slices.Clone(t.Income), t.Expense...))
}

// Contains reports whether name is a known category. An empty kind
// searches both lists.
func (t Table) Contains(k core.Kind, name string) bool {
	switch k {
	case core.Income:
		return slices.Contains(t.Income, name)
	case core.Expense:
		return slices.Contains(t.Expense, name)
	default:
		return slices.Contains(t.Income, name) || slices.Contains(t.Expense, name)
	}
}

// Default returns the fallback category for kind.
func (t Table) Default(k core.Kind) string {
	return core.DefaultCategory(k)
}

// Suggest returns the known category closest to name by edit distance,
// ignoring case. It returns false when nothing is reasonably close.
func (t Table) Suggest(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", false
	}
	best, bestDist := "", -1
	for _, c := range t.All() {
		d := levenshtein.ComputeDistance(name, strings.ToLower(c))
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	if bestDist < 0 {
		return "", false
	}
	limit := max(len(name), len(best)) / 2
	if bestDist > limit {
		return "", false
	}
	return best, true
}

func withDefault(list []string, def string) []string {
	if slices.Contains(list, def) {
		return list
	}
	return append(list, def)
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
