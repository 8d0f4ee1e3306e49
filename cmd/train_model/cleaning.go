package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// cleaningRule inspects one CSV row, keyed by header name, and returns an
// error when the row must not be used for training.
type cleaningRule interface {
	Check(row map[string]string) error
	Name() string
}

// rowCleaner applies every rule to each row and counts the drops per rule.
type rowCleaner struct {
	rules   []cleaningRule
	passed  int
	dropped map[string]int
}

func newRowCleaner(rules ...cleaningRule) *rowCleaner {
	return &rowCleaner{rules: rules, dropped: make(map[string]int)}
}

// defaultCleaner drops rows with missing values in the used columns, rows
// whose target cannot be log transformed and exact duplicates.
func defaultCleaner(columns []string, target string, logTarget bool) *rowCleaner {
	rules := []cleaningRule{missingValueRule{columns: append(append([]string(nil), columns...), target)}}
	if logTarget {
		rules = append(rules, positiveRule{column: target})
	}
	rules = append(rules, newDuplicateRule())
	return newRowCleaner(rules...)
}

// keep reports whether row passes every rule. The first failing rule is
// counted.
func (c *rowCleaner) keep(row map[string]string) bool {
	for _, rule := range c.rules {
		if err := rule.Check(row); err != nil {
			c.dropped[rule.Name()]++
			return false
		}
	}
	c.passed++
	return true
}

func (c *rowCleaner) droppedTotal() int {
	n := 0
	for _, v := range c.dropped {
		n += v
	}
	return n
}

// summary renders the drop counts in rule name order, e.g. "duplicate=2".
func (c *rowCleaner) summary() string {
	names := make([]string, 0, len(c.dropped))
	for name := range c.dropped {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, c.dropped[name])
	}
	return strings.Join(parts, ",")
}

var missingTokens = map[string]bool{"": true, "na": true, "nan": true, "null": true, "none": true}

type missingValueRule struct {
	columns []string
}

func (r missingValueRule) Name() string { return "missing_value" }

func (r missingValueRule) Check(row map[string]string) error {
	for _, col := range r.columns {
		if missingTokens[strings.ToLower(row[col])] {
			return fmt.Errorf("column %q is missing", col)
		}
	}
	return nil
}

type positiveRule struct {
	column string
}

func (r positiveRule) Name() string { return "non_positive_target" }

func (r positiveRule) Check(row map[string]string) error {
	v, err := strconv.ParseFloat(row[r.column], 64)
	if err != nil {
		// reported by the parser with its line number
		return nil
	}
	if v <= 0 {
		return errors.New("log target needs a positive value")
	}
	return nil
}

type duplicateRule struct {
	seen map[string]struct{}
}

func newDuplicateRule() *duplicateRule {
	return &duplicateRule{seen: make(map[string]struct{})}
}

func (r *duplicateRule) Name() string { return "duplicate" }

func (r *duplicateRule) Check(row map[string]string) error {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(row[k])
		b.WriteByte(0)
	}
	key := b.String()
	if _, ok := r.seen[key]; ok {
		return errors.New("duplicate row")
	}
	r.seen[key] = struct{}{}
	return nil
}
