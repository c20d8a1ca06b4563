// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

// Package plufile reads and writes article lists as delimited text files.
// The import side auto-detects the delimiter; the export side takes one
// explicitly.
package plufile

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/teknel/smart3ctl/pkg/plu"
)

// DefaultDelimiter is used by Export when none is given.
const DefaultDelimiter = ';'

// fieldsPerRow is the exported row shape:
// id, name, price, department, tax, macro, quantity.
const fieldsPerRow = 7

// Import parses a delimited article file. The delimiter is detected as the
// most frequent non-alphanumeric character of the file, excluding the
// decimal point, spaces and line breaks. Malformed rows fail with their
// 1-based line number.
func Import(r io.Reader) ([]*plu.Info, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("plu import: %w", err)
	}
	text := string(data)
	delimiter, err := DetectDelimiter(text)
	if err != nil {
		return nil, err
	}
	return parse(text, delimiter)
}

// DetectDelimiter returns the most frequent candidate delimiter character.
func DetectDelimiter(text string) (rune, error) {
	counts := map[rune]int{}
	for _, r := range text {
		if r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			continue
		}
		switch r {
		case '.', '\n', '\r', ' ':
			continue
		}
		counts[r]++
	}
	best, bestCount := rune(0), 0
	for r, n := range counts {
		if n > bestCount {
			best, bestCount = r, n
		}
	}
	if bestCount == 0 {
		return 0, fmt.Errorf("plu import: no delimiter found")
	}
	return best, nil
}

func parse(text string, delimiter rune) ([]*plu.Info, error) {
	var plus []*plu.Info
	scanner := bufio.NewScanner(strings.NewReader(text))
	line := 0
	for scanner.Scan() {
		line++
		row := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(row) == "" {
			continue
		}
		fields := strings.Split(row, string(delimiter))
		if len(fields) != fieldsPerRow {
			return nil, fmt.Errorf("plu import line %d: %d fields, want %d", line, len(fields), fieldsPerRow)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(fields[2]))
		if err != nil {
			return nil, fmt.Errorf("plu import line %d: bad price %q", line, fields[2])
		}
		department, tax, macro, quantity, err := intFields(fields[3:])
		if err != nil {
			return nil, fmt.Errorf("plu import line %d: %w", line, err)
		}
		info, err := plu.New(strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1]), price, department, tax, macro, quantity)
		if err != nil {
			return nil, fmt.Errorf("plu import line %d: %w", line, err)
		}
		plus = append(plus, info)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("plu import: %w", err)
	}
	return plus, nil
}

func intFields(fields []string) (department, tax, macro, quantity int, err error) {
	values := make([]int, 4)
	for i, f := range fields {
		if _, err := fmt.Sscanf(strings.TrimSpace(f), "%d", &values[i]); err != nil {
			return 0, 0, 0, 0, fmt.Errorf("bad integer field %q", f)
		}
	}
	return values[0], values[1], values[2], values[3], nil
}

// Export writes articles as delimited rows.
func Export(w io.Writer, plus []*plu.Info, delimiter rune) error {
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}
	bw := bufio.NewWriter(w)
	for _, p := range plus {
		if p == nil {
			continue
		}
		row := strings.Join([]string{
			p.ID(),
			p.Name(),
			p.Price().StringFixed(2),
			fmt.Sprintf("%d", p.Department()),
			fmt.Sprintf("%d", p.Tax()),
			fmt.Sprintf("%d", p.Macro()),
			fmt.Sprintf("%d", p.Quantity()),
		}, string(delimiter))
		if _, err := fmt.Fprintln(bw, row); err != nil {
			return fmt.Errorf("plu export: %w", err)
		}
	}
	return bw.Flush()
}
