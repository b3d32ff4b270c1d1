// Package feed reads supplier product feeds and pushes them through the catalog services.
package feed

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/opticplace/opticplace-backend/internal/app/service"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Feed columns, matched case-insensitively against the header row
const (
	ColumnCategory            = "category"
	ColumnBrand               = "brand"
	ColumnSlug                = "slug"
	ColumnName                = "name"
	ColumnDescription         = "description"
	ColumnPrice               = "price"
	ColumnOldPrice            = "old_price"
	ColumnActive              = "active"
	ColumnVariationAttributes = "variation_attributes"
	ColumnAttributes          = "attributes"
)

var requiredColumns = []string{ColumnCategory, ColumnName, ColumnPrice}

var (
	nonSlugChars = regexp.MustCompile(`[^\p{L}\p{N}-]+`)
	dashRuns     = regexp.MustCompile(`-+`)
)

// Row is one product line of the feed. Line is the 1-based spreadsheet row.
type Row struct {
	Line  int
	Input service.UpsertProductInput
}

type RowError struct {
	Line int    `json:"line"`
	Slug string `json:"slug,omitempty"`
	Err  string `json:"error"`
}

func (e RowError) Error() string {
	if e.Slug != "" {
		return fmt.Sprintf("row %d (%s): %s", e.Line, e.Slug, e.Err)
	}
	return fmt.Sprintf("row %d: %s", e.Line, e.Err)
}

// Parse reads the first sheet of an XLSX feed. Malformed rows are reported
// and skipped; only an unreadable workbook or missing columns fail the whole feed.
func Parse(r io.Reader) ([]Row, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open XLSX feed: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil, fmt.Errorf("no sheets found in feed")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("feed is empty")
	}

	columns := make(map[string]int, len(rows[0]))
	for i, header := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, nil, fmt.Errorf("feed is missing required column %q", name)
		}
	}

	var (
		parsed  []Row
		invalid []RowError
	)
	for i, cells := range rows[1:] {
		line := i + 2
		get := func(column string) string {
			idx, ok := columns[column]
			if !ok || idx >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[idx])
		}

		if isBlank(cells) {
			continue
		}

		input, err := parseRow(get)
		if err != nil {
			invalid = append(invalid, RowError{Line: line, Slug: input.Slug, Err: err.Error()})
			continue
		}
		parsed = append(parsed, Row{Line: line, Input: input})
	}

	return parsed, invalid, nil
}

func parseRow(get func(string) string) (service.UpsertProductInput, error) {
	input := service.UpsertProductInput{
		Name:         get(ColumnName),
		Description:  get(ColumnDescription),
		CategorySlug: strings.ToLower(get(ColumnCategory)),
		BrandName:    get(ColumnBrand),
		IsActive:     true,
	}

	input.Slug = strings.ToLower(get(ColumnSlug))
	if input.Slug == "" {
		input.Slug = Slugify(input.Name)
	}
	if input.BrandName != "" {
		input.BrandSlug = Slugify(input.BrandName)
	}

	if input.Name == "" || input.CategorySlug == "" {
		return input, fmt.Errorf("name and category are required")
	}

	price, err := decimal.NewFromString(get(ColumnPrice))
	if err != nil {
		return input, fmt.Errorf("invalid price %q", get(ColumnPrice))
	}
	input.Price = price

	if raw := get(ColumnOldPrice); raw != "" {
		oldPrice, err := decimal.NewFromString(raw)
		if err != nil {
			return input, fmt.Errorf("invalid old_price %q", raw)
		}
		input.OldPrice = &oldPrice
	}

	if raw := get(ColumnActive); raw != "" {
		active, err := parseBool(raw)
		if err != nil {
			return input, err
		}
		input.IsActive = active
	}

	input.VariationAttributes = splitList(get(ColumnVariationAttributes), ",")

	offered, err := ParseAttributes(get(ColumnAttributes))
	if err != nil {
		return input, err
	}
	input.OfferedValues = offered

	return input, nil
}

// ParseAttributes reads "color=black|brown; frame-material=metal" into slug lists
func ParseAttributes(raw string) (map[string][]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	out := make(map[string][]string)
	for _, group := range splitList(raw, ";") {
		attr, values, ok := strings.Cut(group, "=")
		if !ok {
			return nil, fmt.Errorf("attribute group %q must look like slug=value|value", group)
		}
		attr = Slugify(attr)
		if attr == "" {
			return nil, fmt.Errorf("attribute group %q has no attribute", group)
		}
		for _, v := range splitList(values, "|") {
			out[attr] = append(out[attr], Slugify(v))
		}
	}
	return out, nil
}

// Slugify lowercases s and joins its letter and digit runs with dashes
func Slugify(s string) string {
	slug := strings.ToLower(strings.TrimSpace(s))
	slug = strings.ReplaceAll(slug, ".", "-")
	slug = nonSlugChars.ReplaceAllString(slug, "-")
	slug = dashRuns.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "y":
		return true, nil
	case "0", "false", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("invalid active flag %q", raw)
}

func splitList(raw, sep string) []string {
	var out []string
	for _, part := range strings.Split(raw, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
