package rules

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet names in the rule workbook.
const (
	SheetNames      = "Indsatsnavne"
	SheetParagraphs = "Paragraffer"
)

// ErrWorkbookMissing is returned when the rule workbook does not exist.
var ErrWorkbookMissing = errors.New("rule workbook not found")

var headerLabels = map[string]struct{}{
	"indsatsnavn":  {},
	"indsatsnavne": {},
	"navn":         {},
	"paragraf":     {},
	"paragraffer":  {},
	"sektion":      {},
}

// LoadWorkbook reads the approved-name and paragraph sheets from an .xlsx
// file. Paragraph rows hold "section|legislation" in column A, or the section
// in column A and the legislation in column B.
func LoadWorkbook(path string) (*Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrWorkbookMissing, path)
		}
		return nil, fmt.Errorf("stat rule workbook: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("rule workbook %q is a directory", path)
	}

	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open rule workbook: %w", err)
	}
	defer file.Close()

	nameRows, err := file.GetRows(SheetNames)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", SheetNames, err)
	}
	paragraphRows, err := file.GetRows(SheetParagraphs)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", SheetParagraphs, err)
	}

	names := parseNames(nameRows)
	paragraphs, err := parseParagraphs(paragraphRows)
	if err != nil {
		return nil, err
	}
	return New(names, paragraphs), nil
}

func parseNames(rows [][]string) []string {
	names := make([]string, 0, len(rows))
	for i, row := range rows {
		value := cell(row, 0)
		if value == "" || (i == 0 && isHeader(value)) {
			continue
		}
		names = append(names, value)
	}
	return names
}

func parseParagraphs(rows [][]string) ([]ParagraphRule, error) {
	rules := make([]ParagraphRule, 0, len(rows))
	for i, row := range rows {
		first := cell(row, 0)
		if first == "" || (i == 0 && isHeader(first)) {
			continue
		}
		if section, legislation, ok := strings.Cut(first, "|"); ok {
			section, legislation = strings.TrimSpace(section), strings.TrimSpace(legislation)
			if section == "" || legislation == "" {
				return nil, fmt.Errorf("sheet %s row %d: incomplete rule %q", SheetParagraphs, i+1, first)
			}
			rules = append(rules, ParagraphRule{Section: section, Legislation: legislation})
			continue
		}
		second := cell(row, 1)
		if second == "" {
			return nil, fmt.Errorf("sheet %s row %d: expected \"section|legislation\", got %q", SheetParagraphs, i+1, first)
		}
		rules = append(rules, ParagraphRule{Section: first, Legislation: second})
	}
	return rules, nil
}

func cell(row []string, index int) string {
	if index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

func isHeader(value string) bool {
	_, ok := headerLabels[strings.ToLower(value)]
	return ok
}
