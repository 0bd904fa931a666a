package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// WriteRulesWorkbook writes a rule workbook with the approved names in column A
// of the Indsatsnavne sheet and the raw "section|legislation" strings in column
// A of the Paragraffer sheet.
func WriteRulesWorkbook(t testing.TB, path string, names, paragraphs []string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}

	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", "Indsatsnavne"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	if _, err := file.NewSheet("Paragraffer"); err != nil {
		t.Fatalf("create sheet: %v", err)
	}
	writeColumn(t, file, "Indsatsnavne", names)
	writeColumn(t, file, "Paragraffer", paragraphs)

	if err := file.SaveAs(path); err != nil {
		t.Fatalf("save workbook %s: %v", path, err)
	}
}

func writeColumn(t testing.TB, file *excelize.File, sheet string, values []string) {
	t.Helper()
	for i, value := range values {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := file.SetCellValue(sheet, cellName, value); err != nil {
			t.Fatalf("set %s!%s: %v", sheet, cellName, err)
		}
	}
}
