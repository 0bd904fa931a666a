package rules_test

import (
	"errors"
	"path/filepath"
	"testing"

	"grantcloser/internal/rules"
	"grantcloser/internal/testsupport"
)

func TestLoadWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Regelsæt.xlsx")
	testsupport.WriteRulesWorkbook(t, path,
		[]string{"Indsatsnavn", "Rengøring", "", "Madservice"},
		[]string{"§ 83|Serviceloven", "§ 138|Sundhedsloven"},
	)

	catalog, err := rules.LoadWorkbook(path)
	if err != nil {
		t.Fatalf("LoadWorkbook: %v", err)
	}
	if !catalog.IsApprovedName("Rengøring") || !catalog.IsApprovedName("Madservice") {
		t.Fatalf("expected approved names, got %v", catalog.Names())
	}
	if catalog.IsApprovedName("Indsatsnavn") {
		t.Fatal("header row should be skipped")
	}
	if !catalog.MatchesParagraph("§ 138", "sundhedsloven") {
		t.Fatal("expected paragraph rule to load")
	}
}

func TestLoadWorkbookMissingFile(t *testing.T) {
	_, err := rules.LoadWorkbook(filepath.Join(t.TempDir(), "missing.xlsx"))
	if !errors.Is(err, rules.ErrWorkbookMissing) {
		t.Fatalf("expected ErrWorkbookMissing, got %v", err)
	}
}

func TestLoadWorkbookRejectsMalformedParagraph(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	testsupport.WriteRulesWorkbook(t, path, []string{"Rengøring"}, []string{"§ 83|Serviceloven", "no separator"})

	if _, err := rules.LoadWorkbook(path); err == nil {
		t.Fatal("expected error for malformed paragraph row")
	}
}
