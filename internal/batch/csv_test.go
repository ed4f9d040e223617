package batch

import (
	"errors"
	"strings"
	"testing"

	"github.com/ballha123/wifak-banque/internal/delegation"
)

func TestReadDossiers(t *testing.T) {
	payload := "\ufeffReference,bct_class,months_active,asset_type,requested_amount,total_exposure,first_installment_ratio,rate,expense_to_income_ratio\n" +
		"L-001,0,24,NEW_STANDARD,80,150,25,16,15\n" +
		"\n" +
		"L-002,2+,36,occasion,\"120,5\",300,30%,14.5,10\n" +
		"L-003,x,36,boat,80,150,25,16,15\n"

	rows, err := ReadDossiers(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows got %d", len(rows))
	}

	if rows[0].Err != nil || rows[0].Reference != "L-001" {
		t.Fatalf("unexpected first row %+v", rows[0])
	}
	if rows[0].Dossier != delegation.DefaultDossier() {
		t.Fatalf("first row should match the sample dossier: %+v", rows[0].Dossier)
	}

	second := rows[1]
	if second.Err != nil {
		t.Fatalf("second row: %v", second.Err)
	}
	if second.Line != 4 {
		t.Fatalf("expected line 4 got %d", second.Line)
	}
	expected := delegation.Dossier{
		BCTClass:              2,
		MonthsActive:          36,
		AssetType:             delegation.AssetUsed,
		RequestedAmount:       120.5,
		TotalExposure:         300,
		FirstInstallmentRatio: 30,
		Rate:                  14.5,
		ExpenseToIncomeRatio:  10,
	}
	if second.Dossier != expected {
		t.Fatalf("expected %+v got %+v", expected, second.Dossier)
	}

	third := rows[2]
	if third.Err == nil {
		t.Fatal("expected error for malformed row")
	}
	if !errors.Is(third.Err, delegation.ErrUnknownAssetType) {
		t.Fatalf("expected asset type error in %v", third.Err)
	}
	if !strings.Contains(third.Err.Error(), "bct_class") {
		t.Fatalf("expected bct_class error in %v", third.Err)
	}
}

func TestReadDossiersFrenchHeadersAndDefaults(t *testing.T) {
	payload := "montant;ignored\n"
	payload = strings.ReplaceAll(payload, ";", ",")
	payload += "250,foo\n"

	rows, err := ReadDossiers(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row got %d", len(rows))
	}
	d := rows[0].Dossier
	if d.RequestedAmount != 250 || d.MonthsActive != 24 || d.AssetType != delegation.AssetNewStandard {
		t.Fatalf("unexpected dossier %+v", d)
	}
}

func TestReadDossiersWithoutHeader(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"empty", ""},
		{"unknown columns", "domain,price\nfoo.com,10\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ReadDossiers(strings.NewReader(tc.payload)); !errors.Is(err, ErrNoHeader) {
				t.Fatalf("expected ErrNoHeader got %v", err)
			}
		})
	}
}
