// Package batch reads dossiers in bulk from CSV files so a training session
// can replay a whole case list through the delegation engine.
package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ballha123/wifak-banque/internal/delegation"
)

// ErrNoHeader is returned when the first record names no known column.
var ErrNoHeader = errors.New("csv header names no dossier column")

// Row is one parsed CSV record. Err is set when the record could not be
// turned into a dossier; other rows are still returned.
type Row struct {
	Line      int
	Reference string
	Dossier   delegation.Dossier
	Err       error
}

type column int

const (
	colReference column = iota
	colBCTClass
	colMonthsActive
	colAssetType
	colRequestedAmount
	colTotalExposure
	colFirstInstallment
	colRate
	colExpenseRatio
)

var headerAliases = map[string]column{
	"reference":               colReference,
	"ref":                     colReference,
	"dossier":                 colReference,
	"bct_class":               colBCTClass,
	"classe_bct":              colBCTClass,
	"months_active":           colMonthsActive,
	"anciennete":              colMonthsActive,
	"asset_type":              colAssetType,
	"type_materiel":           colAssetType,
	"requested_amount":        colRequestedAmount,
	"montant":                 colRequestedAmount,
	"total_exposure":          colTotalExposure,
	"engagement_total":        colTotalExposure,
	"first_installment_ratio": colFirstInstallment,
	"apport":                  colFirstInstallment,
	"rate":                    colRate,
	"taux":                    colRate,
	"expense_to_income_ratio": colExpenseRatio,
	"ratio_charges":           colExpenseRatio,
}

// ReadDossiers parses a CSV stream whose first record is a header. Columns
// missing from the header keep their DefaultDossier value.
func ReadDossiers(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		columns map[column]int
		rows    []Row
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if isBlank(record) {
			continue
		}
		if columns == nil {
			columns = detectColumns(record)
			if len(columns) == 0 {
				return nil, ErrNoHeader
			}
			continue
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, parseRow(line, record, columns))
	}
	if columns == nil {
		return nil, ErrNoHeader
	}
	return rows, nil
}

func detectColumns(record []string) map[column]int {
	columns := make(map[column]int)
	for idx, value := range record {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(value, "\ufeff")))
		key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
		if col, ok := headerAliases[key]; ok {
			if _, dup := columns[col]; !dup {
				columns[col] = idx
			}
		}
	}
	return columns
}

func parseRow(line int, record []string, columns map[column]int) Row {
	row := Row{Line: line, Dossier: delegation.DefaultDossier()}
	field := func(col column) (string, bool) {
		idx, ok := columns[col]
		if !ok || idx >= len(record) {
			return "", false
		}
		value := strings.TrimSpace(record[idx])
		return value, value != ""
	}

	if v, ok := field(colReference); ok {
		row.Reference = v
	}

	var errs []error
	intField := func(col column, name string, dst *int) {
		if v, ok := field(col); ok {
			n, err := strconv.Atoi(strings.TrimSuffix(v, "+"))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not an integer", name, v))
				return
			}
			*dst = n
		}
	}
	floatField := func(col column, name string, dst *float64) {
		if v, ok := field(col); ok {
			n, err := parseDecimal(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a number", name, v))
				return
			}
			*dst = n
		}
	}

	intField(colBCTClass, "bct_class", &row.Dossier.BCTClass)
	intField(colMonthsActive, "months_active", &row.Dossier.MonthsActive)
	if v, ok := field(colAssetType); ok {
		asset, err := delegation.ParseAssetType(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("asset_type: %w", err))
		} else {
			row.Dossier.AssetType = asset
		}
	}
	floatField(colRequestedAmount, "requested_amount", &row.Dossier.RequestedAmount)
	floatField(colTotalExposure, "total_exposure", &row.Dossier.TotalExposure)
	floatField(colFirstInstallment, "first_installment_ratio", &row.Dossier.FirstInstallmentRatio)
	floatField(colRate, "rate", &row.Dossier.Rate)
	floatField(colExpenseRatio, "expense_to_income_ratio", &row.Dossier.ExpenseToIncomeRatio)

	if len(errs) > 0 {
		row.Err = fmt.Errorf("line %d: %w", line, errors.Join(errs...))
	}
	return row
}

// parseDecimal accepts a trailing percent sign and a decimal comma.
func parseDecimal(value string) (float64, error) {
	v := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "%"))
	v = strings.ReplaceAll(v, ",", ".")
	return strconv.ParseFloat(v, 64)
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
