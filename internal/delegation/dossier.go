package delegation

import (
	"errors"
	"fmt"
	"strings"
)

// AssetType is the category of the financed asset.
type AssetType string

const (
	AssetNewStandard  AssetType = "NEW_STANDARD"
	AssetUsed         AssetType = "USED"
	AssetSpecialized  AssetType = "SPECIALIZED"
	AssetTaxiOrRental AssetType = "TAXI_OR_RENTAL"
)

// ErrUnknownAssetType is returned when an asset category cannot be parsed.
var ErrUnknownAssetType = errors.New("unknown asset type")

// AssetTypes lists the accepted categories in display order.
func AssetTypes() []AssetType {
	return []AssetType{AssetNewStandard, AssetUsed, AssetTaxiOrRental, AssetSpecialized}
}

var assetAliases = map[string]AssetType{
	"NEW_STANDARD":   AssetNewStandard,
	"NEW":            AssetNewStandard,
	"NEUF":           AssetNewStandard,
	"USED":           AssetUsed,
	"OCCASION":       AssetUsed,
	"SPECIALIZED":    AssetSpecialized,
	"SPECIFIQUE":     AssetSpecialized,
	"TAXI_OR_RENTAL": AssetTaxiOrRental,
	"TAXI_LOUAGE":    AssetTaxiOrRental,
}

// ParseAssetType resolves an asset category. The lowercase codes of the
// training form (neuf, occasion, specifique, taxi_louage) are accepted.
func ParseAssetType(value string) (AssetType, error) {
	key := strings.ToUpper(strings.TrimSpace(value))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if asset, ok := assetAliases[key]; ok {
		return asset, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAssetType, value)
}

// UnmarshalText decodes and validates an asset category.
func (a *AssetType) UnmarshalText(text []byte) error {
	parsed, err := ParseAssetType(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// excludedFromNetwork reports whether branch and zone authority is withheld
// for this category.
func (a AssetType) excludedFromNetwork() bool {
	switch a {
	case AssetNewStandard:
		return false
	case AssetUsed, AssetSpecialized, AssetTaxiOrRental:
		return true
	default:
		panic(fmt.Sprintf("delegation: unhandled asset type %q", string(a)))
	}
}

// Dossier holds the attributes of one leasing request. Amounts are in
// thousands of dinars, ratios and rates in percent.
type Dossier struct {
	BCTClass              int       `json:"bct_class"`
	MonthsActive          int       `json:"months_active"`
	AssetType             AssetType `json:"asset_type"`
	RequestedAmount       float64   `json:"requested_amount"`
	TotalExposure         float64   `json:"total_exposure"`
	FirstInstallmentRatio float64   `json:"first_installment_ratio"`
	Rate                  float64   `json:"rate"`
	ExpenseToIncomeRatio  float64   `json:"expense_to_income_ratio"`
}

// DefaultDossier returns the sample dossier the training form starts from.
func DefaultDossier() Dossier {
	return Dossier{
		BCTClass:              0,
		MonthsActive:          24,
		AssetType:             AssetNewStandard,
		RequestedAmount:       80,
		TotalExposure:         150,
		FirstInstallmentRatio: 25,
		Rate:                  16.0,
		ExpenseToIncomeRatio:  15,
	}
}
