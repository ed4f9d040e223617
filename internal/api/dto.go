package api

import (
	"time"

	"github.com/ballha123/wifak-banque/internal/delegation"
	"github.com/ballha123/wifak-banque/internal/store"
)

// EvaluateRequest is a dossier plus an optional caller reference. Fields left
// out of the JSON body keep the sample dossier values.
type EvaluateRequest struct {
	Reference string `json:"reference"`
	delegation.Dossier
}

func newEvaluateRequest() EvaluateRequest {
	return EvaluateRequest{Dossier: delegation.DefaultDossier()}
}

// EvaluationDTO is the API representation of one engine run.
type EvaluationDTO struct {
	ID               string             `json:"id"`
	Reference        string             `json:"reference,omitempty"`
	Level            delegation.Level   `json:"level"`
	Label            string             `json:"label"`
	Ceiling          string             `json:"ceiling"`
	Circuit          string             `json:"circuit"`
	Standard         bool               `json:"standard"`
	Reasons          []string           `json:"reasons"`
	Path             []delegation.Level `json:"path"`
	Steps            []delegation.Step  `json:"steps"`
	Dossier          delegation.Dossier `json:"dossier"`
	PolicyReference  string             `json:"policy_reference"`
	ProcessingTimeUs int64              `json:"processing_time_us"`
	EvaluatedAt      time.Time          `json:"evaluated_at"`
}

// LevelsResponse lists the authority levels and accepted asset categories.
type LevelsResponse struct {
	Items      []delegation.LevelInfo `json:"items"`
	AssetTypes []delegation.AssetType `json:"asset_types"`
}

// BatchItemDTO is the outcome of one CSV row.
type BatchItemDTO struct {
	Line       int            `json:"line"`
	Reference  string         `json:"reference,omitempty"`
	Evaluation *EvaluationDTO `json:"evaluation,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// BatchResponse summarises a CSV batch evaluation.
type BatchResponse struct {
	Filename string         `json:"filename"`
	Total    int            `json:"total"`
	Failed   int            `json:"failed"`
	Items    []BatchItemDTO `json:"items"`
}

// JournalEntryDTO is the API representation of a journaled evaluation.
type JournalEntryDTO struct {
	ID               string             `json:"id"`
	Source           string             `json:"source"`
	Level            string             `json:"level"`
	Label            string             `json:"label"`
	Reasons          []string           `json:"reasons"`
	Rules            []string           `json:"rules"`
	Dossier          delegation.Dossier `json:"dossier"`
	PolicyReference  string             `json:"policy_reference"`
	ProcessingTimeUs int64              `json:"processing_time_us"`
	CreatedAt        time.Time          `json:"created_at"`
}

// JournalResponse is the paginated journal listing.
type JournalResponse struct {
	Items []JournalEntryDTO `json:"items"`
	Total int64             `json:"total"`
}

// SummaryResponse counts journaled evaluations per level.
type SummaryResponse struct {
	Items []store.LevelCount `json:"items"`
	Total int64              `json:"total"`
}

// FromModel converts a store.Evaluation into the journal DTO.
func FromModel(e store.Evaluation) JournalEntryDTO {
	label := e.Level
	if level, err := delegation.ParseLevel(e.Level); err == nil {
		label = level.Info().Label
	}
	return JournalEntryDTO{
		ID:      e.EvaluationID,
		Source:  e.Source,
		Level:   e.Level,
		Label:   label,
		Reasons: e.Reasons(),
		Rules:   e.Rules(),
		Dossier: delegation.Dossier{
			BCTClass:              e.BCTClass,
			MonthsActive:          e.MonthsActive,
			AssetType:             delegation.AssetType(e.AssetType),
			RequestedAmount:       e.RequestedAmount,
			TotalExposure:         e.TotalExposure,
			FirstInstallmentRatio: e.FirstInstallmentRatio,
			Rate:                  e.Rate,
			ExpenseToIncomeRatio:  e.ExpenseToIncomeRatio,
		},
		PolicyReference:  e.PolicyReference,
		ProcessingTimeUs: e.ProcessingTimeUs,
		CreatedAt:        e.CreatedAt,
	}
}
