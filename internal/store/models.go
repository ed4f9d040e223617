package store

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ballha123/wifak-banque/internal/delegation"
)

// Evaluation is one journaled run of the delegation engine. The dossier
// fields are a snapshot of what was submitted, kept for training review.
type Evaluation struct {
	ID                    uint   `gorm:"primaryKey"`
	EvaluationID          string `gorm:"size:36;uniqueIndex"`
	Source                string `gorm:"size:16;index"`
	BCTClass              int
	MonthsActive          int
	AssetType             string `gorm:"size:32"`
	RequestedAmount       float64
	TotalExposure         float64
	FirstInstallmentRatio float64
	Rate                  float64
	ExpenseToIncomeRatio  float64
	Level                 string `gorm:"size:16;index"`
	ReasonsJSON           string `gorm:"type:text"`
	RulesJSON             string `gorm:"type:text"`
	PolicyReference       string `gorm:"size:32"`
	ProcessingTimeUs      int64
	CreatedAt             time.Time `gorm:"autoCreateTime"`
}

// NewEvaluation builds the journal row for an engine result.
func NewEvaluation(evaluationID, source string, d delegation.Dossier, r delegation.Result, policyReference string, processingTimeUs int64) *Evaluation {
	rules := make([]string, 0, len(r.Steps))
	for _, step := range r.Steps {
		rules = append(rules, step.Rule)
	}
	e := &Evaluation{
		EvaluationID:          evaluationID,
		Source:                strings.ToLower(source),
		BCTClass:              d.BCTClass,
		MonthsActive:          d.MonthsActive,
		AssetType:             string(d.AssetType),
		RequestedAmount:       d.RequestedAmount,
		TotalExposure:         d.TotalExposure,
		FirstInstallmentRatio: d.FirstInstallmentRatio,
		Rate:                  d.Rate,
		ExpenseToIncomeRatio:  d.ExpenseToIncomeRatio,
		Level:                 r.Level.String(),
		PolicyReference:       policyReference,
		ProcessingTimeUs:      processingTimeUs,
	}
	e.SetReasons(r.Reasons)
	e.SetRules(rules)
	return e
}

// SetReasons stores the escalation reasons as JSON.
func (e *Evaluation) SetReasons(reasons []string) {
	e.ReasonsJSON = encodeStrings(reasons)
}

// Reasons returns the decoded escalation reasons.
func (e *Evaluation) Reasons() []string {
	return decodeStrings(e.ReasonsJSON)
}

// SetRules stores the ids of the rules that fired.
func (e *Evaluation) SetRules(rules []string) {
	e.RulesJSON = encodeStrings(rules)
}

// Rules returns the ids of the rules that fired.
func (e *Evaluation) Rules() []string {
	return decodeStrings(e.RulesJSON)
}

func encodeStrings(values []string) string {
	if values == nil {
		return "[]"
	}
	payload, _ := json.Marshal(values)
	return string(payload)
}

func decodeStrings(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{}
	}
	if out == nil {
		return []string{}
	}
	return out
}
