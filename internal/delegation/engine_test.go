package delegation

import (
	"reflect"
	"strings"
	"sync"
	"testing"
)

func scenarioA() Dossier {
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

func TestEvaluateScenarios(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Dossier)
		expected    Level
		expectRules []string
	}{
		{"A branch qualifies", func(d *Dossier) {}, Branch, nil},
		{"B amount over branch ceiling", func(d *Dossier) { d.RequestedAmount = 120 }, Zone, []string{"DA.requested_amount"}},
		{"C bct class 2 climbs past commercial pole", func(d *Dossier) { d.BCTClass = 2 }, DeputyGeneralManager, []string{"DA.bct_class", "CPC.bct_class", "CPR.bct_class"}},
		{"D amount cascades to committee", func(d *Dossier) { d.RequestedAmount = 900 }, Committee, []string{"DA.requested_amount", "DZ.requested_amount", "CPC.requested_amount", "CPR.requested_amount", "DGA.requested_amount"}},
		{"bct class 1 stops at commercial pole", func(d *Dossier) { d.BCTClass = 1 }, CommercialPole, []string{"DA.bct_class"}},
		{"used asset skips zone", func(d *Dossier) { d.AssetType = AssetUsed }, CommercialPole, []string{"DA.asset_type"}},
		{"taxi skips zone", func(d *Dossier) { d.AssetType = AssetTaxiOrRental }, CommercialPole, []string{"DA.asset_type"}},
		{"specialized goes to risk pole", func(d *Dossier) { d.AssetType = AssetSpecialized }, RiskPole, []string{"DA.asset_type", "CPC.asset_type"}},
		{"young relationship", func(d *Dossier) { d.MonthsActive = 8 }, Zone, []string{"DA.months_active"}},
		{"very young relationship", func(d *Dossier) { d.MonthsActive = 3 }, RiskPole, []string{"DA.months_active", "DZ.months_active", "CPC.months_active"}},
		{"exposure over branch limit", func(d *Dossier) { d.TotalExposure = 250 }, Zone, []string{"DA.total_exposure"}},
		{"exposure over zone limit", func(d *Dossier) { d.TotalExposure = 500 }, CommercialPole, []string{"DA.total_exposure", "DZ.total_exposure"}},
		{"exposure over DGA limit", func(d *Dossier) { d.TotalExposure = 1600 }, Committee, []string{"DA.total_exposure", "DZ.total_exposure", "CPC.total_exposure", "CPR.total_exposure", "DGA.total_exposure"}},
		{"low first installment", func(d *Dossier) { d.FirstInstallmentRatio = 15 }, Zone, []string{"DA.first_installment"}},
		{"very low first installment", func(d *Dossier) { d.FirstInstallmentRatio = 5 }, CommercialPole, []string{"DA.first_installment", "DZ.first_installment"}},
		{"rate under branch threshold", func(d *Dossier) { d.Rate = 14 }, Zone, []string{"DA.rate"}},
		{"rate under zone threshold", func(d *Dossier) { d.Rate = 13 }, CommercialPole, []string{"DA.rate", "DZ.rate"}},
		{"rate under commercial threshold", func(d *Dossier) { d.Rate = 12 }, RiskPole, []string{"DA.rate", "DZ.rate", "CPC.rate"}},
		{"rate under risk threshold", func(d *Dossier) { d.Rate = 11.2 }, DeputyGeneralManager, []string{"DA.rate", "DZ.rate", "CPC.rate", "CPR.rate"}},
		{"rate under DGA threshold", func(d *Dossier) { d.Rate = 10.5 }, Committee, []string{"DA.rate", "DZ.rate", "CPC.rate", "CPR.rate", "DGA.rate"}},
		{"expense ratio at branch", func(d *Dossier) { d.ExpenseToIncomeRatio = 20 }, RiskPole, []string{"DA.expense_ratio"}},
		{"expense ratio at zone", func(d *Dossier) { d.ExpenseToIncomeRatio = 25; d.RequestedAmount = 150 }, RiskPole, []string{"DA.requested_amount", "DZ.expense_ratio"}},
		{"expense ratio at commercial pole", func(d *Dossier) { d.ExpenseToIncomeRatio = 25; d.BCTClass = 1 }, RiskPole, []string{"DA.bct_class", "CPC.expense_ratio"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := scenarioA()
			tc.mutate(&d)
			result := Evaluate(d)
			if result.Level != tc.expected {
				t.Fatalf("expected level %s got %s (reasons %v)", tc.expected, result.Level, result.Reasons)
			}
			rules := make([]string, 0, len(result.Steps))
			for _, step := range result.Steps {
				rules = append(rules, step.Rule)
			}
			if len(rules) != len(tc.expectRules) {
				t.Fatalf("expected rules %v got %v", tc.expectRules, rules)
			}
			for i := range rules {
				if rules[i] != tc.expectRules[i] {
					t.Fatalf("expected rules %v got %v", tc.expectRules, rules)
				}
			}
			if len(result.Reasons) != len(result.Steps) {
				t.Fatalf("expected one reason per step, got %d reasons for %d steps", len(result.Reasons), len(result.Steps))
			}
			if len(result.Path) != len(result.Steps)+1 || result.Path[0] != Branch || result.Path[len(result.Path)-1] != result.Level {
				t.Fatalf("unexpected path %v", result.Path)
			}
		})
	}
}

func TestEvaluateScenarioBReason(t *testing.T) {
	d := scenarioA()
	d.RequestedAmount = 120
	result := Evaluate(d)
	if len(result.Reasons) != 1 {
		t.Fatalf("expected one reason got %v", result.Reasons)
	}
	if !strings.Contains(result.Reasons[0], "Amount > 100") {
		t.Fatalf("unexpected reason %q", result.Reasons[0])
	}
}

func TestEvaluateBranchQualifyingHasNoReasons(t *testing.T) {
	for _, months := range []int{12, 24, 120} {
		for _, amount := range []float64{0, 50, 100} {
			for _, exposure := range []float64{0, 150, 200} {
				for _, first := range []float64{20, 30, 100} {
					for _, rate := range []float64{15, 16.5, 20} {
						for _, ratio := range []float64{0, 10, 19.99} {
							d := Dossier{
								MonthsActive:          months,
								AssetType:             AssetNewStandard,
								RequestedAmount:       amount,
								TotalExposure:         exposure,
								FirstInstallmentRatio: first,
								Rate:                  rate,
								ExpenseToIncomeRatio:  ratio,
							}
							result := Evaluate(d)
							if result.Level != Branch || !result.Standard() {
								t.Fatalf("expected branch without reasons for %+v, got %s %v", d, result.Level, result.Reasons)
							}
						}
					}
				}
			}
		}
	}
}

func sampleDossiers() []Dossier {
	var out []Dossier
	for _, bct := range []int{0, 1, 2} {
		for _, asset := range AssetTypes() {
			for _, months := range []int{0, 5, 8, 24} {
				for _, rate := range []float64{10, 12, 14, 16} {
					for _, ratio := range []float64{10, 20} {
						for _, exposure := range []float64{100, 300, 1200, 2000} {
							out = append(out, Dossier{
								BCTClass:              bct,
								MonthsActive:          months,
								AssetType:             asset,
								RequestedAmount:       80,
								TotalExposure:         exposure,
								FirstInstallmentRatio: 15,
								Rate:                  rate,
								ExpenseToIncomeRatio:  ratio,
							})
						}
					}
				}
			}
		}
	}
	return out
}

func TestEvaluateNonZeroBCTNeverStaysInNetwork(t *testing.T) {
	for _, d := range sampleDossiers() {
		if d.BCTClass == 0 {
			continue
		}
		result := Evaluate(d)
		if result.Level < CommercialPole {
			t.Fatalf("bct class %d resolved to %s for %+v", d.BCTClass, result.Level, d)
		}
	}
}

func TestEvaluateMonotonicInAmount(t *testing.T) {
	amounts := []float64{0, 50, 100, 100.5, 150, 200, 250, 300, 301, 500, 650, 700, 800, 801, 5000}
	for _, base := range sampleDossiers() {
		previous := Branch
		for _, amount := range amounts {
			d := base
			d.RequestedAmount = amount
			level := Evaluate(d).Level
			if level < previous {
				t.Fatalf("level decreased from %s to %s at amount %v for %+v", previous, level, amount, base)
			}
			previous = level
		}
	}
}

func TestEvaluateExpenseRatioRoutesToRiskPole(t *testing.T) {
	for _, d := range sampleDossiers() {
		result := Evaluate(d)
		for _, step := range result.Steps {
			if step.Rule == "DA.expense_ratio" || step.Rule == "DZ.expense_ratio" {
				if step.To != RiskPole {
					t.Fatalf("%s moved to %s", step.Rule, step.To)
				}
			}
			if (step.From == Branch || step.From == Zone) && step.To == CommercialPole && strings.Contains(step.Rule, "expense") {
				t.Fatalf("expense ratio routed to commercial pole: %+v", step)
			}
		}
	}
}

func TestEvaluateStepsAlwaysClimb(t *testing.T) {
	for _, d := range sampleDossiers() {
		result := Evaluate(d)
		if len(result.Steps) > 5 {
			t.Fatalf("more steps than levels: %v", result.Steps)
		}
		for _, step := range result.Steps {
			if step.To <= step.From {
				t.Fatalf("step does not climb: %+v", step)
			}
		}
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	d := scenarioA()
	d.BCTClass = 2
	d.RequestedAmount = 700
	first := Evaluate(d)

	var wg sync.WaitGroup
	results := make([]Result, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Evaluate(d)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		if !reflect.DeepEqual(first, r) {
			t.Fatalf("expected identical results, got %+v and %+v", first, r)
		}
	}
}

func TestEvaluateNegativeInputsAreLiteral(t *testing.T) {
	d := scenarioA()
	d.RequestedAmount = -50
	d.TotalExposure = -1
	if got := Evaluate(d).Level; got != Branch {
		t.Fatalf("expected branch got %s", got)
	}

	d = scenarioA()
	d.MonthsActive = -1
	if got := Evaluate(d).Level; got != RiskPole {
		t.Fatalf("expected risk pole got %s", got)
	}
}

func TestEngineRiskPoleBCTRouteIsConfigurable(t *testing.T) {
	policy := DefaultPolicy()
	policy.RiskPoleBCTEscalation = Committee
	engine, err := NewEngine(policy)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	d := scenarioA()
	d.BCTClass = 2
	result := engine.Evaluate(d)
	if result.Level != Committee {
		t.Fatalf("expected committee got %s", result.Level)
	}
	last := result.Steps[len(result.Steps)-1]
	if last.Rule != "CPR.bct_class" || last.To != Committee {
		t.Fatalf("unexpected last step %+v", last)
	}
}

func TestNewEngineRejectsDownwardRoute(t *testing.T) {
	policy := DefaultPolicy()
	policy.RiskPoleBCTEscalation = Zone
	if _, err := NewEngine(policy); err == nil {
		t.Fatal("expected error for downward route")
	}
}

func TestEvaluateUnknownAssetPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown asset type")
		}
	}()
	d := scenarioA()
	d.AssetType = AssetType("BOAT")
	Evaluate(d)
}
