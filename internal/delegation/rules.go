package delegation

// rule is one disqualifying condition of a level. When match holds the
// dossier leaves the level for target.
type rule struct {
	id     string
	reason string
	target Level
	match  func(Dossier) bool
}

// ruleTable maps each level to its ordered disqualifying conditions.
// Committee has none.
type ruleTable map[Level][]rule

func newRuleTable(policy Policy) ruleTable {
	return ruleTable{
		Branch: {
			{"DA.bct_class", "BCT class is not 0 (DA/DZ not competent)", CommercialPole, func(d Dossier) bool { return d.BCTClass != 0 }},
			{"DA.asset_type", "Asset excluded for the network (taxi/rental/specialized/used)", CommercialPole, func(d Dossier) bool { return d.AssetType.excludedFromNetwork() }},
			{"DA.months_active", "Relationship < 12 months (DA minimum)", Zone, func(d Dossier) bool { return d.MonthsActive < 12 }},
			{"DA.requested_amount", "Amount > 100 kDT (DA ceiling)", Zone, func(d Dossier) bool { return d.RequestedAmount > 100 }},
			{"DA.total_exposure", "Total exposure > 200 kDT (DA limit)", Zone, func(d Dossier) bool { return d.TotalExposure > 200 }},
			{"DA.first_installment", "First installment < 20% (DA threshold)", Zone, func(d Dossier) bool { return d.FirstInstallmentRatio < 20 }},
			{"DA.rate", "Rate < 15% (DA threshold)", Zone, func(d Dossier) bool { return d.Rate < 15.0 }},
			{"DA.expense_ratio", "Expense/income ratio >= 20% (routed to risk)", RiskPole, func(d Dossier) bool { return d.ExpenseToIncomeRatio >= 20 }},
		},
		Zone: {
			{"DZ.bct_class", "BCT class is not 0 (DZ not competent)", CommercialPole, func(d Dossier) bool { return d.BCTClass != 0 }},
			{"DZ.asset_type", "Asset excluded for the zone (taxi/used/specialized)", CommercialPole, func(d Dossier) bool { return d.AssetType.excludedFromNetwork() }},
			{"DZ.months_active", "Relationship < 6 months (DZ minimum)", CommercialPole, func(d Dossier) bool { return d.MonthsActive < 6 }},
			{"DZ.requested_amount", "Amount > 200 kDT (DZ ceiling)", CommercialPole, func(d Dossier) bool { return d.RequestedAmount > 200 }},
			{"DZ.total_exposure", "Total exposure > 400 kDT (DZ limit)", CommercialPole, func(d Dossier) bool { return d.TotalExposure > 400 }},
			{"DZ.first_installment", "First installment < 10% (DZ threshold)", CommercialPole, func(d Dossier) bool { return d.FirstInstallmentRatio < 10 }},
			{"DZ.rate", "Rate < 13.5% (DZ threshold)", CommercialPole, func(d Dossier) bool { return d.Rate < 13.5 }},
			{"DZ.expense_ratio", "Expense/income ratio >= 20% (routed to risk)", RiskPole, func(d Dossier) bool { return d.ExpenseToIncomeRatio >= 20 }},
		},
		CommercialPole: {
			{"CPC.bct_class", "BCT class > 1 (outside commercial authority)", RiskPole, func(d Dossier) bool { return d.BCTClass > 1 }},
			{"CPC.asset_type", "Specialized asset falls under the risk pole", RiskPole, func(d Dossier) bool { return d.AssetType == AssetSpecialized }},
			{"CPC.months_active", "Relationship < 6 months (CPC minimum)", RiskPole, func(d Dossier) bool { return d.MonthsActive < 6 }},
			{"CPC.requested_amount", "Amount > 300 kDT (CPC revolving ceiling)", RiskPole, func(d Dossier) bool { return d.RequestedAmount > 300 }},
			{"CPC.total_exposure", "Total exposure > 1 MDT (CPC limit)", RiskPole, func(d Dossier) bool { return d.TotalExposure > 1000 }},
			{"CPC.rate", "Rate < 12.5% (CPC threshold)", RiskPole, func(d Dossier) bool { return d.Rate < 12.5 }},
			{"CPC.expense_ratio", "Expense/income ratio >= 20%", RiskPole, func(d Dossier) bool { return d.ExpenseToIncomeRatio >= 20 }},
		},
		RiskPole: {
			{"CPR.bct_class", "BCT class > 1 (escalated to " + policy.RiskPoleBCTEscalation.String() + ")", policy.RiskPoleBCTEscalation, func(d Dossier) bool { return d.BCTClass > 1 }},
			{"CPR.requested_amount", "Amount > 650 kDT (CPR ceiling)", DeputyGeneralManager, func(d Dossier) bool { return d.RequestedAmount > 650 }},
			{"CPR.total_exposure", "Total exposure > 1.3 MDT (CPR limit)", DeputyGeneralManager, func(d Dossier) bool { return d.TotalExposure > 1300 }},
			{"CPR.rate", "Rate < 11.5% (CPR threshold)", DeputyGeneralManager, func(d Dossier) bool { return d.Rate < 11.5 }},
		},
		DeputyGeneralManager: {
			{"DGA.requested_amount", "Amount > 800 kDT (DGA ceiling)", Committee, func(d Dossier) bool { return d.RequestedAmount > 800 }},
			{"DGA.total_exposure", "Total exposure > 1.5 MDT (DGA limit)", Committee, func(d Dossier) bool { return d.TotalExposure > 1500 }},
			{"DGA.rate", "Rate < 11% (DGA threshold)", Committee, func(d Dossier) bool { return d.Rate < 11.0 }},
		},
		Committee: nil,
	}
}

// firstMatch returns the first rule of level that disqualifies d.
func (t ruleTable) firstMatch(level Level, d Dossier) (rule, bool) {
	for _, r := range t[level] {
		if r.match(d) {
			return r, true
		}
	}
	return rule{}, false
}

// checkUpward panics if any rule does not move to a strictly higher level.
func (t ruleTable) checkUpward() {
	for level, rules := range t {
		for _, r := range rules {
			if !r.target.Valid() || r.target <= level {
				panic("delegation: rule " + r.id + " does not escalate upward")
			}
		}
	}
}
