package processors

// MatchOutcome is either a matched company record or NoCompanyRecord (Matched == false).
type MatchOutcome struct {
	Matched bool
	Company normalizedCompany
}

// Match looks up a bank record and consumes the earliest-issued unconsumed candidate.
// Amounts play no part here; they are compared during classification.
func Match(bank normalizedBank, idx *ChequeIndex) MatchOutcome {
	for _, c := range idx.byKey[bank.key] {
		if c.consumed {
			continue
		}
		c.consumed = true
		return MatchOutcome{Matched: true, Company: c.company}
	}
	return MatchOutcome{}
}
