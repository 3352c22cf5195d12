package model

// MonthlySummary holds the income and expense totals for one calendar month.
type MonthlySummary struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

// YearlySummary aggregates a family's totals keyed by year then month.
// It is the shape consumed by the reporting collaborator.
type YearlySummary map[int]map[int]MonthlySummary

// Add accumulates an amount into the summary, extending it as needed.
// Negative deltas (from deletes and downward updates) are clamped at zero.
func (y YearlySummary) Add(year, month int, typ TransactionType, amount float64) {
	months, ok := y[year]
	if !ok {
		months = make(map[int]MonthlySummary)
		y[year] = months
	}
	s := months[month]
	switch typ {
	case TypeIncome:
		s.Income += amount
		if s.Income < 0 {
			s.Income = 0
		}
	case TypeExpense:
		s.Expense += amount
		if s.Expense < 0 {
			s.Expense = 0
		}
	}
	months[month] = s
}
