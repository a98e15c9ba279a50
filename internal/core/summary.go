package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthOverview is a compact summary for a specific year+month.
//
// Budget is the sum of the month's budgets and Remaining is Budget minus
// Total; Remaining goes negative when the month is over budget.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Total      Money
	ByCategory []CategoryAmount
	Budget     Money
	Remaining  Money
}
