package model

// SearchCriteria is a partial transaction projection used to locate a record
// for update or delete. Nil fields were not specified by the user. It is
// never persisted.
type SearchCriteria struct {
	Type        *TransactionType
	Category    *string
	Amount      *float64
	Day         *int
	Month       *int
	Year        *int
	Description []string // fuzzy one-word search terms
}

// UpdatePatch maps field names to replacement values. Only keys present in
// the patch are applied; values arrive as the model produced them and are
// coerced at application time.
type UpdatePatch map[string]any

// SearchAndPatch pairs the locate criteria with the fields to change.
type SearchAndPatch struct {
	Search  SearchCriteria
	Updates UpdatePatch
}
