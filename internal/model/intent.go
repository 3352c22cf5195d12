package model

// IntentName is one member of the closed intent taxonomy.
type IntentName string

// The intent taxonomy. OTHER doubles as the degraded result when the
// classifier cannot reach the model.
const (
	IntentInputName            IntentName = "INPUT_NAME"
	IntentCreateTransaction    IntentName = "CREATE_TRANSACTION"
	IntentUpdateTransaction    IntentName = "UPDATE_TRANSACTION"
	IntentDeleteTransaction    IntentName = "DELETE_TRANSACTION"
	IntentAnalyticsRequest     IntentName = "ANALYTICS_REQUEST"
	IntentMultipleTransactions IntentName = "MULTIPLE_TRANSACTIONS"
	IntentOther                IntentName = "OTHER"
)

// IntentNames lists the taxonomy in prompt order.
var IntentNames = []IntentName{
	IntentInputName,
	IntentCreateTransaction,
	IntentUpdateTransaction,
	IntentDeleteTransaction,
	IntentAnalyticsRequest,
	IntentMultipleTransactions,
	IntentOther,
}

// Intent is a tagged variant: either a taxonomy member, or the model's raw
// free-text answer when the response matched no taxonomy entry. The
// classification prompt tells the model to answer OTHER-intent questions
// directly, so in the free-text case the raw text IS the reply.
type Intent struct {
	Name     IntentName
	Freeform string
}

// KnownIntent wraps a taxonomy member.
func KnownIntent(name IntentName) Intent {
	return Intent{Name: name}
}

// FreeformIntent wraps a non-taxonomy model response. Routing treats it as
// OTHER, with the text preserved as the answer.
func FreeformIntent(text string) Intent {
	return Intent{Name: IntentOther, Freeform: text}
}

// IsKnown reports whether the intent is a plain taxonomy member.
func (i Intent) IsKnown() bool {
	return i.Freeform == ""
}

// KnownIntentName reports whether s is a member of the taxonomy.
func KnownIntentName(s string) bool {
	for _, n := range IntentNames {
		if string(n) == s {
			return true
		}
	}
	return false
}
