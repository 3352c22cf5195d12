package model

// User is a registered WhatsApp sender, keyed by phone number. Users sharing
// a FamilyID see and can mutate each other's transactions.
type User struct {
	UserID   string
	Name     string
	Number   string // phone number without the whatsapp: prefix
	FamilyID string
}
