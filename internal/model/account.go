package model

// Account is one bank account tracked in bankfeed.yaml.
type Account struct {
	ID   string
	Name string
	Bank string
}

// AccountHolder is a family member who can own cards on an account.
type AccountHolder struct {
	Name     string
	LastFour int // last 4 digits of the member's card
}
