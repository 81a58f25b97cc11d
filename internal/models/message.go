package models

// Message is one portal message flattened out of an unread thread.
// Threads the account is not allowed to open are represented by a single
// placeholder Message instead of an error.
type Message struct {
	Subject string `json:"subject"`
	Text    string `json:"text"`
	Sender  string `json:"sender"`
}
