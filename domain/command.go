package domain

// PostMessageCommand carries an append request. Both fields are free text
// and are stored as given, empty values included.
type PostMessageCommand struct {
	NickName string
	Text     string
}
