package transcript

import "github.com/malonaz/aichat/chat"

// RowKind is the kind of a rendered row.
type RowKind int

const (
	// RowHuman is a message of the signed in user, rendered as plain text.
	RowHuman RowKind = iota
	// RowAI is a message of the AI, rendered as markdown.
	RowAI
	// RowThinking is the transient placeholder shown while an AI turn is in flight.
	RowThinking
)

// Row is a single rendered row of the transcript.
type Row struct {
	Kind    RowKind
	Message *chat.Message
}

// Rows lays out the messages of the active chat for userID, followed by the thinking
// placeholder when thinking is set.
func (t *Transcript) Rows(userID string, thinking bool) []Row {
	messages := t.Messages()
	rows := make([]Row, 0, len(messages)+1)
	for _, message := range messages {
		kind := RowAI
		if message.IsFrom(userID) {
			kind = RowHuman
		}
		rows = append(rows, Row{Kind: kind, Message: message})
	}
	if thinking {
		rows = append(rows, Row{Kind: RowThinking})
	}
	return rows
}
