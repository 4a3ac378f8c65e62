package models

// ConversationTurn is one completed question/answer pair in a session's history.
type ConversationTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Answer is the result of one conversational retrieval call.
// Sources are exactly the retrieved entries used as context, in retrieval order.
type Answer struct {
	Question           string        `json:"question"`
	StandaloneQuestion string        `json:"standalone_question"`
	Text               string        `json:"answer"`
	Sources            []ScoredChunk `json:"sources"`
}

// Turn returns the history entry for this answer.
func (a *Answer) Turn() ConversationTurn {
	return ConversationTurn{Question: a.Question, Answer: a.Text}
}
