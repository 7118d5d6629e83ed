package model

// History is the ordered conversation of one run. Values are snapshots:
// Append copies, so a History handed to a step never changes underneath it.
type History []Message

// Append returns a new snapshot with msgs added.
func (h History) Append(msgs ...Message) History {
	next := make(History, len(h), len(h)+len(msgs))
	copy(next, h)
	return append(next, msgs...)
}

// Last returns the most recent message.
func (h History) Last() (Message, bool) {
	if len(h) == 0 {
		return Message{}, false
	}
	return h[len(h)-1], true
}

// CountToolResults counts tool-result messages.
func (h History) CountToolResults() int {
	n := 0
	for _, m := range h {
		if m.IsToolResult() {
			n++
		}
	}
	return n
}

// Question returns the first human input, or "".
func (h History) Question() string {
	for _, m := range h {
		if m.Type == MessageHuman {
			return m.Content
		}
	}
	return ""
}
