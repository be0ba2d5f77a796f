package mentor

import "sync"

type Author string

const (
	AuthorUser  Author = "user"
	AuthorModel Author = "model"
)

// Message is one transcript entry.
type Message struct {
	Author Author `json:"author"`
	Text   string `json:"text"`
}

// Transcript is an append-only list of messages. Positions never move; only
// model-authored entries may have their text replaced.
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds msg and returns its index.
func (t *Transcript) Append(msg Message) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msg)
	return len(t.messages) - 1
}

// Update replaces the text at index. It refuses user messages and unknown
// positions.
func (t *Transcript) Update(index int, text string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.messages) || t.messages[index].Author != AuthorModel {
		return false
	}
	t.messages[index].Text = text
	return true
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

func (t *Transcript) At(index int) (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if index < 0 || index >= len(t.messages) {
		return Message{}, false
	}
	return t.messages[index], true
}

func (t *Transcript) Snapshot() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}
