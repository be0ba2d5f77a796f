package mentor

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"raizian-mentor-backend/internal/llm"
)

// MaxSuggestions caps the follow-up questions shown to the user.
const MaxSuggestions = 3

// Payload is the structured answer extracted from one model response. An
// empty Reply means the response carried none.
type Payload struct {
	Reply              string   `json:"reply"`
	SuggestedQuestions []string `json:"suggested_questions"`
	NextStepLabel      string   `json:"next_step_label"`
}

// Suggestions returns at most MaxSuggestions questions, in order.
func (p Payload) Suggestions() []string {
	n := len(p.SuggestedQuestions)
	if n > MaxSuggestions {
		n = MaxSuggestions
	}
	return append([]string{}, p.SuggestedQuestions[:n]...)
}

// ParseResponse extracts a Payload from a model response. It never fails:
//  1. a flattened text starting with '{' is decoded as an object;
//  2. otherwise the first candidate part's text is decoded;
//  3. text that does not decode becomes the literal reply;
//  4. with no text at all the zero Payload is returned.
func ParseResponse(resp *llm.Response) Payload {
	if text, ok := resp.FlatText(); ok && strings.HasPrefix(strings.TrimSpace(text), "{") {
		return decodeOrLiteral(text)
	}
	if text, ok := resp.PartText(); ok {
		return decodeOrLiteral(text)
	}
	if text, ok := resp.FlatText(); ok && strings.TrimSpace(text) != "" {
		return Payload{Reply: text}
	}
	return Payload{}
}

func decodeOrLiteral(text string) Payload {
	p, err := decodeStructured(text)
	if err != nil {
		return Payload{Reply: text}
	}
	return p
}

// decodeStructured requires a JSON object. Fields of the wrong type are
// ignored rather than failing the whole decode.
func decodeStructured(text string) (Payload, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return Payload{}, errors.Wrap(err, "decode structured reply")
	}
	if fields == nil {
		return Payload{}, errors.New("structured reply is not an object")
	}

	var p Payload
	p.Reply = rawString(fields["reply"])
	p.NextStepLabel = rawString(fields["next_step_label"])

	var items []json.RawMessage
	if raw, ok := fields["suggested_questions"]; ok && json.Unmarshal(raw, &items) == nil {
		for _, item := range items {
			var s string
			if string(item) != "null" && json.Unmarshal(item, &s) == nil {
				p.SuggestedQuestions = append(p.SuggestedQuestions, s)
			}
		}
	}
	return p, nil
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
