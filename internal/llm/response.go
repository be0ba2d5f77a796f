package llm

import "strings"

// Response is the envelope returned by a model call. Providers fill whichever
// shape they support: a flattened Text field, the nested candidate list, or
// both.
type Response struct {
	Text       *string     `json:"text,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

type Candidate struct {
	Content *Content `json:"content,omitempty"`
}

type Content struct {
	Parts []Part `json:"parts,omitempty"`
}

type Part struct {
	Text string `json:"text,omitempty"`
}

// TextResponse builds a Response carrying text in both shapes.
func TextResponse(text string) *Response {
	return &Response{
		Text:       &text,
		Candidates: []Candidate{{Content: &Content{Parts: []Part{{Text: text}}}}},
	}
}

// FlatText returns the flattened text field when the envelope has one.
func (r *Response) FlatText() (string, bool) {
	if r == nil || r.Text == nil {
		return "", false
	}
	return *r.Text, true
}

// PartText returns candidates[0].content.parts[0].text when it is non-empty.
func (r *Response) PartText() (string, bool) {
	if r == nil || len(r.Candidates) == 0 {
		return "", false
	}
	c := r.Candidates[0].Content
	if c == nil || len(c.Parts) == 0 || c.Parts[0].Text == "" {
		return "", false
	}
	return c.Parts[0].Text, true
}

// joinParts concatenates the text parts of a candidate.
func joinParts(parts []Part) (string, bool) {
	var b strings.Builder
	found := false
	for _, p := range parts {
		if p.Text == "" {
			continue
		}
		found = true
		b.WriteString(p.Text)
	}
	return b.String(), found
}
