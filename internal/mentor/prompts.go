package mentor

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const defaultSystem = `You are Raizian AI, the official mentor intelligence of the Raizian.
Your mission is to guide learners through a personalized, realistic, and goal-driven roadmap that helps them learn, grow, and succeed in their chosen skill domain.
Follow these guidelines strictly:
Objectives:
1) Teach step-by-step; never dump everything at once.
2) Each reply: 3-6 short sentences max, friendly and professional. Use at most 2 relevant emojis.
3) Always end with exactly one follow-up question.
4) Confirm the user's goal, then propose one tiny next action.
5) Prefer examples and micro-tasks; offer "Want more depth?" instead of auto-dumping.
6) If uncertain, ask a clarifying question.
7) Output must be JSON with keys: reply, suggested_questions (3 short items), next_step_label.
`

const defaultSchemaHint = `Always respond in JSON with keys:
reply (3-6 short sentences, <=2 emojis, end with 1 question),
suggested_questions (3 short items),
next_step_label (CTA).`

// QuickPrompt is a canned conversation starter shown on the home page.
type QuickPrompt struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Prompt      string `yaml:"prompt" json:"prompt"`
	Icon        string `yaml:"icon" json:"icon"`
}

// Copy holds the fixed user-facing strings of the pipeline.
type Copy struct {
	InitFailure    string `yaml:"init_failure"`
	RequestFailure string `yaml:"request_failure"`
	MissingReply   string `yaml:"missing_reply"`
}

type Prompts struct {
	System       string        `yaml:"system"`
	SchemaHint   string        `yaml:"schema_hint"`
	Greeting     string        `yaml:"greeting"`
	Placeholder  string        `yaml:"placeholder"`
	Copy         Copy          `yaml:"copy"`
	QuickPrompts []QuickPrompt `yaml:"quick_prompts"`
}

func DefaultPrompts() *Prompts {
	return &Prompts{
		System:      defaultSystem,
		SchemaHint:  defaultSchemaHint,
		Greeting:    "Hey there 👋 I'm Raizian Mentor. Let's build your learning roadmap step by step! What skill or goal are you focusing on today?",
		Placeholder: "...",
		Copy: Copy{
			InitFailure:    "There was an error initializing the AI. Please check your API key and refresh.",
			RequestFailure: "Oops! Something went wrong while getting a response. Please try again.",
			MissingReply:   "Oops! I couldn't find a reply. Please try again.",
		},
		QuickPrompts: []QuickPrompt{
			{
				Title:       "Build a Skill Roadmap",
				Description: "Get a step-by-step learning plan for any skill like web dev, AI, or design.",
				Prompt:      "Create a learning roadmap for becoming a front-end developer",
				Icon:        "🚀",
			},
			{
				Title:       "Learn Something New",
				Description: "Let's start from scratch. I'll guide you through basics to advanced.",
				Prompt:      "Teach me the basics of JavaScript in a structured way",
				Icon:        "📘",
			},
			{
				Title:       "Career Guidance",
				Description: "Ask AI about trending skills, job paths, and what to learn next.",
				Prompt:      "Which tech skills are high in demand for 2025?",
				Icon:        "💼",
			},
			{
				Title:       "AI Productivity",
				Description: "Use Raizian for real-life help: study plans, projects, and goal setup.",
				Prompt:      "Make me a 30-day learning plan for AI tools and automation",
				Icon:        "🤖",
			},
		},
	}
}

// LoadPrompts reads a prompt file. Fields left empty keep their defaults.
func LoadPrompts(path string) (*Prompts, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read prompts %s", path)
	}
	var p Prompts
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, errors.Wrapf(err, "parse prompts %s", path)
	}
	p.fillDefaults()
	return &p, nil
}

func (p *Prompts) fillDefaults() {
	d := DefaultPrompts()
	setDefault(&p.System, d.System)
	setDefault(&p.SchemaHint, d.SchemaHint)
	setDefault(&p.Greeting, d.Greeting)
	setDefault(&p.Placeholder, d.Placeholder)
	setDefault(&p.Copy.InitFailure, d.Copy.InitFailure)
	setDefault(&p.Copy.RequestFailure, d.Copy.RequestFailure)
	setDefault(&p.Copy.MissingReply, d.Copy.MissingReply)
	if len(p.QuickPrompts) == 0 {
		p.QuickPrompts = d.QuickPrompts
	}
}

func setDefault(field *string, def string) {
	if strings.TrimSpace(*field) == "" {
		*field = def
	}
}

// Compose prefixes the user's text with the response schema hint.
func (p *Prompts) Compose(userText string) string {
	return strings.TrimSpace(p.SchemaHint) + "\n\nUser: " + userText
}
