package agents

import (
	"context"
	"time"
)

type Translator interface {
	Translate(text, lang string) string
}

type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Category  string    `json:"category"`
	Language  string    `json:"language"`
	Likes     int       `json:"likes"`
	Replies   int       `json:"replies"`
	Timestamp time.Time `json:"timestamp"`
}

type CommunityAgent struct {
	translator Translator
	now        func() time.Time
}

func NewCommunityAgent(tr Translator) *CommunityAgent {
	return &CommunityAgent{translator: tr, now: time.Now}
}

func (a *CommunityAgent) Name() string { return "community" }
func (a *CommunityAgent) Role() string { return "Community support and multilingual services" }
func (a *CommunityAgent) Actions() []string {
	return []string{"translate", "get_posts"}
}

func (a *CommunityAgent) Process(_ context.Context, t Task) (any, error) {
	switch t.Action {
	case "translate":
		if err := t.require("text"); err != nil {
			return nil, err
		}
		return a.translator.Translate(t.Param("text"), t.Param("target_language")), nil
	case "get_posts":
		return a.posts(t.Param("category"), t.Param("language")), nil
	default:
		return nil, unknownAction(a.Name(), t.Action)
	}
}

func (a *CommunityAgent) posts(category, language string) []Post {
	if category == "" {
		category = "all"
	}
	if language == "" {
		language = "en"
	}
	now := a.now().UTC()
	all := []Post{
		{
			ID: "1", Title: "How to apply for birth certificate?",
			Content: "Step-by-step guide for birth certificate application...",
			Author:  "Admin", Category: "help", Language: "en", Likes: 25, Replies: 8,
			Timestamp: now.Add(-48 * time.Hour),
		},
		{
			ID: "2", Title: "Income certificate processing time",
			Content: "Current processing time is 3-5 working days...",
			Author:  "Support Team", Category: "updates", Language: "en", Likes: 15, Replies: 3,
			Timestamp: now.Add(-24 * time.Hour),
		},
	}

	out := []Post{}
	for _, p := range all {
		if (category == "all" || p.Category == category) && p.Language == language {
			out = append(out, p)
		}
	}
	return out
}
