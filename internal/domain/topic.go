package domain

// Topic is what a discussion is about. Fetched from the topic collaborator
// on session start; FallbackTopic covers collaborator failure.
type Topic struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Prompts     []string `json:"prompts,omitempty"`
}

// FallbackTopic is the static topic used when the topic source is
// unreachable. Session start must never fail on topic-source failure.
func FallbackTopic() Topic {
	return Topic{
		Title:       "Free discussion",
		Description: "The topic service was unavailable, so talk about whatever is on your mind.",
		Category:    "general",
		Prompts: []string{
			"What has been on your mind this week?",
			"What is something you changed your opinion on recently?",
		},
	}
}
