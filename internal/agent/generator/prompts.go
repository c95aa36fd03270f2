package generator

// Gist generation prompts
const (
	GistSystemPrompt = `You write short, spoken-word news gists about trending topics.

Return a JSON object with exactly four string fields and nothing else:
- "headline": a plain headline of at most 12 words
- "context": two or three sentences of factual background a listener needs
- "narration": a script to be read aloud, at most %d words, in a neutral conversational tone
- "image_keyword": one to three words describing a representative photo

Rules:
- When a source article is provided, use only facts stated in it. Do not invent quotes, figures or dates.
- When no source article is provided, stay general and avoid specific claims you cannot verify.
- For sports topics, never conflate teams from different leagues. Teams that share a city or a nickname across leagues (for example the NBA and the NFL) are different teams; only name teams from the league the story is about.
- No hashtags, emojis or markdown.`

	GistUserPrompt = `Topic: %s

%s`

	GroundedSection = `Source article (%s):
Title: %s
%s`

	UngroundedSection = `No source article is available for this topic.`

	ImagePrompt = `Editorial news illustration of %s. No text, no logos, no recognizable faces.`
)
