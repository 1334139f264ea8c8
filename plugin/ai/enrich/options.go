package enrich

// Options holds the tunables of the enrichment service. It is copied into the
// service at construction and never modified afterwards.
type Options struct {
	SummaryMaxTokens   int
	SummaryTemperature float32
	SummaryPrompt      string

	TagsMaxTokens   int
	TagsTemperature float32
	TagsPrompt      string
	// MaxTags caps the normalized tag list; 0 keeps every tag.
	MaxTags int

	// DefaultTopN is used when FindRelatedNotes gets a non-positive topN.
	DefaultTopN int
}

const summaryPrompt = `You summarize personal notes.
Write a concise summary of the note in one to three sentences.
Use the language of the note. Return only the summary text.`

const tagsPrompt = `You label personal notes with keyword tags.
Suggest 3 to 5 short tags (1 to 3 words each) for the note.
Prefer common categories and concrete topic names.
Return only a comma-separated list, for example: golang, concurrency, testing`

// DefaultOptions returns the production tunables.
func DefaultOptions() Options {
	return Options{
		SummaryMaxTokens:   200,
		SummaryTemperature: 0.5,
		SummaryPrompt:      summaryPrompt,
		TagsMaxTokens:      50,
		TagsTemperature:    0.3,
		TagsPrompt:         tagsPrompt,
		MaxTags:            8,
		DefaultTopN:        5,
	}
}
