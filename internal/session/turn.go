package session

// TurnRequest is the full input for one tutoring turn. FilePaths and
// IndexFolders are parallel lists describing the documents in scope.
type TurnRequest struct {
	Session      Session  `json:"session"`
	Question     string   `json:"question"`
	FilePaths    []string `json:"file_paths"`
	IndexFolders []string `json:"index_folders"`
}

// TurnResponse is the structured outcome of one tutoring turn.
type TurnResponse struct {
	Answer            string   `json:"answer"`
	Thinking          string   `json:"thinking,omitempty"`
	FollowUpQuestions []string `json:"follow_up_questions"`
	// Sources maps source identifiers (text excerpts or image URLs) to
	// relevance scores in [0, 1].
	Sources map[string]float64 `json:"sources"`
	// SourcePages maps every retrieved candidate to its 0-indexed page.
	SourcePages map[string]int `json:"source_pages"`
	// RefinedSourcePages maps surviving sources to 1-indexed pages.
	RefinedSourcePages map[string]int `json:"refined_source_pages"`
	// RefinedSourceIndex maps surviving sources to 1-based document positions.
	RefinedSourceIndex map[string]int `json:"refined_source_index"`
}
