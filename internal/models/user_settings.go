package models

// UserSettings is the single, process-wide settings record backing the
// settings panel. Every field has a documented default; fields that come
// back from storage out of range are replaced individually, never the
// whole record.
type UserSettings struct {
	QuestionTopK  int     `json:"questionTopK"`
	MinSimilarity float64 `json:"minSimilarity"`
	ServerURL     string  `json:"serverUrl"`
	ServerPort    int     `json:"serverPort"`
	VectorSetName string  `json:"vectorSetName"`
}

const (
	DefaultQuestionTopK  = 5
	DefaultMinSimilarity = 0.7
	DefaultServerURL     = "http://localhost"
	DefaultServerPort    = 5001
	DefaultVectorSetName = "memories"
)

// DefaultUserSettings returns the hard-coded defaults used at first run
// and as the per-field fallback when stored values fail validation.
func DefaultUserSettings() UserSettings {
	return UserSettings{
		QuestionTopK:  DefaultQuestionTopK,
		MinSimilarity: DefaultMinSimilarity,
		ServerURL:     DefaultServerURL,
		ServerPort:    DefaultServerPort,
		VectorSetName: DefaultVectorSetName,
	}
}

// UserSettingsPatch carries a partial update; nil fields are left alone.
type UserSettingsPatch struct {
	QuestionTopK  *int     `json:"questionTopK,omitempty"`
	MinSimilarity *float64 `json:"minSimilarity,omitempty"`
	ServerURL     *string  `json:"serverUrl,omitempty"`
	ServerPort    *int     `json:"serverPort,omitempty"`
	VectorSetName *string  `json:"vectorSetName,omitempty"`
}
