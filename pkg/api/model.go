package api

// AIModel is the public projection of a configured provider.
type AIModel struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

type AIModelsResponse struct {
	Models []AIModel `json:"models"`
}
