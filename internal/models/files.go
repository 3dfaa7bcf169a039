package models

// GeneratedFile is a single file produced by code generation
type GeneratedFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// CodeResponse is the body of POST /chat/code/{id}
type CodeResponse struct {
	Success bool            `json:"success"`
	Files   []GeneratedFile `json:"files,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// DeployRequest is the body of POST /deploy
type DeployRequest struct {
	Files []GeneratedFile `json:"files"`
}

// DeployResponse is the body returned by POST /deploy
type DeployResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}
