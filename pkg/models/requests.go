package models

// CreateDocumentRequest is the body of POST /api/documents/
type CreateDocumentRequest struct {
	Content  string   `json:"content" binding:"required"`
	Metadata Metadata `json:"metadata"`
}

// QueryRequest is the body of POST /api/query/
type QueryRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
	Model string `json:"model"`
}

// DefaultTopK is applied when a query does not specify top_k
const DefaultTopK = 3
