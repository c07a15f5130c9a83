package models

// SourceDocument is one legal text registered for ingestion.
type SourceDocument struct {
	Path      string `yaml:"path" json:"path"`
	SourceTag string `yaml:"source" json:"source"`
}

type ChunkMetadata struct {
	Source        string `json:"source"`
	SourceFile    string `json:"source_file"`
	ArticleNumber int    `json:"article_number"`
	ArticleTitle  string `json:"article_title"`
	ClauseNumber  int    `json:"clause_number"`
}

// Chunk is a single Article/Clause unit of a legal document.
type Chunk struct {
	ID       string        `json:"id"`
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

type RetrievedChunk struct {
	Chunk
	Score float64 `json:"score"`
}

type Role string

const (
	RoleHuman Role = "human"
	RoleAI    Role = "ai"
)

// Message is one turn of a conversation as kept in session history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func HumanMessage(content string) Message {
	return Message{Role: RoleHuman, Content: content}
}

func AIMessage(content string) Message {
	return Message{Role: RoleAI, Content: content}
}

// Page is a fetched web page holding a legal text, split into paragraphs.
type Page struct {
	URL        string
	Title      string
	Paragraphs []string
	Metadata   map[string]interface{}
}
