package model

// Article is the output of the external content generator
type Article struct {
	Content         string
	MetaTitle       string
	MetaDescription string
	Images          []ArticleImage
	Citations       []string
}

// ArticleImage is one image reference produced with an article
type ArticleImage struct {
	URL     string
	AltText string
}

// GenerateRequest describes what the content generator should produce
type GenerateRequest struct {
	Topic    string
	Keywords []string
	SiteURL  string
	Language string
}
