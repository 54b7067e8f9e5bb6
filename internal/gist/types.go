package gist

import "time"

// Handle identifies a remote document without carrying its content.
type Handle struct {
	ID          string
	Description string
	UpdatedAt   time.Time
}

// Document is a full remote document: its handle plus the named content
// blobs ("files" in gist terms).
type Document struct {
	Handle
	Files map[string]string
}

// wire types for the gist REST API

type apiGist struct {
	ID          string             `json:"id"`
	Description string             `json:"description"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Files       map[string]apiFile `json:"files"`
}

type apiFile struct {
	Filename  string `json:"filename"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
	RawURL    string `json:"raw_url"`
}

type apiGistRequest struct {
	Description string                   `json:"description,omitempty"`
	Public      bool                     `json:"public"`
	Files       map[string]apiFileUpload `json:"files"`
}

type apiFileUpload struct {
	Content string `json:"content"`
}

type apiErrorBody struct {
	Message string `json:"message"`
}

func (g *apiGist) handle() *Handle {
	return &Handle{
		ID:          g.ID,
		Description: g.Description,
		UpdatedAt:   g.UpdatedAt,
	}
}

func (g *apiGist) document() *Document {
	doc := &Document{
		Handle: *g.handle(),
		Files:  make(map[string]string, len(g.Files)),
	}
	for name, f := range g.Files {
		doc.Files[name] = f.Content
	}
	return doc
}
