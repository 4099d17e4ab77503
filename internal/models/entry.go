// Package models defines the data models used by the Modelos catalog.
package models

// Entry represents a Modelos catalog entry
type Entry struct {
	ID            string   `json:"id"`
	Title         string   `json:"titulo"`
	Description   string   `json:"descricao"`
	Format        string   `json:"formato"`
	Discipline    string   `json:"disciplina"`
	DateLabel     string   `json:"data"`
	Link          string   `json:"link,omitempty"`
	Image         string   `json:"imagem,omitempty"`
	Categories    []string `json:"categorias"`
	Tags          []string `json:"tags"`
	Course        []string `json:"curso"`
	Area          []string `json:"area"`
	Technology    []string `json:"tecnologia"`
	Accessibility []string `json:"acessibilidade"`
}

// EntryCreate represents the request to create an entry
type EntryCreate struct {
	Title         string   `json:"titulo" validate:"required,max=200"`
	Description   string   `json:"descricao" validate:"required"`
	Format        string   `json:"formato" validate:"required"`
	Discipline    string   `json:"disciplina,omitempty"`
	DateLabel     string   `json:"data,omitempty"`
	Link          string   `json:"link,omitempty" validate:"omitempty,url"`
	Categories    []string `json:"categorias,omitempty" validate:"dive,required"`
	Tags          []string `json:"tags,omitempty" validate:"dive,required"`
	Course        []string `json:"curso,omitempty" validate:"dive,required"`
	Area          []string `json:"area,omitempty" validate:"dive,required"`
	Technology    []string `json:"tecnologia,omitempty" validate:"dive,required"`
	Accessibility []string `json:"acessibilidade,omitempty" validate:"dive,required"`
}

// EntryUpdate represents the request to update an entry.
// Nil fields are left untouched by the backend.
type EntryUpdate struct {
	Title         *string   `json:"titulo,omitempty" validate:"omitempty,min=1,max=200"`
	Description   *string   `json:"descricao,omitempty"`
	Format        *string   `json:"formato,omitempty" validate:"omitempty,min=1"`
	Discipline    *string   `json:"disciplina,omitempty"`
	DateLabel     *string   `json:"data,omitempty"`
	Link          *string   `json:"link,omitempty" validate:"omitempty,url"`
	Categories    *[]string `json:"categorias,omitempty"`
	Tags          *[]string `json:"tags,omitempty"`
	Course        *[]string `json:"curso,omitempty"`
	Area          *[]string `json:"area,omitempty"`
	Technology    *[]string `json:"tecnologia,omitempty"`
	Accessibility *[]string `json:"acessibilidade,omitempty"`
}

// EntryList represents the response from the list endpoint
type EntryList struct {
	Count   int     `json:"count"`
	Results []Entry `json:"results"`
}

// ImageUpload represents the response after uploading an entry image
type ImageUpload struct {
	ID    string `json:"id"`
	Image string `json:"imagem"`
}

// SavedList represents the ordered list of bookmarked entry IDs, oldest first
type SavedList struct {
	IDs []string `json:"ids"`
}
