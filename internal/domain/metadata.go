package domain

import (
	"fmt"
	"strings"
)

// DefaultCreator is stamped as creator and producer of every document.
const DefaultCreator = "PDF Workbench"

// Metadata field names accepted by SetField.
const (
	MetaAuthor       = "author"
	MetaTitle        = "title"
	MetaSubject      = "subject"
	MetaKeywords     = "keywords"
	MetaCreator      = "creator"
	MetaProducer     = "producer"
	MetaCreationDate = "creationDate"
	MetaModDate      = "modDate"
)

// Metadata is the document information written on save. An empty string
// means the field is unset.
type Metadata struct {
	Author       string `json:"author,omitempty"`
	Title        string `json:"title,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Keywords     string `json:"keywords,omitempty"`
	Creator      string `json:"creator,omitempty"`
	Producer     string `json:"producer,omitempty"`
	CreationDate string `json:"creationDate,omitempty"`
	ModDate      string `json:"modDate,omitempty"`
}

// DefaultMetadata returns metadata with creator and producer set.
func DefaultMetadata() Metadata {
	return Metadata{Creator: DefaultCreator, Producer: DefaultCreator}
}

// SetField assigns value to the named field.
func (m *Metadata) SetField(field, value string) error {
	switch field {
	case MetaAuthor:
		m.Author = value
	case MetaTitle:
		m.Title = value
	case MetaSubject:
		m.Subject = value
	case MetaKeywords:
		m.Keywords = value
	case MetaCreator:
		m.Creator = value
	case MetaProducer:
		m.Producer = value
	case MetaCreationDate:
		m.CreationDate = value
	case MetaModDate:
		m.ModDate = value
	default:
		return NewValidationError("field", fmt.Sprintf("unknown metadata field %q", field))
	}
	return nil
}

// Fields returns the set fields keyed by their field name.
func (m Metadata) Fields() map[string]string {
	all := map[string]string{
		MetaAuthor:       m.Author,
		MetaTitle:        m.Title,
		MetaSubject:      m.Subject,
		MetaKeywords:     m.Keywords,
		MetaCreator:      m.Creator,
		MetaProducer:     m.Producer,
		MetaCreationDate: m.CreationDate,
		MetaModDate:      m.ModDate,
	}
	for k, v := range all {
		if strings.TrimSpace(v) == "" {
			delete(all, k)
		}
	}
	return all
}
