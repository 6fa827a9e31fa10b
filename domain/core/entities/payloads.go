package entities

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	pkgerrors "storycanvas/pkg/errors"
)

// Payload is the typed content of a node. Each kind maps to exactly one
// payload type, so rendering and template validation dispatch on concrete
// types instead of switching on strings everywhere.
type Payload interface {
	PayloadKind() NodeKind
}

// TextPayload is free-form prose
type TextPayload struct {
	Text string `json:"text" validate:"max=50000"`
}

func (TextPayload) PayloadKind() NodeKind { return KindText }

// CharacterPayload describes a story character
type CharacterPayload struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Role        string   `json:"role,omitempty" validate:"max=200"`
	Description string   `json:"description,omitempty" validate:"max=20000"`
	Traits      []string `json:"traits,omitempty" validate:"max=50,dive,max=100"`
}

func (CharacterPayload) PayloadKind() NodeKind { return KindCharacter }

// EventPayload describes a plot event
type EventPayload struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description,omitempty" validate:"max=20000"`
	When        string `json:"when,omitempty" validate:"max=200"`
}

func (EventPayload) PayloadKind() NodeKind { return KindEvent }

// LocationPayload describes a place in the story world
type LocationPayload struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description,omitempty" validate:"max=20000"`
}

func (LocationPayload) PayloadKind() NodeKind { return KindLocation }

// FolderPayload labels a door into a child canvas
type FolderPayload struct {
	Label string `json:"label,omitempty" validate:"max=200"`
}

func (FolderPayload) PayloadKind() NodeKind { return KindFolder }

// ImagePayload references an externally stored image
type ImagePayload struct {
	URL string `json:"url" validate:"required,url"`
	Alt string `json:"alt,omitempty" validate:"max=500"`
}

func (ImagePayload) PayloadKind() NodeKind { return KindImage }

// ListPayload titles an ordered container of child nodes
type ListPayload struct {
	Title string `json:"title,omitempty" validate:"max=200"`
}

func (ListPayload) PayloadKind() NodeKind { return KindList }

// TablePayload carries tabular cell data
type TablePayload struct {
	Columns []string   `json:"columns" validate:"required,min=1,max=50,dive,max=200"`
	Rows    [][]string `json:"rows,omitempty" validate:"max=1000"`
}

func (TablePayload) PayloadKind() NodeKind { return KindTable }

var payloadValidator = validator.New()

// DecodePayload decodes raw content into the payload type for the given
// kind and validates it against the kind's schema. The store never calls
// this on live mutations; the template loader calls it so blueprint
// content is rejected up front instead of trusted blindly.
func DecodePayload(kind NodeKind, raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	var payload Payload
	switch kind {
	case KindText:
		payload = &TextPayload{}
	case KindCharacter:
		payload = &CharacterPayload{}
	case KindEvent:
		payload = &EventPayload{}
	case KindLocation:
		payload = &LocationPayload{}
	case KindFolder:
		payload = &FolderPayload{}
	case KindImage:
		payload = &ImagePayload{}
	case KindList:
		payload = &ListPayload{}
	case KindTable:
		payload = &TablePayload{}
	default:
		return nil, pkgerrors.NewValidationError("unknown node kind: " + string(kind))
	}

	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, pkgerrors.NewValidationError("malformed " + string(kind) + " payload: " + err.Error())
	}
	if err := payloadValidator.Struct(payload); err != nil {
		return nil, pkgerrors.NewValidationError("invalid " + string(kind) + " payload: " + err.Error())
	}
	if tp, ok := payload.(*TablePayload); ok {
		for _, row := range tp.Rows {
			if len(row) != len(tp.Columns) {
				return nil, pkgerrors.NewValidationError("table row width does not match column count")
			}
		}
	}
	return payload, nil
}
