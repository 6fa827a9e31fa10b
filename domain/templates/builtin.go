package templates

import (
	"embed"

	"storycanvas/domain/core/entities"
	pkgerrors "storycanvas/pkg/errors"
)

//go:embed builtin/*.json
var builtinFS embed.FS

// LoadBuiltin parses the templates shipped with the engine and returns a
// registry with the standard bindings: the story overview for the "main"
// canvas, and the character folder template for canvases tagged
// "characters-" or owned by a character node.
func LoadBuiltin() (*Registry, error) {
	mainTpl, err := loadBuiltinFile("builtin/main.json")
	if err != nil {
		return nil, err
	}
	charTpl, err := loadBuiltinFile("builtin/characters.json")
	if err != nil {
		return nil, err
	}

	reg := NewRegistry()
	reg.BindExact("main", mainTpl)
	reg.BindPrefix("characters", charTpl)
	reg.BindKind(entities.KindCharacter, charTpl)
	return reg, nil
}

func loadBuiltinFile(name string) (*Template, error) {
	data, err := builtinFS.ReadFile(name)
	if err != nil {
		return nil, pkgerrors.NewInternalError("missing builtin template " + name).WithCause(err)
	}
	return Parse(data)
}
