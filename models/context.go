package models

import "fmt"

// Context names a display surface that can host image placements.
type Context string

const (
	ContextOverview Context = "overview"
	ContextEvents   Context = "events"
	ContextPersonal Context = "personal"
	ContextInfo     Context = "info"
)

// ValidContexts is the full enumerated context set, in display order.
var ValidContexts = []Context{ContextOverview, ContextEvents, ContextPersonal, ContextInfo}

// IsValidContext reports whether ctx names a known display context.
func IsValidContext(ctx string) bool {
	for _, c := range ValidContexts {
		if string(c) == ctx {
			return true
		}
	}
	return false
}

// ContextList renders the valid contexts for use in error messages.
func ContextList() string {
	s := ""
	for i, c := range ValidContexts {
		if i > 0 {
			s += ", "
		}
		s += string(c)
	}
	return s
}

// LayoutType describes a named visual arrangement requiring a fixed
// number of images.
type LayoutType struct {
	ID         string
	Label      string
	ImageCount int
}

// LayoutTypes maps layout type ids to their definitions.
var LayoutTypes = map[string]LayoutType{
	"fullscreen-hero":  {ID: "fullscreen-hero", Label: "Fullscreen Hero", ImageCount: 1},
	"single-hero":      {ID: "single-hero", Label: "Single Hero", ImageCount: 1},
	"dual-horizontal":  {ID: "dual-horizontal", Label: "Dual Horizontal", ImageCount: 2},
	"triple-row":       {ID: "triple-row", Label: "Triple Row", ImageCount: 3},
	"asymmetric-left":  {ID: "asymmetric-left", Label: "Asymmetric Left", ImageCount: 2},
	"asymmetric-right": {ID: "asymmetric-right", Label: "Asymmetric Right", ImageCount: 2},
}

// GetLayoutType looks up a layout type by id.
func GetLayoutType(id string) (LayoutType, error) {
	lt, ok := LayoutTypes[id]
	if !ok {
		return LayoutType{}, fmt.Errorf("unknown layout type %q", id)
	}
	return lt, nil
}
