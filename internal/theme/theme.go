package theme

import (
	"image/color"
	"reflect"
)

// Theme defines the colour palette of the canvas and the window chrome.
type Theme struct {
	Name string

	// Chrome
	Background        color.RGBA // Behind the map
	Foreground        color.RGBA // Status text
	ToolbarBackground color.RGBA
	StatusBackground  color.RGBA

	// Tool Buttons
	ButtonBackground      color.RGBA
	ButtonBackgroundHover color.RGBA
	ButtonBackgroundPress color.RGBA
	ButtonText            color.RGBA
	ButtonBorder          color.RGBA

	// Grid
	CellFill  color.RGBA
	GridLine  color.RGBA
	WallFill  color.RGBA
	WallEdge  color.RGBA
	MapBorder color.RGBA

	// Paths
	Road   color.RGBA
	River  color.RGBA
	Stream color.RGBA
	Border color.RGBA
	Trail  color.RGBA

	// Features and labels
	FeatureFill color.RGBA
	FeatureText color.RGBA
	LabelText   color.RGBA
	LabelHalo   color.RGBA

	// Fog of war
	FogPlayer color.RGBA // Opaque cover for players
	FogDM     color.RGBA // Translucent stripes for the DM
	FogEdge   color.RGBA // DM-only outline of the revealed area

	// Tokens
	TokenBackground color.RGBA
	TokenPlayer     color.RGBA
	TokenMonster    color.RGBA
	TokenNPC        color.RGBA
	TokenText       color.RGBA

	// Interaction
	Selection      color.RGBA
	Handle         color.RGBA
	Snap           color.RGBA
	Draft          color.RGBA
	PreviewValid   color.RGBA
	PreviewInvalid color.RGBA
	EraseMark      color.RGBA
}

// Default returns the hardcoded default light theme (fallback).
func Default() *Theme {
	return &Theme{
		Name:                  "Default",
		Background:            color.RGBA{200, 200, 200, 255},
		Foreground:            color.RGBA{0, 0, 0, 255},
		ToolbarBackground:     color.RGBA{220, 220, 220, 255},
		StatusBackground:      color.RGBA{230, 230, 230, 255},
		ButtonBackground:      color.RGBA{200, 200, 200, 255},
		ButtonBackgroundHover: color.RGBA{180, 180, 180, 255},
		ButtonBackgroundPress: color.RGBA{150, 150, 150, 255},
		ButtonText:            color.RGBA{0, 0, 0, 255},
		ButtonBorder:          color.RGBA{0, 0, 0, 255},
		CellFill:              color.RGBA{245, 242, 232, 255},
		GridLine:              color.RGBA{120, 120, 120, 160},
		WallFill:              color.RGBA{70, 60, 55, 255},
		WallEdge:              color.RGBA{30, 25, 20, 255},
		MapBorder:             color.RGBA{60, 60, 60, 255},
		Road:                  color.RGBA{139, 101, 60, 255},
		River:                 color.RGBA{52, 110, 200, 255},
		Stream:                color.RGBA{90, 150, 220, 255},
		Border:                color.RGBA{170, 40, 40, 255},
		Trail:                 color.RGBA{150, 120, 80, 255},
		FeatureFill:           color.RGBA{180, 160, 120, 255},
		FeatureText:           color.RGBA{40, 30, 20, 255},
		LabelText:             color.RGBA{20, 20, 20, 255},
		LabelHalo:             color.RGBA{255, 255, 255, 200},
		FogPlayer:             color.RGBA{20, 20, 25, 255},
		FogDM:                 color.RGBA{20, 20, 25, 90},
		FogEdge:               color.RGBA{255, 200, 0, 255},
		TokenBackground:       color.RGBA{250, 250, 250, 255},
		TokenPlayer:           color.RGBA{40, 140, 60, 255},
		TokenMonster:          color.RGBA{190, 40, 40, 255},
		TokenNPC:              color.RGBA{60, 90, 190, 255},
		TokenText:             color.RGBA{20, 20, 20, 255},
		Selection:             color.RGBA{255, 170, 0, 255},
		Handle:                color.RGBA{255, 255, 255, 255},
		Snap:                  color.RGBA{0, 160, 255, 255},
		Draft:                 color.RGBA{0, 0, 0, 160},
		PreviewValid:          color.RGBA{0, 200, 0, 90},
		PreviewInvalid:        color.RGBA{220, 0, 0, 90},
		EraseMark:             color.RGBA{220, 0, 0, 255},
	}
}

var rgbaType = reflect.TypeOf(color.RGBA{})

// ColorFields returns the names of all colour fields in declaration order.
func ColorFields() []string {
	typ := reflect.TypeOf(Theme{})
	var out []string
	for i := 0; i < typ.NumField(); i++ {
		if typ.Field(i).Type == rgbaType {
			out = append(out, typ.Field(i).Name)
		}
	}
	return out
}

// Color returns the colour stored in the named field.
func (t *Theme) Color(field string) (color.RGBA, bool) {
	v := reflect.ValueOf(t).Elem().FieldByName(field)
	if !v.IsValid() || v.Type() != rgbaType {
		return color.RGBA{}, false
	}
	return v.Interface().(color.RGBA), true
}

// SetColor stores c in the named field.
func (t *Theme) SetColor(field string, c color.RGBA) bool {
	v := reflect.ValueOf(t).Elem().FieldByName(field)
	if !v.IsValid() || v.Type() != rgbaType {
		return false
	}
	v.Set(reflect.ValueOf(c))
	return true
}
