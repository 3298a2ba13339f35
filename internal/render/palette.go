package render

import (
	"image/color"
	"strings"

	"golang.org/x/image/colornames"

	"github.com/example/mapforge/internal/content"
	"github.com/example/mapforge/internal/session"
	"github.com/example/mapforge/internal/theme"
)

// terrainStyle is the tint and per-variant glyphs of one terrain type.
type terrainStyle struct {
	tint   color.RGBA
	glyphs [content.VariantCount]string
}

var terrainStyles = map[string]terrainStyle{
	"plains":    {colornames.Palegreen, [3]string{"\"", "'", ","}},
	"forest":    {colornames.Forestgreen, [3]string{"♣", "♠", "♣♣"}},
	"hills":     {colornames.Darkkhaki, [3]string{"∩", "∩∩", "⌒"}},
	"mountains": {colornames.Slategray, [3]string{"▲", "▲▲", "^"}},
	"water":     {colornames.Steelblue, [3]string{"≈", "~", "≈≈"}},
	"swamp":     {colornames.Darkolivegreen, [3]string{"≈'", "~,", "'≈"}},
	"desert":    {colornames.Sandybrown, [3]string{"∙", "∙∙", "~"}},
	"tundra":    {colornames.Lightsteelblue, [3]string{"*", "**", "∙*"}},
	"village":   {colornames.Peru, [3]string{"⌂", "⌂⌂", "■"}},
	"castle":    {colornames.Dimgray, [3]string{"Ħ", "♜", "Ħ"}},
}

func styleForTerrain(name string) terrainStyle {
	if s, ok := terrainStyles[name]; ok {
		return s
	}
	return terrainStyle{tint: colornames.Lightgray, glyphs: [3]string{"?", "?", "?"}}
}

// TerrainTint is the palette colour shown for a terrain brush.
func TerrainTint(name string) color.RGBA { return styleForTerrain(name).tint }

// nrgba reads a theme colour as straight (non-premultiplied) alpha, which is
// how theme files write them.
func nrgba(c color.RGBA) color.NRGBA { return color.NRGBA(c) }

func withAlpha(c color.RGBA, a uint8) color.NRGBA {
	n := color.NRGBA(c)
	n.A = a
	return n
}

// pathStyle is a stroke description in world units.
type pathStyle struct {
	color color.RGBA
	width float64
	dash  []float64
}

func stylePath(t content.PathType, th *theme.Theme) pathStyle {
	switch t {
	case content.River:
		return pathStyle{color: th.River, width: 6}
	case content.Stream:
		return pathStyle{color: th.Stream, width: 3}
	case content.Border:
		return pathStyle{color: th.Border, width: 3, dash: []float64{10, 6}}
	case content.Trail:
		return pathStyle{color: th.Trail, width: 2, dash: []float64{4, 4}}
	default:
		return pathStyle{color: th.Road, width: 4}
	}
}

// tokenBorder picks the ring colour: an explicit colour wins, then the owner
// of a player token, then the token type.
func tokenBorder(t session.Token, th *theme.Theme) color.RGBA {
	if t.Color != "" {
		if c, ok := namedColor(t.Color); ok {
			return c
		}
	}
	switch strings.ToLower(t.Type) {
	case "player", "pc":
		return th.TokenPlayer
	case "monster", "enemy":
		return th.TokenMonster
	case "npc":
		return th.TokenNPC
	}
	if t.OwnerID != "" {
		return th.TokenPlayer
	}
	return th.TokenNPC
}

// namedColor accepts #RRGGBB[AA] or an SVG colour name.
func namedColor(s string) (color.RGBA, bool) {
	if strings.HasPrefix(s, "#") {
		c, err := theme.ParseColor(s)
		return c, err == nil
	}
	c, ok := colornames.Map[strings.ToLower(s)]
	return c, ok
}
