package editor

import (
	"fmt"
	"strings"

	"github.com/example/mapforge/internal/grid"
)

// Tool is an editing mode of the canvas.
type Tool int

const (
	ToolPan Tool = iota
	ToolTerrain
	ToolPath
	ToolLabel
	ToolErase
	ToolWall
	ToolFeature
	toolCount
)

var toolNames = [toolCount]string{"pan", "terrain", "path", "label", "erase", "wall", "feature"}

func (t Tool) String() string {
	if t < 0 || t >= toolCount {
		return fmt.Sprintf("Tool(%d)", int(t))
	}
	return toolNames[t]
}

// ParseTool reverses Tool.String.
func ParseTool(s string) (Tool, error) {
	for i, n := range toolNames {
		if strings.EqualFold(n, s) {
			return Tool(i), nil
		}
	}
	return ToolPan, fmt.Errorf("unknown tool %q", s)
}

// Legal reports whether t can be used on a grid of type g. Terrain and paths
// live on hex maps, walls and features on square maps.
func (t Tool) Legal(g grid.Type) bool {
	switch t {
	case ToolTerrain, ToolPath:
		return g == grid.Hex
	case ToolWall, ToolFeature:
		return g == grid.Square
	case ToolPan, ToolLabel, ToolErase:
		return true
	}
	return false
}

// Tools returns the tools usable on g in toolbar order.
func Tools(g grid.Type) []Tool {
	var out []Tool
	for t := Tool(0); t < toolCount; t++ {
		if t.Legal(g) {
			out = append(out, t)
		}
	}
	return out
}

// Shortcut returns the key letter that selects t.
func (t Tool) Shortcut() rune {
	switch t {
	case ToolPan:
		return 'p'
	case ToolTerrain:
		return 't'
	case ToolPath:
		return 'r'
	case ToolLabel:
		return 'l'
	case ToolErase:
		return 'e'
	case ToolWall:
		return 'w'
	case ToolFeature:
		return 'f'
	}
	return 0
}

// pointer carries one pointer position in both coordinate spaces.
type pointer struct {
	screen grid.Point
	world  grid.Point
}

// toolHandler holds the pointer contract of one tool. Nil entries ignore the
// event.
type toolHandler struct {
	down func(e *Editor, p pointer)
	move func(e *Editor, p pointer)
	up   func(e *Editor, p pointer)
}

var handlers [toolCount]toolHandler

func init() {
	handlers = [toolCount]toolHandler{
		ToolPan:     {down: panDown, move: panMove, up: panUp},
		ToolTerrain: {down: terrainDown, move: terrainMove, up: paintUp},
		ToolPath:    {down: pathDown, move: pathMove, up: dragUp},
		ToolLabel:   {down: labelDown, move: labelMove, up: dragUp},
		ToolErase:   {down: eraseDown},
		ToolWall:    {down: wallDown, move: wallMove, up: paintUp},
		ToolFeature: {down: featureDown, move: featureMove, up: dragUp},
	}
}
