package editor

import (
	"github.com/example/mapforge/internal/content"
	"github.com/example/mapforge/internal/grid"
)

// DrawState is a read-only copy of everything the renderer needs from the
// editor for one frame.
type DrawState struct {
	Tool      Tool
	SpaceHeld bool

	Terrain         string
	PathType        content.PathType
	LabelSize       content.LabelSize
	WallAdd         bool
	FeatureType     string
	FeatureRotation int

	Hover   grid.Point
	HoverOK bool
	Snap    grid.Point
	SnapOK  bool

	Draft     []grid.Point
	DraftType content.PathType

	SelectedPath    string
	SelectedLabel   string
	SelectedFeature string

	Entry *LabelEntry

	// FeatureFits tells whether the pending feature fits at the hovered cell.
	FeatureFits bool

	Painting bool

	DraggingToken string
	TokenCell     grid.Coord
}

// State snapshots the editor for drawing.
func (e *Editor) State() DrawState {
	s := DrawState{
		Tool:            e.Tool(),
		SpaceHeld:       e.spaceHeld,
		Terrain:         e.terrain,
		PathType:        e.pathType,
		LabelSize:       e.labelSize,
		WallAdd:         e.wallAdd,
		FeatureType:     e.featureType,
		FeatureRotation: e.featureRotation,
		Hover:           e.hover,
		HoverOK:         e.hoverOK,
		Snap:            e.snap,
		SnapOK:          e.snapOK,
		Draft:           append([]grid.Point(nil), e.draft...),
		DraftType:       e.pathType,
		SelectedPath:    e.selPath,
		SelectedLabel:   e.selLabel,
		SelectedFeature: e.selFeature,
		Painting:        e.painting,
	}
	if e.entry != nil {
		entry := *e.entry
		s.Entry = &entry
	}
	if e.drag.kind == dragToken {
		s.DraggingToken = e.drag.id
		s.TokenCell = e.drag.cell
	}
	if e.hoverOK && e.Tool() == ToolFeature {
		if c, ok := e.g.CellAt(e.hover); ok {
			if spec, known := content.LookupFeature(e.featureType); known {
				s.FeatureFits = content.FootprintFits(e.g, spec, c, e.featureRotation)
			}
		}
	}
	return s
}
