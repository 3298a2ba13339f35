// Package session carries the read-only state supplied by a running game
// session: which cells are revealed, where tokens stand, and the intents the
// canvas sends back.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/example/mapforge/internal/grid"
)

// Token is a creature or marker placed on the map.
type Token struct {
	ID       string     `json:"id"`
	Type     string     `json:"type"`
	Name     string     `json:"name"`
	Position grid.Coord `json:"position"`
	Color    string     `json:"color,omitempty"`
	ImageURL string     `json:"imageUrl,omitempty"`
	OwnerID  string     `json:"ownerId,omitempty"`
}

// Overlay is one snapshot of session state. A nil *Overlay means no session
// is attached.
type Overlay struct {
	Revealed        map[grid.Coord]struct{}
	Tokens          []Token
	SelectedTokenID string
	IsDM            bool
	SessionTool     string
}

// cellJSON accepts both {col,row} and {q,r}.
type cellJSON struct {
	Col *int `json:"col,omitempty"`
	Row *int `json:"row,omitempty"`
	Q   *int `json:"q,omitempty"`
	R   *int `json:"r,omitempty"`
}

func (c cellJSON) coord() (grid.Coord, error) {
	switch {
	case c.Col != nil && c.Row != nil:
		return grid.Coord{Col: *c.Col, Row: *c.Row}, nil
	case c.Q != nil && c.R != nil:
		return grid.Coord{Col: *c.Q, Row: *c.R}, nil
	}
	return grid.Coord{}, fmt.Errorf("cell needs col/row or q/r")
}

type tokenJSON struct {
	Token
	Position cellJSON `json:"position"`
}

type overlayJSON struct {
	RevealedCells   []cellJSON  `json:"revealedCells"`
	Tokens          []tokenJSON `json:"tokens"`
	SelectedTokenID string      `json:"selectedTokenId,omitempty"`
	IsDM            bool        `json:"isDm"`
	SessionTool     string      `json:"sessionTool,omitempty"`
}

func (o *Overlay) UnmarshalJSON(b []byte) error {
	var raw overlayJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := Overlay{
		Revealed:        make(map[grid.Coord]struct{}, len(raw.RevealedCells)),
		SelectedTokenID: raw.SelectedTokenID,
		IsDM:            raw.IsDM,
		SessionTool:     raw.SessionTool,
	}
	for i, c := range raw.RevealedCells {
		coord, err := c.coord()
		if err != nil {
			return fmt.Errorf("revealedCells[%d]: %w", i, err)
		}
		out.Revealed[coord] = struct{}{}
	}
	for i, t := range raw.Tokens {
		coord, err := t.Position.coord()
		if err != nil {
			return fmt.Errorf("tokens[%d]: %w", i, err)
		}
		tok := t.Token
		tok.Position = coord
		out.Tokens = append(out.Tokens, tok)
	}
	*o = out
	return nil
}

func (o Overlay) MarshalJSON() ([]byte, error) {
	cells := make([]grid.Coord, 0, len(o.Revealed))
	for c := range o.Revealed {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Row != cells[j].Row {
			return cells[i].Row < cells[j].Row
		}
		return cells[i].Col < cells[j].Col
	})
	tokens := o.Tokens
	if tokens == nil {
		tokens = []Token{}
	}
	return json.Marshal(struct {
		RevealedCells   []grid.Coord `json:"revealedCells"`
		Tokens          []Token      `json:"tokens"`
		SelectedTokenID string       `json:"selectedTokenId,omitempty"`
		IsDM            bool         `json:"isDm"`
		SessionTool     string       `json:"sessionTool,omitempty"`
	}{cells, tokens, o.SelectedTokenID, o.IsDM, o.SessionTool})
}

// LoadOverlay reads an overlay snapshot from a JSON file.
func LoadOverlay(path string) (*Overlay, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overlay: %w", err)
	}
	var o Overlay
	if err := json.Unmarshal(b, &o); err != nil {
		return nil, fmt.Errorf("decode overlay %s: %w", path, err)
	}
	return &o, nil
}

// IsRevealed reports whether c is in the reveal set.
func (o *Overlay) IsRevealed(c grid.Coord) bool {
	if o == nil {
		return false
	}
	_, ok := o.Revealed[c]
	return ok
}

// Visible reports whether the viewer can see c. The DM sees everything.
func (o *Overlay) Visible(c grid.Coord) bool {
	if o == nil {
		return true
	}
	return o.IsDM || o.IsRevealed(c)
}

// VisibleTokens returns the tokens the viewer may see.
func (o *Overlay) VisibleTokens() []Token {
	if o == nil {
		return nil
	}
	if o.IsDM {
		return o.Tokens
	}
	var out []Token
	for _, t := range o.Tokens {
		if o.IsRevealed(t.Position) {
			out = append(out, t)
		}
	}
	return out
}

// TokenAt returns the topmost visible token standing on c.
func (o *Overlay) TokenAt(c grid.Coord) (Token, bool) {
	toks := o.VisibleTokens()
	for i := len(toks) - 1; i >= 0; i-- {
		if toks[i].Position == c {
			return toks[i], true
		}
	}
	return Token{}, false
}

// Intent kinds sent back to the session.
const (
	IntentCellClick  = "cellClick"
	IntentTokenClick = "tokenClick"
	IntentTokenDrag  = "tokenDrag"
)

// Intent is a user action on the canvas that the session interprets.
type Intent struct {
	Kind    string      `json:"kind"`
	Cell    *grid.Coord `json:"cell,omitempty"`
	TokenID string      `json:"tokenId,omitempty"`
}

// IntentSink receives canvas intents.
type IntentSink interface {
	OnCellClick(c grid.Coord)
	OnTokenClick(id string)
	OnTokenDrag(id string, to grid.Coord)
}
