package domain

import "time"

// Axis names one independent classification scheme.
type Axis string

const (
	AxisStatus   Axis = "status"
	AxisBusiness Axis = "business"
	AxisProof    Axis = "proof"
	AxisBoard    Axis = "board"
)

func (a Axis) Valid() bool {
	switch a {
	case AxisStatus, AxisBusiness, AxisProof, AxisBoard:
		return true
	}
	return false
}

// BoardAreaUpdate places a card on a board, or removes it when AreaLabel is
// empty.
type BoardAreaUpdate struct {
	BoardID   BoardID   `json:"boardId"`
	AreaLabel AreaLabel `json:"areaLabel"`
	Order     *float64  `json:"order,omitempty"`
}

// Unplace reports whether the update returns the card to the board's Inbox.
func (u BoardAreaUpdate) Unplace() bool {
	return u.AreaLabel == ""
}

// Position asks for an insertion index on one axis instead of an explicit
// order key. Index 0 inserts before the first card, len inserts at the end.
type Position struct {
	Axis    Axis    `json:"axis"`
	BoardID BoardID `json:"boardId,omitempty"`
	Index   int     `json:"index"`
}

// CardUpdate is the partial-update contract. Nil fields are left untouched.
type CardUpdate struct {
	Text          *string          `json:"text,omitempty"`
	Status        *string          `json:"status,omitempty"`
	Order         *float64         `json:"order,omitempty"`
	Business      *string          `json:"business,omitempty"`
	BusinessOrder *float64         `json:"businessOrder,omitempty"`
	Proof         *string          `json:"proof,omitempty"`
	ProofOrder    *float64         `json:"proofOrder,omitempty"`
	BoardArea     *BoardAreaUpdate `json:"boardArea,omitempty"`
	Position      *Position        `json:"position,omitempty"`
	IsArchived    *bool            `json:"isArchived,omitempty"`
}

// Empty reports whether the update names no field at all.
func (u CardUpdate) Empty() bool {
	return u.Text == nil && u.Status == nil && u.Order == nil &&
		u.Business == nil && u.BusinessOrder == nil &&
		u.Proof == nil && u.ProofOrder == nil &&
		u.BoardArea == nil && u.Position == nil && u.IsArchived == nil
}

// CardPatch is the minimal set of document changes for one card.
type CardPatch struct {
	CardID        string
	Text          *string
	Status        *Status
	Order         *float64
	Business      *Business
	BusinessOrder *float64
	Proof         *Proof
	ProofOrder    *float64
	SetBoards     BoardAreas
	SetOrders     BoardOrders
	UnsetBoards   []BoardID
	IsArchived    *bool
	UpdatedAt     time.Time
}

// Empty reports whether the patch changes nothing.
func (p CardPatch) Empty() bool {
	return p.Text == nil && p.Status == nil && p.Order == nil &&
		p.Business == nil && p.BusinessOrder == nil &&
		p.Proof == nil && p.ProofOrder == nil &&
		len(p.SetBoards) == 0 && len(p.SetOrders) == 0 && len(p.UnsetBoards) == 0 &&
		p.IsArchived == nil
}

// TouchesBoards reports whether the board placement maps change.
func (p CardPatch) TouchesBoards() bool {
	return len(p.SetBoards) > 0 || len(p.SetOrders) > 0 || len(p.UnsetBoards) > 0
}

// Apply writes the patch onto c.
func (p CardPatch) Apply(c *Card) {
	if p.Text != nil {
		c.Text = *p.Text
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Order != nil {
		c.Order = *p.Order
	}
	if p.Business != nil {
		c.Business = *p.Business
	}
	if p.BusinessOrder != nil {
		c.BusinessOrder = *p.BusinessOrder
	}
	if p.Proof != nil {
		c.Proof = *p.Proof
	}
	if p.ProofOrder != nil {
		c.ProofOrder = *p.ProofOrder
	}
	if p.TouchesBoards() {
		c.BoardAreas = c.BoardAreas.Clone()
		c.BoardOrders = c.BoardOrders.Clone()
		if c.BoardAreas == nil {
			c.BoardAreas = BoardAreas{}
		}
		if c.BoardOrders == nil {
			c.BoardOrders = BoardOrders{}
		}
		for _, id := range p.UnsetBoards {
			delete(c.BoardAreas, id)
			delete(c.BoardOrders, id)
		}
		for id, l := range p.SetBoards {
			c.BoardAreas[id] = l
		}
		for id, o := range p.SetOrders {
			c.BoardOrders[id] = o
		}
	}
	if p.IsArchived != nil {
		c.IsArchived = *p.IsArchived
	}
	if !p.UpdatedAt.IsZero() {
		c.UpdatedAt = p.UpdatedAt
	}
}
