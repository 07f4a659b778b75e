package domain

import (
	"strings"
	"time"
)

// Status is the quadrant a card sits in. Every card has exactly one.
type Status string

const (
	StatusDelegate Status = "delegate"
	StatusDecide   Status = "decide"
	StatusDo       Status = "do"
	StatusDecline  Status = "decline"
)

// Statuses lists the quadrant buckets in display order.
var Statuses = []Status{StatusDelegate, StatusDecide, StatusDo, StatusDecline}

func (s Status) Valid() bool {
	switch s {
	case StatusDelegate, StatusDecide, StatusDo, StatusDecline:
		return true
	}
	return false
}

// Business is a Business-Model-Canvas bucket.
type Business string

const (
	BusinessKeyPartners           Business = "KeyPartners"
	BusinessKeyActivities         Business = "KeyActivities"
	BusinessKeyResources          Business = "KeyResources"
	BusinessValuePropositions     Business = "ValuePropositions"
	BusinessCustomerRelationships Business = "CustomerRelationships"
	BusinessChannels              Business = "Channels"
	BusinessCustomerSegments      Business = "CustomerSegments"
	BusinessCostStructure         Business = "CostStructure"
	BusinessRevenueStreams        Business = "RevenueStreams"
)

var BusinessBuckets = []Business{
	BusinessKeyPartners,
	BusinessKeyActivities,
	BusinessKeyResources,
	BusinessValuePropositions,
	BusinessCustomerRelationships,
	BusinessChannels,
	BusinessCustomerSegments,
	BusinessCostStructure,
	BusinessRevenueStreams,
}

func (b Business) Valid() bool {
	for _, v := range BusinessBuckets {
		if b == v {
			return true
		}
	}
	return false
}

// Proof is a validation bucket.
type Proof string

const (
	ProofPersona    Proof = "Persona"
	ProofProposal   Proof = "Proposal"
	ProofOutcome    Proof = "Outcome"
	ProofBenefit    Proof = "Benefit"
	ProofDecision   Proof = "Decision"
	ProofJourney    Proof = "Journey"
	ProofValidation Proof = "Validation"
	ProofCost       Proof = "Cost"
	ProofBacklog    Proof = "Backlog"
)

var ProofBuckets = []Proof{
	ProofPersona,
	ProofProposal,
	ProofOutcome,
	ProofBenefit,
	ProofDecision,
	ProofJourney,
	ProofValidation,
	ProofCost,
	ProofBacklog,
}

func (p Proof) Valid() bool {
	for _, v := range ProofBuckets {
		if p == v {
			return true
		}
	}
	return false
}

const (
	DefaultStatus   = StatusDecide
	DefaultBusiness = BusinessValuePropositions
	DefaultProof    = ProofBacklog
)

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", Validationf("unknown status %q", raw)
	}
	return s, nil
}

// ParseBusiness validates a raw business bucket.
func ParseBusiness(raw string) (Business, error) {
	b := Business(raw)
	if !b.Valid() {
		return "", Validationf("unknown business bucket %q", raw)
	}
	return b, nil
}

// ParseProof validates a raw proof bucket.
func ParseProof(raw string) (Proof, error) {
	p := Proof(raw)
	if !p.Valid() {
		return "", Validationf("unknown proof bucket %q", raw)
	}
	return p, nil
}

// BoardID identifies a board within an organization.
type BoardID string

// AreaLabel names an area on a board. Storage keeps the submitted casing;
// comparisons go through Key.
type AreaLabel string

// Key is the lower-cased form used for matching labels.
func (l AreaLabel) Key() string {
	return strings.ToLower(string(l))
}

// Same reports whether two labels name the same area.
func (l AreaLabel) Same(other AreaLabel) bool {
	return l.Key() == other.Key()
}

// BoardAreas records the area a card occupies on each board it was placed on.
// A board without an entry is the card's Inbox on that board.
type BoardAreas map[BoardID]AreaLabel

// Get returns the placement on board id and whether one exists.
func (b BoardAreas) Get(id BoardID) (AreaLabel, bool) {
	if b == nil {
		return "", false
	}
	l, ok := b[id]
	return l, ok
}

func (b BoardAreas) Clone() BoardAreas {
	if b == nil {
		return nil
	}
	out := make(BoardAreas, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// BoardOrders holds the per-board order keys. Entries exist exactly for the
// boards present in BoardAreas.
type BoardOrders map[BoardID]float64

func (b BoardOrders) Clone() BoardOrders {
	if b == nil {
		return nil
	}
	out := make(BoardOrders, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Card is one note classified on every axis at once.
type Card struct {
	ID            string      `json:"id"`
	OrgID         string      `json:"orgId,omitempty"`
	Text          string      `json:"text"`
	Status        Status      `json:"status"`
	Order         float64     `json:"order"`
	Business      Business    `json:"business"`
	BusinessOrder float64     `json:"businessOrder"`
	Proof         Proof       `json:"proof"`
	ProofOrder    float64     `json:"proofOrder"`
	BoardAreas    BoardAreas  `json:"boardAreas"`
	BoardOrders   BoardOrders `json:"boardOrders"`
	IsArchived    bool        `json:"isArchived"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// Normalize fills in defaults for fields older documents may lack and drops
// placements stored with an empty label, which mean Inbox.
func (c *Card) Normalize() {
	if c.Status == "" {
		c.Status = DefaultStatus
	}
	if c.Business == "" {
		c.Business = DefaultBusiness
	}
	if c.Proof == "" {
		c.Proof = DefaultProof
	}
	if c.BoardAreas == nil {
		c.BoardAreas = BoardAreas{}
	}
	if c.BoardOrders == nil {
		c.BoardOrders = BoardOrders{}
	}
	for id, l := range c.BoardAreas {
		if l == "" {
			delete(c.BoardAreas, id)
		}
	}
	for id := range c.BoardOrders {
		if _, ok := c.BoardAreas[id]; !ok {
			delete(c.BoardOrders, id)
		}
	}
}

// Clone returns a deep copy of the card.
func (c Card) Clone() Card {
	c.BoardAreas = c.BoardAreas.Clone()
	c.BoardOrders = c.BoardOrders.Clone()
	return c
}
