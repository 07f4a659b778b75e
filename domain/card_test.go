package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
)

func TestCardMarshalIncludesZeroOrder(t *testing.T) {
	card := Card{ID: "c1", Text: "note", Status: StatusDo, Order: 0}

	payload, err := sonic.Marshal(card)
	if err != nil {
		t.Fatalf("marshal card: %v", err)
	}
	if !strings.Contains(string(payload), "\"order\":0") {
		t.Fatalf("expected order field to be present, got %s", payload)
	}
}

func TestNormalizeAppliesDefaults(t *testing.T) {
	c := Card{ID: "c1", BoardOrders: BoardOrders{"stale": 3}}
	c.Normalize()

	if c.Status != StatusDecide {
		t.Fatalf("expected default status decide, got %q", c.Status)
	}
	if c.Business != BusinessValuePropositions {
		t.Fatalf("expected default business, got %q", c.Business)
	}
	if c.Proof != ProofBacklog {
		t.Fatalf("expected default proof Backlog, got %q", c.Proof)
	}
	if c.BoardAreas == nil {
		t.Fatalf("expected board areas map to be initialized")
	}
	if _, ok := c.BoardOrders["stale"]; ok {
		t.Fatalf("expected order without placement to be dropped: %#v", c.BoardOrders)
	}
}

func TestNormalizeDropsEmptyLabels(t *testing.T) {
	var c Card
	if err := sonic.UnmarshalString(`{"id":"c1","boardAreas":{"week":"","roadmap":"Now"},"boardOrders":{"week":4,"roadmap":2}}`, &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	c.Normalize()

	if _, placed := c.BoardAreas.Get("week"); placed {
		t.Fatalf("empty label must read as Inbox, got %#v", c.BoardAreas)
	}
	if _, ok := c.BoardOrders["week"]; ok {
		t.Fatalf("expected order of the empty placement dropped: %#v", c.BoardOrders)
	}
	if l, ok := c.BoardAreas.Get("roadmap"); !ok || l != "Now" || c.BoardOrders["roadmap"] != 2 {
		t.Fatalf("other placements must survive, got %#v %#v", c.BoardAreas, c.BoardOrders)
	}
}

func TestParseEnums(t *testing.T) {
	if _, err := ParseStatus("do"); err != nil {
		t.Fatalf("parse status: %v", err)
	}
	if _, err := ParseStatus("Do"); !IsValidation(err) {
		t.Fatalf("expected validation error for wrong casing, got %v", err)
	}
	if _, err := ParseBusiness("Channels"); err != nil {
		t.Fatalf("parse business: %v", err)
	}
	if _, err := ParseBusiness("Marketing"); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := ParseProof("Journey"); err != nil {
		t.Fatalf("parse proof: %v", err)
	}
	if _, err := ParseProof(""); !IsValidation(err) {
		t.Fatalf("expected validation error for empty proof, got %v", err)
	}
}

func TestAreaLabelComparisonIgnoresCase(t *testing.T) {
	if !AreaLabel("Todo").Same("todo") {
		t.Fatalf("expected labels to match")
	}
	if AreaLabel("Todo").Key() != "todo" {
		t.Fatalf("unexpected key %q", AreaLabel("Todo").Key())
	}
}

func TestPatchApplyUnsetRemovesKey(t *testing.T) {
	c := Card{
		ID:          "c1",
		BoardAreas:  BoardAreas{"boardX": "todo", "boardY": "done"},
		BoardOrders: BoardOrders{"boardX": 1, "boardY": 2},
	}
	orig := c.Clone()
	now := time.Unix(100, 0)

	CardPatch{CardID: "c1", UnsetBoards: []BoardID{"boardX"}, UpdatedAt: now}.Apply(&c)

	if _, ok := c.BoardAreas["boardX"]; ok {
		t.Fatalf("expected boardX key removed, got %#v", c.BoardAreas)
	}
	if _, ok := c.BoardOrders["boardX"]; ok {
		t.Fatalf("expected boardX order removed, got %#v", c.BoardOrders)
	}
	if c.BoardAreas["boardY"] != "done" {
		t.Fatalf("expected boardY untouched, got %#v", c.BoardAreas)
	}
	if _, ok := orig.BoardAreas["boardX"]; !ok {
		t.Fatalf("apply mutated the original map")
	}
	if !c.UpdatedAt.Equal(now) {
		t.Fatalf("expected updatedAt stamped")
	}

	payload, err := sonic.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(payload), "boardX") {
		t.Fatalf("expected boardX absent from document, got %s", payload)
	}
}

func TestBoardHasAreaIgnoresCase(t *testing.T) {
	b := Board{Slug: "b", Rows: 2, Cols: 2, Areas: []Area{{Label: "Backlog"}}}
	if !b.HasArea("backlog") {
		t.Fatalf("expected area lookup to ignore case")
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	b.Rows = 0
	if err := b.Validate(); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
