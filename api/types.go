package api

import (
	"context"

	"cardmass/bus"
	"cardmass/domain"
	"cardmass/grid"
	"cardmass/placement"
)

// CardService performs card reads and writes on behalf of an organization.
type CardService interface {
	Get(ctx context.Context, orgID, id string) (domain.Card, error)
	List(ctx context.Context, orgID string, q placement.Query) ([]domain.Card, error)
	Create(ctx context.Context, orgID string, u domain.CardUpdate) (domain.Card, error)
	Update(ctx context.Context, orgID, id string, u domain.CardUpdate) (domain.Card, error)
	Delete(ctx context.Context, orgID, id string) error
	Renormalize(ctx context.Context, orgID string, axis domain.Axis, board domain.BoardID, bucket string) (int, error)
}

// BoardStore persists board definitions.
type BoardStore interface {
	GetBoard(ctx context.Context, orgID string, id domain.BoardID) (domain.Board, error)
	ListBoards(ctx context.Context, orgID string) ([]domain.Board, error)
	SaveBoard(ctx context.Context, b domain.Board) (domain.Board, error)
	DeleteBoard(ctx context.Context, orgID string, id domain.BoardID) error
}

// AreaCompiler turns a board into its rendered boxes.
type AreaCompiler interface {
	CompiledAreas(ctx context.Context, b domain.Board) []grid.Box
}

// Authenticator resolves the organization a request acts for.
type Authenticator interface {
	OrgIDFromAuthHeader(string) (string, error)
}

// Deduper remembers Idempotency-Key headers of card creations.
type Deduper interface {
	Claim(ctx context.Context, orgID, key string) (bool, error)
	Remember(ctx context.Context, orgID, key, cardID string) error
	Lookup(ctx context.Context, orgID, key string) (string, error)
	Release(ctx context.Context, orgID, key string) error
}

// Notifier publishes board change notifications. Card notifications are
// published by the card service itself.
type Notifier interface {
	Publish(ctx context.Context, n bus.Notification) error
}

// Deps groups everything the HTTP handlers need. Deduper, Notifier and
// Broker are optional.
type Deps struct {
	Cards    CardService
	Boards   BoardStore
	Areas    AreaCompiler
	Auth     Authenticator
	Deduper  Deduper
	Notifier Notifier
	Broker   *bus.Broker
}
