package storage

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"cardmass/domain"
)

// GetCard retrieves one card of the organization.
func (s *Storage) GetCard(ctx context.Context, orgID, id string) (domain.Card, error) {
	ent, err := s.cards.GetEntity(ctx, orgID, id, nil)
	if err != nil {
		return domain.Card{}, translate(err, "card %s not found", id)
	}
	return decodeCard(ent.Value)
}

// FetchCards retrieves every card of the organization.
func (s *Storage) FetchCards(ctx context.Context, orgID string, includeArchived bool) ([]domain.Card, error) {
	filter := partitionFilter(orgID)
	if !includeArchived {
		filter += " and IsArchived eq false"
	}
	pager := s.cards.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	cards := []domain.Card{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			c, err := decodeCard(e)
			if err != nil {
				return nil, err
			}
			if c.IsArchived && !includeArchived {
				continue
			}
			cards = append(cards, c)
		}
	}
	return cards, nil
}

// InsertCard adds a new card; an existing card with the same id is a conflict.
func (s *Storage) InsertCard(ctx context.Context, card domain.Card) error {
	payload, err := encodeCard(card)
	if err != nil {
		return err
	}
	if _, err := s.cards.AddEntity(ctx, payload, nil); err != nil {
		return translate(err, "card %s already exists", card.ID)
	}
	return nil
}

// UpdateCard merges the patched properties into the stored card. The write
// is unconditional; concurrent edits of the same card resolve last-write-wins.
func (s *Storage) UpdateCard(ctx context.Context, orgID string, patch domain.CardPatch, next domain.Card) error {
	payload, err := encodeCardPatch(orgID, patch, next)
	if err != nil {
		return err
	}
	et := azcore.ETagAny
	_, err = s.cards.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge})
	if err != nil {
		return translate(err, "card %s not found", patch.CardID)
	}
	return nil
}

// DeleteCard removes a card permanently.
func (s *Storage) DeleteCard(ctx context.Context, orgID, id string) error {
	if _, err := s.cards.DeleteEntity(ctx, orgID, id, nil); err != nil {
		return translate(err, "card %s not found", id)
	}
	return nil
}
