package placement

import (
	"context"
	"sort"

	"cardmass/bus"
	"cardmass/domain"
)

type fakeStore struct {
	cards   map[string]domain.Card
	patches []domain.CardPatch
	fetches int
	failOn  string
	// afterFetch runs once the listing is copied, standing in for a write
	// from another request.
	afterFetch func(f *fakeStore)
}

func newFakeStore(cards ...domain.Card) *fakeStore {
	f := &fakeStore{cards: map[string]domain.Card{}}
	for _, c := range cards {
		c.OrgID = "org1"
		f.cards[c.ID] = c
	}
	return f
}

func (f *fakeStore) GetCard(ctx context.Context, orgID, id string) (domain.Card, error) {
	c, ok := f.cards[id]
	if !ok || c.OrgID != orgID {
		return domain.Card{}, domain.NotFoundf("card %s not found", id)
	}
	return c.Clone(), nil
}

func (f *fakeStore) FetchCards(ctx context.Context, orgID string, includeArchived bool) ([]domain.Card, error) {
	f.fetches++
	out := []domain.Card{}
	for _, c := range f.cards {
		if c.OrgID != orgID || (c.IsArchived && !includeArchived) {
			continue
		}
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if f.afterFetch != nil {
		f.afterFetch(f)
	}
	return out, nil
}

func (f *fakeStore) InsertCard(ctx context.Context, card domain.Card) error {
	if _, ok := f.cards[card.ID]; ok {
		return domain.Conflictf("card %s exists", card.ID)
	}
	f.cards[card.ID] = card.Clone()
	return nil
}

func (f *fakeStore) UpdateCard(ctx context.Context, orgID string, patch domain.CardPatch, next domain.Card) error {
	if patch.CardID == f.failOn {
		return domain.NotFoundf("card %s not found", patch.CardID)
	}
	c, ok := f.cards[patch.CardID]
	if !ok {
		return domain.NotFoundf("card %s not found", patch.CardID)
	}
	patch.Apply(&c)
	if patch.TouchesBoards() {
		// Board maps are stored as whole columns.
		c.BoardAreas, c.BoardOrders = next.BoardAreas.Clone(), next.BoardOrders.Clone()
	}
	f.cards[c.ID] = c
	f.patches = append(f.patches, patch)
	return nil
}

func (f *fakeStore) DeleteCard(ctx context.Context, orgID, id string) error {
	if _, ok := f.cards[id]; !ok {
		return domain.NotFoundf("card %s not found", id)
	}
	delete(f.cards, id)
	return nil
}

type fakeBoards map[domain.BoardID]domain.Board

func (f fakeBoards) GetBoard(ctx context.Context, orgID string, id domain.BoardID) (domain.Board, error) {
	b, ok := f[id]
	if !ok {
		return domain.Board{}, domain.NotFoundf("board %s not found", id)
	}
	return b, nil
}

type recordingNotifier struct {
	sent []bus.Notification
}

func (r *recordingNotifier) Publish(ctx context.Context, n bus.Notification) error {
	r.sent = append(r.sent, n)
	return nil
}
