package storage

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	log "github.com/sirupsen/logrus"

	"cardmass/domain"
)

// GetBoard retrieves one board definition.
func (s *Storage) GetBoard(ctx context.Context, orgID string, id domain.BoardID) (domain.Board, error) {
	b, _, err := s.getBoard(ctx, orgID, id)
	return b, err
}

func (s *Storage) getBoard(ctx context.Context, orgID string, id domain.BoardID) (domain.Board, azcore.ETag, error) {
	ent, err := s.boards.GetEntity(ctx, orgID, string(id), nil)
	if err != nil {
		return domain.Board{}, "", translate(err, "board %s not found", id)
	}
	b, err := decodeBoard(ent.Value)
	return b, ent.ETag, err
}

// ListBoards retrieves every board of the organization.
func (s *Storage) ListBoards(ctx context.Context, orgID string) ([]domain.Board, error) {
	filter := partitionFilter(orgID)
	pager := s.boards.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	boards := []domain.Board{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			b, err := decodeBoard(e)
			if err != nil {
				return nil, err
			}
			boards = append(boards, b)
		}
	}
	return boards, nil
}

// SaveBoard creates or replaces a board. b.Version must equal the stored
// version (zero for a new board); the saved board carries the next version.
func (s *Storage) SaveBoard(ctx context.Context, b domain.Board) (domain.Board, error) {
	if err := b.Validate(); err != nil {
		return domain.Board{}, err
	}
	current, etag, err := s.getBoard(ctx, b.OrgID, b.ID)
	switch {
	case domain.IsNotFound(err):
		if b.Version != 0 {
			return domain.Board{}, domain.Conflictf("board %s has no version %d", b.ID, b.Version)
		}
	case err != nil:
		return domain.Board{}, err
	case current.Version != b.Version:
		return domain.Board{}, domain.Conflictf("board %s is at version %d, not %d", b.ID, current.Version, b.Version)
	}

	b.Version++
	b.UpdatedAt = s.now().UTC()
	payload, err := encodeBoard(b)
	if err != nil {
		return domain.Board{}, err
	}
	if b.Version == 1 {
		_, err = s.boards.AddEntity(ctx, payload, nil)
	} else {
		_, err = s.boards.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &etag, UpdateMode: aztables.UpdateModeReplace})
	}
	if err != nil {
		return domain.Board{}, translate(err, "board %s was modified concurrently", b.ID)
	}
	return b, nil
}

// DeleteBoard removes a board and queues removal of its placements from the
// organization's cards.
func (s *Storage) DeleteBoard(ctx context.Context, orgID string, id domain.BoardID) error {
	if _, err := s.boards.DeleteEntity(ctx, orgID, string(id), nil); err != nil {
		return translate(err, "board %s not found", id)
	}
	if err := s.EnqueueBoardCleanup(ctx, BoardCleanup{OrgID: orgID, BoardID: id}); err != nil {
		log.WithError(err).WithFields(log.Fields{"org": orgID, "board": id}).Error("unable to queue board cleanup")
		return err
	}
	return nil
}
