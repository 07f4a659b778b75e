package placement

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"cardmass/bus"
	"cardmass/domain"
)

// Store persists cards. UpdateCard receives both the patch and the resulting
// card so implementations can write either form.
type Store interface {
	GetCard(ctx context.Context, orgID, id string) (domain.Card, error)
	FetchCards(ctx context.Context, orgID string, includeArchived bool) ([]domain.Card, error)
	InsertCard(ctx context.Context, card domain.Card) error
	UpdateCard(ctx context.Context, orgID string, patch domain.CardPatch, next domain.Card) error
	DeleteCard(ctx context.Context, orgID, id string) error
}

// BoardReader looks up board definitions.
type BoardReader interface {
	GetBoard(ctx context.Context, orgID string, id domain.BoardID) (domain.Board, error)
}

// Notifier publishes change notifications.
type Notifier interface {
	Publish(ctx context.Context, n bus.Notification) error
}

// Service is the classification store: every card read and write goes
// through it.
type Service struct {
	store  Store
	notify Notifier
	boards BoardReader
	rec    Reconciler
	newID  func() string
}

type Option func(*Service)

// WithBoardValidation rejects placements on boards the reader does not know
// and labels the board does not declare. Without it, placements referencing
// unknown boards are stored as given.
func WithBoardValidation(r BoardReader) Option {
	return func(s *Service) { s.boards = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.rec.Now = now }
}

func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

func NewService(store Store, notify Notifier, opts ...Option) *Service {
	s := &Service{store: store, notify: notify, newID: uuid.NewString}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Query selects cards for a listing. With no Axis every card is returned,
// newest first. With Axis and Bucket the members of that bucket are returned
// in order; with Axis alone every card on the axis is returned grouped by
// bucket. Inbox lists the cards not placed on BoardID.
type Query struct {
	Axis            domain.Axis
	Bucket          string
	BoardID         domain.BoardID
	Inbox           bool
	IncludeArchived bool
}

func (s *Service) Get(ctx context.Context, orgID, id string) (domain.Card, error) {
	c, err := s.store.GetCard(ctx, orgID, id)
	if err != nil {
		return domain.Card{}, err
	}
	c.Normalize()
	return c, nil
}

func (s *Service) List(ctx context.Context, orgID string, q Query) ([]domain.Card, error) {
	var ax cardAxis
	if q.Axis != "" {
		var err error
		if ax, err = axisFor(q.Axis, q.BoardID); err != nil {
			return nil, err
		}
	}
	if q.Inbox && q.Axis != domain.AxisBoard {
		return nil, domain.Validationf("inbox listing requires the board axis")
	}
	var key string
	if q.Bucket != "" {
		if q.Axis == "" {
			return nil, domain.Validationf("bucket given without an axis")
		}
		var err error
		if key, err = bucketKey(q.Axis, q.Bucket); err != nil {
			return nil, err
		}
	}

	cards, err := s.store.FetchCards(ctx, orgID, q.IncludeArchived)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		cards[i].Normalize()
	}

	switch {
	case q.Axis == "":
		sort.SliceStable(cards, func(i, j int) bool { return cards[i].CreatedAt.After(cards[j].CreatedAt) })
		return cards, nil
	case q.Inbox:
		out := make([]domain.Card, 0, len(cards))
		for _, c := range cards {
			if _, placed := c.BoardAreas.Get(q.BoardID); !placed {
				out = append(out, c)
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
		return out, nil
	case q.Bucket != "":
		return ax.Members(cards, key, nil), nil
	}

	out := make([]domain.Card, 0, len(cards))
	for _, c := range cards {
		if _, ok := ax.Bucket(c); ok {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		bi, _ := ax.Bucket(out[i])
		bj, _ := ax.Bucket(out[j])
		if bi != bj {
			return bi < bj
		}
		return ax.Less(out[i], out[j])
	})
	return out, nil
}

// Create stores a new card at the end of its fixed-axis buckets. Classification
// fields left nil take their defaults; BoardArea and Position are honoured as
// in Update. Order fields are ignored.
func (s *Service) Create(ctx context.Context, orgID string, u domain.CardUpdate) (domain.Card, error) {
	if u.IsArchived != nil && *u.IsArchived {
		return domain.Card{}, domain.Validationf("cards cannot be created archived")
	}
	if u.Text != nil && len(*u.Text) > MaxTextLength {
		return domain.Card{}, domain.Validationf("text exceeds %d bytes", MaxTextLength)
	}
	card := domain.Card{ID: s.newID(), OrgID: orgID}
	if u.Text != nil {
		card.Text = *u.Text
	}
	var err error
	if u.Status != nil {
		if card.Status, err = domain.ParseStatus(*u.Status); err != nil {
			return domain.Card{}, err
		}
	}
	if u.Business != nil {
		if card.Business, err = domain.ParseBusiness(*u.Business); err != nil {
			return domain.Card{}, err
		}
	}
	if u.Proof != nil {
		if card.Proof, err = domain.ParseProof(*u.Proof); err != nil {
			return domain.Card{}, err
		}
	}
	card.Normalize()
	if err := s.checkBoard(ctx, orgID, u.BoardArea); err != nil {
		return domain.Card{}, err
	}

	siblings, err := s.store.FetchCards(ctx, orgID, false)
	if err != nil {
		return domain.Card{}, err
	}
	for i := range siblings {
		siblings[i].Normalize()
	}
	var renorm []domain.CardPatch
	for _, f := range []struct {
		ax     cardAxis
		bucket string
		key    *float64
	}{
		{statusAxis, string(card.Status), &card.Order},
		{businessAxis, string(card.Business), &card.BusinessOrder},
		{proofAxis, string(card.Proof), &card.ProofOrder},
	} {
		k, rp, err := allocate(f.ax, f.ax.Members(siblings, f.bucket, nil), f.ax.Append)
		if err != nil {
			return domain.Card{}, err
		}
		*f.key = k
		if len(rp) > 0 {
			renorm = append(renorm, rp...)
			siblings = applyAll(siblings, rp)
		}
	}
	card.CreatedAt = s.rec.now()
	card.UpdatedAt = card.CreatedAt

	if u.BoardArea != nil || u.Position != nil {
		res, err := s.rec.Reconcile(card, domain.CardUpdate{BoardArea: u.BoardArea, Position: u.Position}, siblings)
		if err != nil {
			return domain.Card{}, err
		}
		card = res.Card
		renorm = append(renorm, res.Renormalized...)
		card.UpdatedAt = card.CreatedAt
	}

	if err := s.persistRenormalized(ctx, orgID, siblings, renorm); err != nil {
		return domain.Card{}, err
	}
	if err := s.store.InsertCard(ctx, card); err != nil {
		return domain.Card{}, err
	}
	log.WithFields(log.Fields{"org": orgID, "card": card.ID}).Debug("card created")
	s.publish(ctx, orgID, card.ID)
	return card, nil
}

// Update applies the partial-update contract to one card.
func (s *Service) Update(ctx context.Context, orgID, id string, u domain.CardUpdate) (domain.Card, error) {
	card, err := s.store.GetCard(ctx, orgID, id)
	if err != nil {
		return domain.Card{}, err
	}
	if err := s.checkBoard(ctx, orgID, u.BoardArea); err != nil {
		return domain.Card{}, err
	}
	var siblings []domain.Card
	if needsSiblings(u) {
		if siblings, err = s.store.FetchCards(ctx, orgID, false); err != nil {
			return domain.Card{}, err
		}
		for i := range siblings {
			siblings[i].Normalize()
		}
	}
	res, err := s.rec.Reconcile(card, u, siblings)
	if err != nil {
		return domain.Card{}, err
	}
	if !res.Changed() {
		return res.Card, nil
	}
	if err := s.persistRenormalized(ctx, orgID, siblings, res.Renormalized); err != nil {
		return domain.Card{}, err
	}
	if !res.Patch.Empty() {
		if err := s.store.UpdateCard(ctx, orgID, res.Patch, res.Card); err != nil {
			return domain.Card{}, err
		}
	}
	log.WithFields(log.Fields{"org": orgID, "card": id, "renormalized": len(res.Renormalized)}).Debug("card updated")
	s.publish(ctx, orgID, id)
	return res.Card, nil
}

// SetScheme moves a card to bucket on a fixed axis, optionally at index.
func (s *Service) SetScheme(ctx context.Context, orgID, id string, axis domain.Axis, bucket string, index *int) (domain.Card, error) {
	u := domain.CardUpdate{}
	switch axis {
	case domain.AxisStatus:
		u.Status = &bucket
	case domain.AxisBusiness:
		u.Business = &bucket
	case domain.AxisProof:
		u.Proof = &bucket
	default:
		return domain.Card{}, domain.Validationf("%q is not a fixed axis", axis)
	}
	if index != nil {
		u.Position = &domain.Position{Axis: axis, Index: *index}
	}
	return s.Update(ctx, orgID, id, u)
}

// PlaceOnBoard places a card into an area of a board, optionally at index
// among the area's cards.
func (s *Service) PlaceOnBoard(ctx context.Context, orgID, id string, board domain.BoardID, label domain.AreaLabel, index *int) (domain.Card, error) {
	if label == "" {
		return domain.Card{}, domain.Validationf("area label is required")
	}
	u := domain.CardUpdate{BoardArea: &domain.BoardAreaUpdate{BoardID: board, AreaLabel: label}}
	if index != nil {
		u.Position = &domain.Position{Axis: domain.AxisBoard, BoardID: board, Index: *index}
	}
	return s.Update(ctx, orgID, id, u)
}

// UnplaceFromBoard returns a card to the board's Inbox.
func (s *Service) UnplaceFromBoard(ctx context.Context, orgID, id string, board domain.BoardID) (domain.Card, error) {
	return s.Update(ctx, orgID, id, domain.CardUpdate{BoardArea: &domain.BoardAreaUpdate{BoardID: board}})
}

func (s *Service) Archive(ctx context.Context, orgID, id string) (domain.Card, error) {
	v := true
	return s.Update(ctx, orgID, id, domain.CardUpdate{IsArchived: &v})
}

func (s *Service) Unarchive(ctx context.Context, orgID, id string) (domain.Card, error) {
	v := false
	return s.Update(ctx, orgID, id, domain.CardUpdate{IsArchived: &v})
}

// Delete removes a card permanently.
func (s *Service) Delete(ctx context.Context, orgID, id string) error {
	if err := s.store.DeleteCard(ctx, orgID, id); err != nil {
		return err
	}
	s.publish(ctx, orgID, id)
	return nil
}

// Renormalize rewrites the keys of one bucket to evenly spaced values and
// returns the number of cards changed.
func (s *Service) Renormalize(ctx context.Context, orgID string, axis domain.Axis, board domain.BoardID, bucket string) (int, error) {
	ax, err := axisFor(axis, board)
	if err != nil {
		return 0, err
	}
	key, err := bucketKey(axis, bucket)
	if err != nil {
		return 0, err
	}
	cards, err := s.store.FetchCards(ctx, orgID, false)
	if err != nil {
		return 0, err
	}
	for i := range cards {
		cards[i].Normalize()
	}
	patches := renormalize(ax, ax.Members(cards, key, nil))
	if err := s.persistRenormalized(ctx, orgID, cards, patches); err != nil {
		return 0, err
	}
	if len(patches) > 0 {
		log.WithFields(log.Fields{"org": orgID, "axis": ax.Name, "bucket": key, "cards": len(patches)}).Info("bucket renormalized")
		s.publish(ctx, orgID, "")
	}
	return len(patches), nil
}

// UnplaceEverywhere removes board from the placements of every card of the
// organization, archived ones included. It returns the number of cards
// changed.
func (s *Service) UnplaceEverywhere(ctx context.Context, orgID string, board domain.BoardID) (int, error) {
	if board == "" {
		return 0, domain.Validationf("board id is required")
	}
	cards, err := s.store.FetchCards(ctx, orgID, true)
	if err != nil {
		return 0, err
	}
	now := s.rec.now()
	n := 0
	for _, c := range cards {
		c.Normalize()
		if _, placed := c.BoardAreas.Get(board); !placed {
			continue
		}
		p := domain.CardPatch{CardID: c.ID, UnsetBoards: []domain.BoardID{board}, UpdatedAt: now}
		next := c.Clone()
		p.Apply(&next)
		if err := s.store.UpdateCard(ctx, orgID, p, next); err != nil {
			if domain.IsNotFound(err) {
				continue
			}
			return n, fmt.Errorf("unplace card %s: %w", c.ID, err)
		}
		n++
	}
	if n > 0 {
		s.publish(ctx, orgID, "")
	}
	return n, nil
}

func (s *Service) checkBoard(ctx context.Context, orgID string, ba *domain.BoardAreaUpdate) error {
	if s.boards == nil || ba == nil || ba.Unplace() {
		return nil
	}
	b, err := s.boards.GetBoard(ctx, orgID, ba.BoardID)
	if err != nil {
		return err
	}
	if !b.HasArea(ba.AreaLabel) {
		return domain.Validationf("board %q has no area %q", ba.BoardID, ba.AreaLabel)
	}
	return nil
}

func (s *Service) persistRenormalized(ctx context.Context, orgID string, cards []domain.Card, patches []domain.CardPatch) error {
	if len(patches) == 0 {
		return nil
	}
	byID := make(map[string]domain.Card, len(cards))
	for _, c := range cards {
		byID[c.ID] = c
	}
	for _, p := range patches {
		next := byID[p.CardID].Clone()
		if p.TouchesBoards() {
			// Board maps are written whole, so start from the stored card
			// rather than the snapshot the keys were computed from.
			fresh, err := s.store.GetCard(ctx, orgID, p.CardID)
			if domain.IsNotFound(err) {
				continue
			}
			if err != nil {
				return fmt.Errorf("renormalize card %s: %w", p.CardID, err)
			}
			fresh.Normalize()
			if p = rebaseOrders(p, next, fresh); p.Empty() {
				continue
			}
			next = fresh
		}
		p.Apply(&next)
		if err := s.store.UpdateCard(ctx, orgID, p, next); err != nil {
			if domain.IsNotFound(err) {
				continue
			}
			return fmt.Errorf("renormalize card %s: %w", p.CardID, err)
		}
	}
	return nil
}

// rebaseOrders keeps the board order rewrites of p whose placement is
// unchanged between the snapshot and the stored card. A card moved to another
// area meanwhile is no longer in the renormalized bucket.
func rebaseOrders(p domain.CardPatch, snapshot, stored domain.Card) domain.CardPatch {
	orders := domain.BoardOrders{}
	for id, k := range p.SetOrders {
		was, _ := snapshot.BoardAreas.Get(id)
		if now, ok := stored.BoardAreas.Get(id); ok && now.Same(was) {
			orders[id] = k
		}
	}
	p.SetOrders = orders
	return p
}

func (s *Service) publish(ctx context.Context, orgID, cardID string) {
	if s.notify == nil {
		return
	}
	if err := s.notify.Publish(ctx, bus.New(orgID, bus.KindCards, cardID)); err != nil {
		log.WithError(err).WithField("org", orgID).Warn("card notification not delivered")
	}
}

func needsSiblings(u domain.CardUpdate) bool {
	if u.Position != nil {
		return true
	}
	if u.Status != nil || u.Business != nil || u.Proof != nil {
		return true
	}
	return u.BoardArea != nil && !u.BoardArea.Unplace()
}
