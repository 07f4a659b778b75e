// Package placement reconciles partial card updates into minimal document
// patches and persists them.
package placement

import (
	"errors"
	"time"

	"cardmass/domain"
	"cardmass/ordering"
)

// MaxTextLength bounds the card body.
const MaxTextLength = 10000

// Result is the outcome of reconciling one update.
type Result struct {
	// Card is the card with Patch applied.
	Card  domain.Card
	Patch domain.CardPatch
	// Renormalized holds order rewrites for other cards of the bucket the
	// card was inserted into. It is empty unless neighbouring keys collided.
	Renormalized []domain.CardPatch
}

// Changed reports whether anything needs to be written.
func (r Result) Changed() bool {
	return !r.Patch.Empty() || len(r.Renormalized) > 0
}

// Reconciler computes patches. It holds no state besides the clock.
type Reconciler struct {
	Now func() time.Time
}

func (r Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

// parsedUpdate holds the checked enum values of a CardUpdate.
type parsedUpdate struct {
	status   *domain.Status
	business *domain.Business
	proof    *domain.Proof
}

func parseUpdate(card domain.Card, u domain.CardUpdate) (parsedUpdate, error) {
	var p parsedUpdate
	if u.Empty() {
		return p, domain.Validationf("update names no fields")
	}
	if u.Text != nil && len(*u.Text) > MaxTextLength {
		return p, domain.Validationf("text exceeds %d bytes", MaxTextLength)
	}
	if u.Status != nil {
		s, err := domain.ParseStatus(*u.Status)
		if err != nil {
			return p, err
		}
		p.status = &s
	}
	if u.Business != nil {
		b, err := domain.ParseBusiness(*u.Business)
		if err != nil {
			return p, err
		}
		p.business = &b
	}
	if u.Proof != nil {
		pr, err := domain.ParseProof(*u.Proof)
		if err != nil {
			return p, err
		}
		p.proof = &pr
	}
	if ba := u.BoardArea; ba != nil {
		if ba.BoardID == "" {
			return p, domain.Validationf("boardArea.boardId is required")
		}
		if ba.Unplace() && ba.Order != nil {
			return p, domain.Validationf("boardArea.order given for an unplace request")
		}
	}
	if pos := u.Position; pos != nil {
		if !pos.Axis.Valid() {
			return p, domain.Validationf("unknown position axis %q", pos.Axis)
		}
		if pos.Index < 0 {
			return p, domain.Validationf("position index must not be negative")
		}
		if pos.Axis == domain.AxisBoard {
			if pos.BoardID == "" {
				return p, domain.Validationf("position.boardId is required for the board axis")
			}
			ba := u.BoardArea
			if ba != nil && ba.BoardID != pos.BoardID {
				return p, domain.Validationf("position and boardArea name different boards")
			}
			if ba != nil && ba.Unplace() {
				return p, domain.Validationf("cannot position a card that is being unplaced")
			}
			if _, placed := card.BoardAreas.Get(pos.BoardID); !placed && ba == nil {
				return p, domain.Validationf("card is not placed on board %q", pos.BoardID)
			}
		}
	}
	return p, nil
}

// Reconcile validates u against card and computes the patch. siblings are the
// other cards of the organization that take part in ordering; card itself is
// skipped if present. Nothing is written; a validation error means no part of
// the update applies.
func (r Reconciler) Reconcile(card domain.Card, u domain.CardUpdate, siblings []domain.Card) (Result, error) {
	card.Normalize()
	pu, err := parseUpdate(card, u)
	if err != nil {
		return Result{}, err
	}

	skip := func(c domain.Card) bool { return c.ID == card.ID }
	patch := domain.CardPatch{CardID: card.ID}
	var renorm []domain.CardPatch

	place := func(ax cardAxis, bucket string, changed bool, current float64, explicit *float64) error {
		pos := u.Position
		targeted := pos != nil && pos.Axis == ax.kind && (ax.kind != domain.AxisBoard || pos.BoardID == ax.board)
		switch {
		case explicit != nil:
			if changed || *explicit != current {
				ax.setKey(&patch, *explicit)
			}
		case targeted:
			k, rp, err := allocate(ax, ax.Members(siblings, bucket, skip), func(m []domain.Card) (float64, error) {
				return ax.InsertAt(m, pos.Index)
			})
			if err != nil {
				return err
			}
			renorm = append(renorm, rp...)
			ax.setKey(&patch, k)
		case changed:
			k, rp, err := allocate(ax, ax.Members(siblings, bucket, skip), ax.Append)
			if err != nil {
				return err
			}
			renorm = append(renorm, rp...)
			ax.setKey(&patch, k)
		}
		return nil
	}

	if u.Text != nil && *u.Text != card.Text {
		patch.Text = u.Text
	}

	status := card.Status
	if pu.status != nil && *pu.status != card.Status {
		status = *pu.status
		patch.Status = &status
	}
	if err := place(statusAxis, string(status), patch.Status != nil, card.Order, u.Order); err != nil {
		return Result{}, err
	}

	business := card.Business
	if pu.business != nil && *pu.business != card.Business {
		business = *pu.business
		patch.Business = &business
	}
	if err := place(businessAxis, string(business), patch.Business != nil, card.BusinessOrder, u.BusinessOrder); err != nil {
		return Result{}, err
	}

	proof := card.Proof
	if pu.proof != nil && *pu.proof != card.Proof {
		proof = *pu.proof
		patch.Proof = &proof
	}
	if err := place(proofAxis, string(proof), patch.Proof != nil, card.ProofOrder, u.ProofOrder); err != nil {
		return Result{}, err
	}

	if ba := u.BoardArea; ba != nil {
		prev, placed := card.BoardAreas.Get(ba.BoardID)
		if ba.Unplace() {
			if placed {
				patch.UnsetBoards = []domain.BoardID{ba.BoardID}
			}
		} else {
			if !placed || prev != ba.AreaLabel {
				patch.SetBoards = domain.BoardAreas{ba.BoardID: ba.AreaLabel}
			}
			changed := !placed || !prev.Same(ba.AreaLabel)
			if err := place(boardAxis(ba.BoardID), ba.AreaLabel.Key(), changed, card.BoardOrders[ba.BoardID], ba.Order); err != nil {
				return Result{}, err
			}
		}
	} else if pos := u.Position; pos != nil && pos.Axis == domain.AxisBoard {
		label, _ := card.BoardAreas.Get(pos.BoardID)
		if err := place(boardAxis(pos.BoardID), label.Key(), false, card.BoardOrders[pos.BoardID], nil); err != nil {
			return Result{}, err
		}
	}

	if u.IsArchived != nil && *u.IsArchived != card.IsArchived {
		patch.IsArchived = u.IsArchived
	}

	next := card.Clone()
	if !patch.Empty() {
		patch.UpdatedAt = r.now()
		patch.Apply(&next)
	}
	return Result{Card: next, Patch: patch, Renormalized: renorm}, nil
}

// allocate runs alloc over the sorted members of a bucket. When the keys
// leave no room it renormalizes the bucket once and retries, returning the
// sibling rewrites alongside the key.
func allocate(ax cardAxis, members []domain.Card, alloc func([]domain.Card) (float64, error)) (float64, []domain.CardPatch, error) {
	k, err := alloc(members)
	if !errors.Is(err, ordering.ErrKeyCollision) {
		return k, nil, err
	}
	rp := renormalize(ax, members)
	k, err = alloc(applyAll(members, rp))
	return k, rp, err
}

// renormalize assigns evenly spaced keys to the sorted members of a bucket
// and returns patches for the members whose key changes.
func renormalize(ax cardAxis, members []domain.Card) []domain.CardPatch {
	keys := ordering.Renormalize(len(members))
	out := make([]domain.CardPatch, 0, len(members))
	for i, m := range members {
		if ax.Key(m) == keys[i] {
			continue
		}
		p := domain.CardPatch{CardID: m.ID}
		ax.setKey(&p, keys[i])
		out = append(out, p)
	}
	return out
}

// applyAll returns copies of cards with the matching patches applied.
func applyAll(cards []domain.Card, patches []domain.CardPatch) []domain.Card {
	byID := make(map[string]domain.CardPatch, len(patches))
	for _, p := range patches {
		byID[p.CardID] = p
	}
	out := make([]domain.Card, len(cards))
	for i, c := range cards {
		c = c.Clone()
		if p, ok := byID[c.ID]; ok {
			p.Apply(&c)
		}
		out[i] = c
	}
	return out
}
