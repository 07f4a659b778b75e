package placement

import (
	"time"

	"cardmass/domain"
	"cardmass/ordering"
)

// cardAxis binds an ordering axis over cards to the patch field holding its key.
type cardAxis struct {
	ordering.Axis[domain.Card]
	kind   domain.Axis
	board  domain.BoardID
	setKey func(p *domain.CardPatch, k float64)
}

func touched(c domain.Card) time.Time { return c.UpdatedAt }

var statusAxis = cardAxis{
	Axis: ordering.Axis[domain.Card]{
		Name:    string(domain.AxisStatus),
		Bucket:  func(c domain.Card) (string, bool) { return string(c.Status), true },
		Key:     func(c domain.Card) float64 { return c.Order },
		Touched: touched,
	},
	kind:   domain.AxisStatus,
	setKey: func(p *domain.CardPatch, k float64) { p.Order = &k },
}

var businessAxis = cardAxis{
	Axis: ordering.Axis[domain.Card]{
		Name:    string(domain.AxisBusiness),
		Bucket:  func(c domain.Card) (string, bool) { return string(c.Business), true },
		Key:     func(c domain.Card) float64 { return c.BusinessOrder },
		Touched: touched,
	},
	kind:   domain.AxisBusiness,
	setKey: func(p *domain.CardPatch, k float64) { p.BusinessOrder = &k },
}

var proofAxis = cardAxis{
	Axis: ordering.Axis[domain.Card]{
		Name:    string(domain.AxisProof),
		Bucket:  func(c domain.Card) (string, bool) { return string(c.Proof), true },
		Key:     func(c domain.Card) float64 { return c.ProofOrder },
		Touched: touched,
	},
	kind:   domain.AxisProof,
	setKey: func(p *domain.CardPatch, k float64) { p.ProofOrder = &k },
}

// boardAxis orders the cards placed on one board. Buckets are lower-cased
// area labels, so "Todo" and "todo" share a bucket.
func boardAxis(id domain.BoardID) cardAxis {
	return cardAxis{
		Axis: ordering.Axis[domain.Card]{
			Name: string(domain.AxisBoard) + ":" + string(id),
			Bucket: func(c domain.Card) (string, bool) {
				l, ok := c.BoardAreas.Get(id)
				return l.Key(), ok
			},
			Key:     func(c domain.Card) float64 { return c.BoardOrders[id] },
			Touched: touched,
		},
		kind:  domain.AxisBoard,
		board: id,
		setKey: func(p *domain.CardPatch, k float64) {
			if p.SetOrders == nil {
				p.SetOrders = domain.BoardOrders{}
			}
			p.SetOrders[id] = k
		},
	}
}

func axisFor(a domain.Axis, board domain.BoardID) (cardAxis, error) {
	switch a {
	case domain.AxisStatus:
		return statusAxis, nil
	case domain.AxisBusiness:
		return businessAxis, nil
	case domain.AxisProof:
		return proofAxis, nil
	case domain.AxisBoard:
		if board == "" {
			return cardAxis{}, domain.Validationf("board axis requires a board id")
		}
		return boardAxis(board), nil
	}
	return cardAxis{}, domain.Validationf("unknown axis %q", a)
}

// bucketKey validates a bucket value for the axis and returns the key used
// for membership.
func bucketKey(a domain.Axis, raw string) (string, error) {
	switch a {
	case domain.AxisStatus:
		s, err := domain.ParseStatus(raw)
		return string(s), err
	case domain.AxisBusiness:
		b, err := domain.ParseBusiness(raw)
		return string(b), err
	case domain.AxisProof:
		p, err := domain.ParseProof(raw)
		return string(p), err
	case domain.AxisBoard:
		if raw == "" {
			return "", domain.Validationf("area label is required")
		}
		return domain.AreaLabel(raw).Key(), nil
	}
	return "", domain.Validationf("unknown axis %q", a)
}
