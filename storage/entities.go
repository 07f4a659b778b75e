package storage

import (
	"time"

	"github.com/bytedance/sonic"

	"cardmass/domain"
)

const (
	edmDouble   = "Edm.Double"
	edmDateTime = "Edm.DateTime"
	edmInt32    = "Edm.Int32"

	edmTimeFormat = "2006-01-02T15:04:05.0000000Z"
)

// Entity represents base table entity keys.
type Entity struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
}

// cardEntity is the stored form of a card. Board placements are kept as
// JSON-encoded strings because table properties cannot nest.
type cardEntity struct {
	Entity
	Text              string  `json:"Text"`
	Status            string  `json:"Status"`
	Order             float64 `json:"Order"`
	OrderType         string  `json:"Order@odata.type,omitempty"`
	Business          string  `json:"Business"`
	BusinessOrder     float64 `json:"BusinessOrder"`
	BusinessOrderType string  `json:"BusinessOrder@odata.type,omitempty"`
	Proof             string  `json:"Proof"`
	ProofOrder        float64 `json:"ProofOrder"`
	ProofOrderType    string  `json:"ProofOrder@odata.type,omitempty"`
	BoardAreas        string  `json:"BoardAreas"`
	BoardOrders       string  `json:"BoardOrders"`
	IsArchived        bool    `json:"IsArchived"`
	CreatedAt         string  `json:"CreatedAt"`
	CreatedAtType     string  `json:"CreatedAt@odata.type,omitempty"`
	UpdatedAt         string  `json:"UpdatedAt"`
	UpdatedAtType     string  `json:"UpdatedAt@odata.type,omitempty"`
}

// cardUpdate carries a merge of the changed card properties.
type cardUpdate struct {
	Entity
	Text              *string  `json:"Text,omitempty"`
	Status            *string  `json:"Status,omitempty"`
	Order             *float64 `json:"Order,omitempty"`
	OrderType         *string  `json:"Order@odata.type,omitempty"`
	Business          *string  `json:"Business,omitempty"`
	BusinessOrder     *float64 `json:"BusinessOrder,omitempty"`
	BusinessOrderType *string  `json:"BusinessOrder@odata.type,omitempty"`
	Proof             *string  `json:"Proof,omitempty"`
	ProofOrder        *float64 `json:"ProofOrder,omitempty"`
	ProofOrderType    *string  `json:"ProofOrder@odata.type,omitempty"`
	BoardAreas        *string  `json:"BoardAreas,omitempty"`
	BoardOrders       *string  `json:"BoardOrders,omitempty"`
	IsArchived        *bool    `json:"IsArchived,omitempty"`
	UpdatedAt         *string  `json:"UpdatedAt,omitempty"`
	UpdatedAtType     *string  `json:"UpdatedAt@odata.type,omitempty"`
}

type boardEntity struct {
	Entity
	Slug          string `json:"Slug"`
	Rows          int    `json:"Rows"`
	RowsType      string `json:"Rows@odata.type,omitempty"`
	Cols          int    `json:"Cols"`
	ColsType      string `json:"Cols@odata.type,omitempty"`
	Areas         string `json:"Areas"`
	Version       int    `json:"Version"`
	VersionType   string `json:"Version@odata.type,omitempty"`
	UpdatedAt     string `json:"UpdatedAt"`
	UpdatedAtType string `json:"UpdatedAt@odata.type,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(edmTimeFormat)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func encodeCard(c domain.Card) ([]byte, error) {
	areas, err := sonic.MarshalString(nonNilAreas(c.BoardAreas))
	if err != nil {
		return nil, err
	}
	orders, err := sonic.MarshalString(nonNilOrders(c.BoardOrders))
	if err != nil {
		return nil, err
	}
	ent := cardEntity{
		Entity:            Entity{PartitionKey: c.OrgID, RowKey: c.ID},
		Text:              c.Text,
		Status:            string(c.Status),
		Order:             c.Order,
		OrderType:         edmDouble,
		Business:          string(c.Business),
		BusinessOrder:     c.BusinessOrder,
		BusinessOrderType: edmDouble,
		Proof:             string(c.Proof),
		ProofOrder:        c.ProofOrder,
		ProofOrderType:    edmDouble,
		BoardAreas:        areas,
		BoardOrders:       orders,
		IsArchived:        c.IsArchived,
		CreatedAt:         formatTime(c.CreatedAt),
		UpdatedAt:         formatTime(c.UpdatedAt),
	}
	if ent.CreatedAt != "" {
		ent.CreatedAtType = edmDateTime
	}
	if ent.UpdatedAt != "" {
		ent.UpdatedAtType = edmDateTime
	}
	return sonic.Marshal(ent)
}

func decodeCard(data []byte) (domain.Card, error) {
	var ent cardEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return domain.Card{}, err
	}
	c := domain.Card{
		ID:            ent.RowKey,
		OrgID:         ent.PartitionKey,
		Text:          ent.Text,
		Status:        domain.Status(ent.Status),
		Order:         ent.Order,
		Business:      domain.Business(ent.Business),
		BusinessOrder: ent.BusinessOrder,
		Proof:         domain.Proof(ent.Proof),
		ProofOrder:    ent.ProofOrder,
		IsArchived:    ent.IsArchived,
		CreatedAt:     parseTime(ent.CreatedAt),
		UpdatedAt:     parseTime(ent.UpdatedAt),
	}
	if ent.BoardAreas != "" {
		if err := sonic.UnmarshalString(ent.BoardAreas, &c.BoardAreas); err != nil {
			return domain.Card{}, err
		}
	}
	if ent.BoardOrders != "" {
		if err := sonic.UnmarshalString(ent.BoardOrders, &c.BoardOrders); err != nil {
			return domain.Card{}, err
		}
	}
	c.Normalize()
	return c, nil
}

// encodeCardPatch builds a merge payload. Board maps are written whole from
// next since a table property cannot be partially updated.
func encodeCardPatch(orgID string, p domain.CardPatch, next domain.Card) ([]byte, error) {
	dbl := edmDouble
	upd := cardUpdate{
		Entity: Entity{PartitionKey: orgID, RowKey: p.CardID},
		Text:   p.Text,
	}
	if p.Status != nil {
		s := string(*p.Status)
		upd.Status = &s
	}
	if p.Order != nil {
		upd.Order, upd.OrderType = p.Order, &dbl
	}
	if p.Business != nil {
		b := string(*p.Business)
		upd.Business = &b
	}
	if p.BusinessOrder != nil {
		upd.BusinessOrder, upd.BusinessOrderType = p.BusinessOrder, &dbl
	}
	if p.Proof != nil {
		pr := string(*p.Proof)
		upd.Proof = &pr
	}
	if p.ProofOrder != nil {
		upd.ProofOrder, upd.ProofOrderType = p.ProofOrder, &dbl
	}
	if p.TouchesBoards() {
		areas, err := sonic.MarshalString(nonNilAreas(next.BoardAreas))
		if err != nil {
			return nil, err
		}
		orders, err := sonic.MarshalString(nonNilOrders(next.BoardOrders))
		if err != nil {
			return nil, err
		}
		upd.BoardAreas, upd.BoardOrders = &areas, &orders
	}
	upd.IsArchived = p.IsArchived
	if !p.UpdatedAt.IsZero() {
		ts, typ := formatTime(p.UpdatedAt), edmDateTime
		upd.UpdatedAt, upd.UpdatedAtType = &ts, &typ
	}
	return sonic.Marshal(upd)
}

func encodeBoard(b domain.Board) ([]byte, error) {
	areas := b.Areas
	if areas == nil {
		areas = []domain.Area{}
	}
	data, err := sonic.MarshalString(areas)
	if err != nil {
		return nil, err
	}
	ent := boardEntity{
		Entity:      Entity{PartitionKey: b.OrgID, RowKey: string(b.ID)},
		Slug:        b.Slug,
		Rows:        b.Rows,
		RowsType:    edmInt32,
		Cols:        b.Cols,
		ColsType:    edmInt32,
		Areas:       data,
		Version:     b.Version,
		VersionType: edmInt32,
		UpdatedAt:   formatTime(b.UpdatedAt),
	}
	if ent.UpdatedAt != "" {
		ent.UpdatedAtType = edmDateTime
	}
	return sonic.Marshal(ent)
}

func decodeBoard(data []byte) (domain.Board, error) {
	var ent boardEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return domain.Board{}, err
	}
	b := domain.Board{
		ID:        domain.BoardID(ent.RowKey),
		OrgID:     ent.PartitionKey,
		Slug:      ent.Slug,
		Rows:      ent.Rows,
		Cols:      ent.Cols,
		Version:   ent.Version,
		UpdatedAt: parseTime(ent.UpdatedAt),
	}
	if ent.Areas != "" {
		if err := sonic.UnmarshalString(ent.Areas, &b.Areas); err != nil {
			return domain.Board{}, err
		}
	}
	return b, nil
}

func nonNilAreas(m domain.BoardAreas) domain.BoardAreas {
	if m == nil {
		return domain.BoardAreas{}
	}
	return m
}

func nonNilOrders(m domain.BoardOrders) domain.BoardOrders {
	if m == nil {
		return domain.BoardOrders{}
	}
	return m
}
