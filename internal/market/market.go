// Package market holds the token and pair shapes shared by the API client,
// the prompt builders and the report writers.
package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unknown is rendered for any value the API did not return.
const Unknown = "Unknown"

// Exchange identifies the DEX a pair trades on.
type Exchange struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// TokenRef is a token as it appears inside a pair record.
type TokenRef struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals *int   `json:"decimals,omitempty"`
}

// Pair is a ranking or pool record. JSON tags follow the market-data API.
type Pair struct {
	Address        string    `json:"address"`
	Rank           int       `json:"rank,omitempty"`
	Exchange       *Exchange `json:"exchange,omitempty"`
	Dex            *Exchange `json:"dex,omitempty"`
	Price          *float64  `json:"price,omitempty"`
	Price24h       *float64  `json:"price24h,omitempty"`
	Variation24h   *float64  `json:"variation24h,omitempty"`
	PriceChange24h *float64  `json:"priceChange24h,omitempty"`
	Volume24h      *float64  `json:"volume24h,omitempty"`
	Liquidity      *float64  `json:"liquidity,omitempty"`
	CreationTime   string    `json:"creationTime,omitempty"`
	MainToken      TokenRef  `json:"mainToken"`
	SideToken      TokenRef  `json:"sideToken"`
}

// Name renders the pair as MAIN/SIDE.
func (p Pair) Name() string {
	return orUnknown(p.MainToken.Symbol) + "/" + orUnknown(p.SideToken.Symbol)
}

// DexName returns the exchange name from whichever field the endpoint filled.
func (p Pair) DexName() string {
	switch {
	case p.Exchange != nil && p.Exchange.Name != "":
		return p.Exchange.Name
	case p.Dex != nil && p.Dex.Name != "":
		return p.Dex.Name
	}
	return Unknown
}

// Change24h is the 24h variation, falling back to priceChange24h.
func (p Pair) Change24h() *float64 {
	if p.Variation24h != nil {
		return p.Variation24h
	}
	return p.PriceChange24h
}

// TokenData converts the pair into the main token's analysis record.
func (p Pair) TokenData() TokenData {
	td := TokenData{
		Name:           orUnknown(p.MainToken.Name),
		Symbol:         p.MainToken.Symbol,
		Address:        p.MainToken.Address,
		Mint:           p.MainToken.Address,
		Price:          p.Price,
		PriceChange24h: p.Change24h(),
		Liquidity:      p.Liquidity,
		Volume24h:      p.Volume24h,
		CreatedAt:      p.CreationTime,
		Decimals:       p.MainToken.Decimals,
		PairAddress:    p.Address,
	}
	if td.Symbol == "" {
		td.Symbol = "UNKNOWN"
	}
	if name := p.DexName(); name != Unknown {
		ex := Exchange{Name: name}
		if p.Exchange != nil {
			ex.Address = p.Exchange.Address
		} else if p.Dex != nil {
			ex.Address = p.Dex.Address
		}
		td.Exchange = &ex
	}
	return td
}

// TokenData is the per-token record handed to the LLM and written to reports.
// Optional metrics are nil when the API did not return them.
type TokenData struct {
	Name           string           `json:"name"`
	Symbol         string           `json:"symbol"`
	Address        string           `json:"address"`
	Mint           string           `json:"mint"`
	Price          *float64         `json:"price"`
	PriceChange24h *float64         `json:"price_change_24h"`
	Liquidity      *float64         `json:"liquidity"`
	Volume24h      *float64         `json:"volume_24h"`
	MarketCap      *float64         `json:"market_cap"`
	CreatedAt      string           `json:"created_at,omitempty"`
	TotalSupply    *decimal.Decimal `json:"total_supply,omitempty"`
	Decimals       *int             `json:"decimals,omitempty"`
	HolderCount    *int64           `json:"holder_count,omitempty"`
	PairAddress    string           `json:"pair_address,omitempty"`
	Exchange       *Exchange        `json:"exchange,omitempty"`
}

// Label renders "Name (SYMBOL)".
func (t TokenData) Label() string {
	return orUnknown(t.Name) + " (" + t.Symbol + ")"
}

// Snapshot is the JSON document sent alongside a prompt and embedded in reports.
type Snapshot struct {
	Chain     string      `json:"chain"`
	Endpoint  string      `json:"endpoint"`
	Timestamp time.Time   `json:"timestamp"`
	Tokens    []TokenData `json:"tokens"`
}

// NewSnapshot converts pairs into a snapshot taken at now.
func NewSnapshot(chain, endpoint string, now time.Time, pairs []Pair) Snapshot {
	tokens := make([]TokenData, 0, len(pairs))
	for _, p := range pairs {
		tokens = append(tokens, p.TokenData())
	}
	return Snapshot{Chain: chain, Endpoint: endpoint, Timestamp: now, Tokens: tokens}
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}
