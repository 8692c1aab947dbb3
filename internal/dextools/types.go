package dextools

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/NikhilSetiya/dexanalyzer/internal/market"
	apperrors "github.com/NikhilSetiya/dexanalyzer/pkg/errors"
	"github.com/NikhilSetiya/dexanalyzer/pkg/resilience"
)

// Envelope is the API's response wrapper. Data is left raw because its shape
// differs by endpoint: a list, an object, or a page object with results.
type Envelope struct {
	Operation string          `json:"-"`
	Data      json.RawMessage `json:"data,omitempty"`
	Pairs     json.RawMessage `json:"pairs,omitempty"`
}

func decodeEnvelope(res *resilience.Result) (*Envelope, error) {
	env := &Envelope{Operation: res.Operation}
	if err := res.Decode(env); err != nil {
		return nil, err
	}
	return env, nil
}

// Empty reports whether the response carried neither data nor pairs.
func (e *Envelope) Empty() bool {
	return isNull(e.Data) && isNull(e.Pairs)
}

// DecodeData unmarshals data into v; a missing data field leaves v untouched.
func (e *Envelope) DecodeData(v any) error {
	if isNull(e.Data) {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return apperrors.NewDecodingError("unexpected " + e.Operation + " data").WithCause(err)
	}
	return nil
}

// Records extracts the record list from data: [...], data: {results: [...]}
// or a top-level pairs list. A response without any of them has no records.
func (e *Envelope) Records() ([]json.RawMessage, error) {
	if !isNull(e.Data) {
		trimmed := bytes.TrimSpace(e.Data)
		switch trimmed[0] {
		case '[':
			var list []json.RawMessage
			if err := json.Unmarshal(trimmed, &list); err != nil {
				return nil, apperrors.NewDecodingError("unexpected " + e.Operation + " data list").WithCause(err)
			}
			return list, nil
		case '{':
			page, err := e.Page()
			if err != nil {
				return nil, err
			}
			if page.Results != nil {
				return page.Results, nil
			}
		}
	}
	if !isNull(e.Pairs) {
		var list []json.RawMessage
		if err := json.Unmarshal(e.Pairs, &list); err != nil {
			return nil, apperrors.NewDecodingError("unexpected " + e.Operation + " pairs list").WithCause(err)
		}
		return list, nil
	}
	if !isNull(e.Data) {
		return nil, apperrors.NewDecodingError(e.Operation + " data holds no record list")
	}
	return nil, nil
}

// Conform checks that the envelope's data has the given shape. A response
// with no data at all conforms to every shape.
func (e *Envelope) Conform(shape Shape) error {
	switch shape {
	case ShapeRecords:
		_, err := e.Records()
		return err
	case ShapeObject:
		if isNull(e.Data) || bytes.TrimSpace(e.Data)[0] == '{' {
			return nil
		}
		return apperrors.NewDecodingError(e.Operation + " data is not an object")
	}
	return nil
}

// Page decodes a paged data object. A bare list is treated as a single page.
func (e *Envelope) Page() (*Page, error) {
	page := &Page{}
	if isNull(e.Data) {
		return page, nil
	}
	if bytes.TrimSpace(e.Data)[0] == '[' {
		if err := json.Unmarshal(e.Data, &page.Results); err != nil {
			return nil, apperrors.NewDecodingError("unexpected " + e.Operation + " data list").WithCause(err)
		}
		return page, nil
	}
	if err := json.Unmarshal(e.Data, page); err != nil {
		return nil, apperrors.NewDecodingError("unexpected " + e.Operation + " page").WithCause(err)
	}
	return page, nil
}

// Pretty renders the envelope's payload as indented JSON.
func (e *Envelope) Pretty() ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// Page is the API's paging wrapper.
type Page struct {
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
	Results    []json.RawMessage `json:"results"`
}

// Blockchain describes a supported chain.
type Blockchain struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	Website string `json:"website,omitempty"`
}

// Price is a price snapshot of a token or pool.
type Price struct {
	Price        *float64 `json:"price"`
	PriceChain   *float64 `json:"priceChain,omitempty"`
	Price5m      *float64 `json:"price5m,omitempty"`
	Variation5m  *float64 `json:"variation5m,omitempty"`
	Price1h      *float64 `json:"price1h,omitempty"`
	Variation1h  *float64 `json:"variation1h,omitempty"`
	Price6h      *float64 `json:"price6h,omitempty"`
	Variation6h  *float64 `json:"variation6h,omitempty"`
	Price24h     *float64 `json:"price24h,omitempty"`
	Variation24h *float64 `json:"variation24h,omitempty"`
	Volume24h    *float64 `json:"volume24h,omitempty"`
}

// Liquidity is a pool's liquidity and token reserves.
type Liquidity struct {
	Liquidity *float64 `json:"liquidity"`
	Reserves  struct {
		MainToken *float64 `json:"mainToken"`
		SideToken *float64 `json:"sideToken"`
	} `json:"reserves"`
}

// Token is the metadata record of a token.
type Token struct {
	Address      string `json:"address"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Decimals     *int   `json:"decimals,omitempty"`
	CreationTime string `json:"creationTime,omitempty"`
	Description  string `json:"description,omitempty"`
}

// TokenInfo carries supply and holder figures. Supplies can exceed float64
// precision, so they are decimals.
type TokenInfo struct {
	CirculatingSupply *decimal.Decimal `json:"circulatingSupply,omitempty"`
	TotalSupply       *decimal.Decimal `json:"totalSupply,omitempty"`
	MarketCap         *float64         `json:"mcap,omitempty"`
	FDV               *float64         `json:"fdv,omitempty"`
	Holders           *int64           `json:"holders,omitempty"`
	Transactions      *int64           `json:"transactions,omitempty"`
}

// TokenData merges the token record with its optional info and price
// snapshots into the analysis record. info and price may be nil.
func (t Token) TokenData(info *TokenInfo, price *Price) market.TokenData {
	td := market.TokenData{
		Name:      t.Name,
		Symbol:    t.Symbol,
		Address:   t.Address,
		Mint:      t.Address,
		CreatedAt: t.CreationTime,
		Decimals:  t.Decimals,
	}
	if td.Name == "" {
		td.Name = market.Unknown
	}
	if td.Symbol == "" {
		td.Symbol = "UNKNOWN"
	}
	if info != nil {
		td.MarketCap = info.MarketCap
		td.TotalSupply = info.TotalSupply
		td.HolderCount = info.Holders
	}
	if price != nil {
		td.Price = price.Price
		td.PriceChange24h = price.Variation24h
		td.Volume24h = price.Volume24h
	}
	return td
}
