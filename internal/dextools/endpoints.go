package dextools

import (
	"fmt"
	"strings"

	apperrors "github.com/NikhilSetiya/dexanalyzer/pkg/errors"
)

// Endpoint is a named market-data API resource. Template is the documented
// path relative to the versioned base URL; an endpoint profile may replace it
// with a list of alternatives under the same Name.
type Endpoint struct {
	Name     string
	Template string
	Shape    Shape
}

// Shape is the form an endpoint's data takes in a successful response.
type Shape int

const (
	// ShapeAny accepts any JSON payload.
	ShapeAny Shape = iota
	// ShapeRecords is a record list: data: [...], data: {results: [...]} or pairs: [...].
	ShapeRecords
	// ShapeObject is a single data object.
	ShapeObject
)

// HasAddress reports whether the template needs an {address} substitution.
func (e Endpoint) HasAddress() bool {
	return strings.Contains(e.Template, "{address}")
}

func (e Endpoint) String() string {
	return e.Name
}

var (
	EndpointBlockchains   = Endpoint{Name: "blockchains", Template: "/blockchain", Shape: ShapeRecords}
	EndpointBlockchain    = Endpoint{Name: "blockchain", Template: "/blockchain/{chain}", Shape: ShapeObject}
	EndpointDexes         = Endpoint{Name: "dexes", Template: "/dex/{chain}", Shape: ShapeRecords}
	EndpointHotPools      = Endpoint{Name: "ranking_hotpools", Template: "/ranking/{chain}/hotpools", Shape: ShapeRecords}
	EndpointGainers       = Endpoint{Name: "ranking_gainers", Template: "/ranking/{chain}/gainers", Shape: ShapeRecords}
	EndpointLosers        = Endpoint{Name: "ranking_losers", Template: "/ranking/{chain}/losers", Shape: ShapeRecords}
	EndpointPools         = Endpoint{Name: "pools", Template: "/pool/{chain}", Shape: ShapeRecords}
	EndpointPool          = Endpoint{Name: "pool", Template: "/pool/{chain}/{address}", Shape: ShapeObject}
	EndpointPoolPrice     = Endpoint{Name: "pool_price", Template: "/pool/{chain}/{address}/price", Shape: ShapeObject}
	EndpointPoolLiquidity = Endpoint{Name: "pool_liquidity", Template: "/pool/{chain}/{address}/liquidity", Shape: ShapeObject}
	EndpointToken         = Endpoint{Name: "token", Template: "/token/{chain}/{address}", Shape: ShapeObject}
	EndpointTokenInfo     = Endpoint{Name: "token_info", Template: "/token/{chain}/{address}/info", Shape: ShapeObject}
	EndpointTokenPrice    = Endpoint{Name: "token_price", Template: "/token/{chain}/{address}/price", Shape: ShapeObject}
	EndpointTokenPools    = Endpoint{Name: "token_pools", Template: "/token/{chain}/{address}/pools", Shape: ShapeRecords}
)

// Endpoints lists every known endpoint, keyed by name.
var Endpoints = map[string]Endpoint{}

func init() {
	for _, e := range []Endpoint{
		EndpointBlockchains, EndpointBlockchain, EndpointDexes,
		EndpointHotPools, EndpointGainers, EndpointLosers,
		EndpointPools, EndpointPool, EndpointPoolPrice, EndpointPoolLiquidity,
		EndpointToken, EndpointTokenInfo, EndpointTokenPrice, EndpointTokenPools,
	} {
		Endpoints[e.Name] = e
	}
}

// Ranking selects one of the ranking endpoints.
type Ranking string

const (
	RankingGainers  Ranking = "gainers"
	RankingLosers   Ranking = "losers"
	RankingHotPools Ranking = "hotpools"
)

// ParseRanking validates a ranking name.
func ParseRanking(s string) (Ranking, error) {
	switch r := Ranking(s); r {
	case RankingGainers, RankingLosers, RankingHotPools:
		return r, nil
	}
	return "", apperrors.NewValidationError(fmt.Sprintf("unknown ranking %q (expected gainers, losers or hotpools)", s))
}

// Endpoint returns the API endpoint serving the ranking.
func (r Ranking) Endpoint() Endpoint {
	switch r {
	case RankingLosers:
		return EndpointLosers
	case RankingHotPools:
		return EndpointHotPools
	default:
		return EndpointGainers
	}
}
