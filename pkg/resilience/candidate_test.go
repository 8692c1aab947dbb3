package resilience

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombine(t *testing.T) {
	subs := Combine(
		Dimension{Name: "chain", Values: []string{"solana", "sol"}},
		Dimension{Name: "address", Values: []string{"A", "B"}},
	)
	require.Len(t, subs, 4)
	assert.Equal(t, Substitution{"chain": "solana", "address": "A"}, subs[0])
	assert.Equal(t, Substitution{"chain": "solana", "address": "B"}, subs[1])
	assert.Equal(t, Substitution{"chain": "sol", "address": "A"}, subs[2])
	assert.Equal(t, Substitution{"chain": "sol", "address": "B"}, subs[3])

	assert.Equal(t, []Substitution{{}}, Combine())
	assert.Empty(t, Combine(Dimension{Name: "chain"}))
}

func TestBuildCandidates_Order(t *testing.T) {
	op := Operation{
		BaseURLs:      []string{"https://a.test/v1/", "https://b.test/v2"},
		Templates:     []string{"/t1/{chain}", "/t2/{chain}"},
		Substitutions: Combine(Dimension{Name: "chain", Values: []string{"solana", "sol"}}),
	}

	cands, err := BuildCandidates(op, nil)
	require.NoError(t, err)

	var urls []string
	for i, c := range cands {
		assert.Equal(t, i, c.Index)
		urls = append(urls, c.URL())
	}
	assert.Equal(t, []string{
		"https://a.test/v1/t1/solana",
		"https://a.test/v1/t2/solana",
		"https://a.test/v1/t1/sol",
		"https://a.test/v1/t2/sol",
		"https://b.test/v2/t1/solana",
		"https://b.test/v2/t2/solana",
		"https://b.test/v2/t1/sol",
		"https://b.test/v2/t2/sol",
	}, urls)
}

func TestBuildCandidates_DefaultsAndEscaping(t *testing.T) {
	cands, err := BuildCandidates(Operation{
		Templates:     []string{"/token/{chain}/{address}"},
		Substitutions: []Substitution{{"chain": "solana", "address": "a b/c"}},
	}, []string{"https://public-api.dextools.io/trial/v2"})
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "https://public-api.dextools.io/trial/v2/token/solana/a%20b%2Fc", cands[0].URL())
	assert.Equal(t, "/token/{chain}/{address}", cands[0].Template)
	assert.Equal(t, cands[0].URL(), cands[0].String())
}

func TestBuildCandidates_NoPlaceholders(t *testing.T) {
	cands, err := BuildCandidates(Operation{Templates: []string{"/blockchain"}}, []string{"https://x.test"})
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "https://x.test/blockchain", cands[0].URL())
}
