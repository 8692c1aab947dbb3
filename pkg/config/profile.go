package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/NikhilSetiya/dexanalyzer/pkg/errors"
)

// EndpointProfile widens the request candidates for an API whose paths and
// identifier spellings are not reliably documented. Every list is tried in
// order; the documented form should come first.
//
//	base_urls:
//	  - https://public-api.dextools.io/trial/v2
//	chain_aliases:
//	  solana: [solana, sol]
//	templates:
//	  ranking_gainers: [/ranking/{chain}/gainers, /rankings/{chain}/gainers]
type EndpointProfile struct {
	BaseURLs     []string            `yaml:"base_urls"`
	ChainAliases map[string][]string `yaml:"chain_aliases"`
	Templates    map[string][]string `yaml:"templates"`
}

// LoadProfile reads and validates a YAML endpoint profile.
func LoadProfile(path string) (*EndpointProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigurationError("DEXTOOLS_PROFILE", "failed to read endpoint profile").
			WithCause(err).
			WithDetail("path", path)
	}
	return ParseProfile(data)
}

// ParseProfile decodes a YAML endpoint profile. Unknown keys are rejected.
func ParseProfile(data []byte) (*EndpointProfile, error) {
	profile := &EndpointProfile{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(profile); err != nil {
		return nil, apperrors.NewConfigurationError("DEXTOOLS_PROFILE", "invalid endpoint profile").WithCause(err)
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}

// Validate checks that every entry is usable as a candidate component.
func (p *EndpointProfile) Validate() error {
	for _, u := range p.BaseURLs {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return apperrors.NewConfigurationError("DEXTOOLS_PROFILE",
				fmt.Sprintf("base url %q must be absolute", u))
		}
	}
	for chain, aliases := range p.ChainAliases {
		if len(aliases) == 0 {
			return apperrors.NewConfigurationError("DEXTOOLS_PROFILE",
				fmt.Sprintf("chain %q has no aliases", chain))
		}
	}
	for op, templates := range p.Templates {
		if len(templates) == 0 {
			return apperrors.NewConfigurationError("DEXTOOLS_PROFILE",
				fmt.Sprintf("operation %q has no templates", op))
		}
		for _, t := range templates {
			if !strings.HasPrefix(t, "/") {
				return apperrors.NewConfigurationError("DEXTOOLS_PROFILE",
					fmt.Sprintf("template %q for %q must start with /", t, op))
			}
		}
	}
	return nil
}

// Aliases returns the identifier spellings to try for chain, defaulting to
// the chain itself. Safe on a nil profile.
func (p *EndpointProfile) Aliases(chain string) []string {
	if p != nil {
		if aliases, ok := p.ChainAliases[chain]; ok {
			return aliases
		}
	}
	return []string{chain}
}

// TemplatesFor returns the path templates for an operation, falling back to
// the documented template. Safe on a nil profile.
func (p *EndpointProfile) TemplatesFor(operation, documented string) []string {
	if p != nil {
		if templates, ok := p.Templates[operation]; ok {
			return templates
		}
	}
	return []string{documented}
}
