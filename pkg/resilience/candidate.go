package resilience

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	apperrors "github.com/NikhilSetiya/dexanalyzer/pkg/errors"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Substitution maps placeholder names to the identifier spelling used for one candidate.
type Substitution map[string]string

// Dimension lists the alternative spellings of one placeholder, most likely first.
type Dimension struct {
	Name   string
	Values []string
}

// Combine expands dimensions into every substitution. The first dimension
// varies slowest. No dimensions yields a single empty substitution.
func Combine(dims ...Dimension) []Substitution {
	subs := []Substitution{{}}
	for _, dim := range dims {
		next := make([]Substitution, 0, len(subs)*len(dim.Values))
		for _, sub := range subs {
			for _, v := range dim.Values {
				s := make(Substitution, len(sub)+1)
				for k, val := range sub {
					s[k] = val
				}
				s[dim.Name] = v
				next = append(next, s)
			}
		}
		subs = next
	}
	return subs
}

// Candidate is one concrete request target. Candidates are immutable once built.
type Candidate struct {
	Index        int
	BaseURL      string
	Template     string
	Path         string
	Substitution Substitution
}

// URL returns the absolute request URL without query parameters.
func (c Candidate) URL() string {
	return strings.TrimRight(c.BaseURL, "/") + c.Path
}

func (c Candidate) String() string {
	return c.URL()
}

// Candidates enumerates the candidate list for op in attempt order: base URL
// slowest, then substitution, then path template fastest. A descriptor that
// cannot produce a full list is rejected as a whole.
func (e *Executor) Candidates(op Operation) ([]Candidate, error) {
	return BuildCandidates(op, e.cfg.BaseURLs)
}

// BuildCandidates is Candidates without an executor; defaultBaseURLs are used
// when the operation carries none.
func BuildCandidates(op Operation, defaultBaseURLs []string) ([]Candidate, error) {
	baseURLs := op.BaseURLs
	if len(baseURLs) == 0 {
		baseURLs = defaultBaseURLs
	}
	if len(baseURLs) == 0 {
		return nil, apperrors.NewValidationError("operation has no base URLs").WithDetail("operation", op.Name)
	}
	if len(op.Templates) == 0 {
		return nil, apperrors.NewValidationError("operation has no path templates").WithDetail("operation", op.Name)
	}
	for _, base := range baseURLs {
		u, err := url.Parse(base)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, apperrors.NewValidationError(fmt.Sprintf("invalid base URL %q", base)).
				WithDetail("operation", op.Name)
		}
	}

	subs := op.Substitutions
	if len(subs) == 0 {
		subs = []Substitution{{}}
	}

	candidates := make([]Candidate, 0, len(baseURLs)*len(subs)*len(op.Templates))
	for _, base := range baseURLs {
		for _, sub := range subs {
			for _, tmpl := range op.Templates {
				path, err := renderPath(tmpl, sub)
				if err != nil {
					return nil, apperrors.NewValidationError(err.Error()).WithDetail("operation", op.Name)
				}
				candidates = append(candidates, Candidate{
					Index:        len(candidates),
					BaseURL:      base,
					Template:     tmpl,
					Path:         path,
					Substitution: sub,
				})
			}
		}
	}
	return candidates, nil
}

func renderPath(tmpl string, sub Substitution) (string, error) {
	if !strings.HasPrefix(tmpl, "/") {
		return "", fmt.Errorf("path template %q must start with /", tmpl)
	}
	var missing []string
	path := placeholderPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := sub[name]
		if !ok || v == "" {
			missing = append(missing, name)
			return m
		}
		return url.PathEscape(v)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("unresolved placeholder(s) %s in template %q", strings.Join(missing, ", "), tmpl)
	}
	if strings.ContainsAny(path, "{}") {
		return "", fmt.Errorf("malformed placeholder in template %q", tmpl)
	}
	return path, nil
}
