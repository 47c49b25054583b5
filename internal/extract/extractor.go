// Package extract turns raw posts into structured drop events.
package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/restockwatch/dropstats/internal/models"
)

// UnknownName is the sentinel display name used when no delimiter phrase
// matches the post text. It does not invalidate the event.
const UnknownName = "unknown"

// Disposition classifies the outcome of extracting one post.
type Disposition int

const (
	// Accepted means the post produced exactly one drop event.
	Accepted Disposition = iota
	// Skipped means the post does not qualify or could not be processed; it
	// is ignored and never counts toward quality thresholds.
	Skipped
	// Invalid means the post violated a one-per-post structural assumption
	// and counts toward the bad-post threshold.
	Invalid
)

func (d Disposition) String() string {
	switch d {
	case Accepted:
		return "accepted"
	case Skipped:
		return "skipped"
	case Invalid:
		return "invalid"
	default:
		return fmt.Sprintf("disposition(%d)", int(d))
	}
}

// Resolver resolves a shortened URL to its final destination URL.
type Resolver interface {
	Resolve(ctx context.Context, shortURL string) (string, error)
}

// Config carries the recognition rules for one extractor. Passing these in
// explicitly (rather than reading package-level constants) lets tests run
// with alternate category sets.
type Config struct {
	Categories      []string
	LinkPrefix      string
	RetailHost      string
	ProductIDLength int
	ProductIDPrefix string
	NameDelimiters  []string
}

// Extractor parses posts into drop events using fixed recognition rules.
type Extractor struct {
	cfg      Config
	resolver Resolver
}

// New returns an extractor using the given rules and link resolver.
func New(cfg Config, resolver Resolver) *Extractor {
	return &Extractor{cfg: cfg, resolver: resolver}
}

// Extract classifies one post. For Accepted it returns the single drop event;
// for Skipped and Invalid the event is zero and the reason describes why.
//
// Transport failures from the resolver skip the post rather than aborting the
// run; the caller logs every occurrence. Posts whose resolved URL yields zero
// or several product-ID-shaped tokens are likewise skipped with a diagnostic.
func (x *Extractor) Extract(ctx context.Context, post models.Post) (models.DropEvent, Disposition, string) {
	tokens := strings.Fields(post.Text)

	links := x.collectLinks(tokens)
	if len(links) > 1 {
		return models.DropEvent{}, Invalid, fmt.Sprintf("%d shortened links in one post", len(links))
	}
	if len(links) == 0 {
		return models.DropEvent{}, Skipped, "no shortened link"
	}

	categories := x.collectCategories(tokens)
	if len(categories) > 1 {
		return models.DropEvent{}, Invalid, fmt.Sprintf("%d distinct category tags in one post", len(categories))
	}
	if len(categories) == 0 {
		return models.DropEvent{}, Skipped, "no recognized category tag"
	}

	finalURL, err := x.resolver.Resolve(ctx, links[0])
	if err != nil {
		return models.DropEvent{}, Skipped, fmt.Sprintf("link resolution failed: %v", err)
	}

	u, err := url.Parse(finalURL)
	if err != nil {
		return models.DropEvent{}, Skipped, fmt.Sprintf("unparseable resolved URL: %v", err)
	}
	if !hostWithinDomain(u.Hostname(), x.cfg.RetailHost) {
		return models.DropEvent{}, Skipped, fmt.Sprintf("resolved URL outside retail domain: %s", u.Hostname())
	}

	ids := x.productIDCandidates(u)
	if len(ids) == 0 {
		return models.DropEvent{}, Skipped, "no product ID token in resolved URL"
	}
	if len(ids) > 1 {
		return models.DropEvent{}, Skipped, fmt.Sprintf("%d product ID tokens in resolved URL", len(ids))
	}

	event := models.DropEvent{
		ProductID:   ids[0],
		DisplayName: x.displayName(post.Text),
		Category:    categories[0],
		ObservedAt:  post.PublishedAt.UTC().Truncate(time.Second),
	}
	return event, Accepted, ""
}

// collectLinks returns the whitespace tokens carrying the shortened-link
// prefix, in order.
func (x *Extractor) collectLinks(tokens []string) []string {
	var links []string
	for _, tok := range tokens {
		if strings.HasPrefix(tok, x.cfg.LinkPrefix) {
			links = append(links, tok)
		}
	}
	return links
}

// collectCategories returns the distinct recognized categories tagged in the
// post. Repeated tags of the same category count once.
func (x *Extractor) collectCategories(tokens []string) []string {
	var found []string
	seen := make(map[string]struct{})
	for _, tok := range tokens {
		for _, cat := range x.cfg.Categories {
			if tok != "#"+cat {
				continue
			}
			if _, ok := seen[cat]; ok {
				continue
			}
			seen[cat] = struct{}{}
			found = append(found, cat)
		}
	}
	return found
}

// productIDCandidates scans the resolved URL's path segments and query values
// for tokens of the configured length and prefix. The same value appearing in
// both path and query counts once.
func (x *Extractor) productIDCandidates(u *url.URL) []string {
	var candidates []string
	seen := make(map[string]struct{})
	add := func(tok string) {
		if len(tok) != x.cfg.ProductIDLength || !strings.HasPrefix(tok, x.cfg.ProductIDPrefix) {
			return
		}
		if _, ok := seen[tok]; ok {
			return
		}
		seen[tok] = struct{}{}
		candidates = append(candidates, tok)
	}

	for _, seg := range strings.Split(u.Path, "/") {
		add(seg)
	}
	for _, vals := range u.Query() {
		for _, v := range vals {
			add(v)
		}
	}
	return candidates
}

// displayName returns the text preceding the first occurrence of the highest-
// priority delimiter phrase present, or the sentinel when none matches.
// Delimiters are tried in configured order; the first one found anywhere in
// the text wins, even if a lower-priority delimiter occurs earlier.
func (x *Extractor) displayName(text string) string {
	for _, delim := range x.cfg.NameDelimiters {
		idx := strings.Index(text, delim)
		if idx < 0 {
			continue
		}
		name := strings.TrimSpace(text[:idx])
		if name == "" {
			return UnknownName
		}
		return name
	}
	return UnknownName
}

// hostWithinDomain reports whether host equals the retail domain or is a
// subdomain of it, case-insensitively.
func hostWithinDomain(host, domain string) bool {
	host = strings.ToLower(host)
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}
