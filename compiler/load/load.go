// Package load resolves the transitive closure of ontology types reachable
// from a set of root type URLs.
package load

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syssam/typegen"
	"github.com/syssam/typegen/typesystem"
)

// Fetcher retrieves a type document. A nil document with a nil error means
// the document could not be retrieved and should be skipped.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (map[string]any, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) (map[string]any, error)

// Fetch calls fn(ctx, url).
func (fn FetcherFunc) Fetch(ctx context.Context, url string) (map[string]any, error) {
	return fn(ctx, url)
}

// Collation is the closed set of types reachable from the roots.
type Collation struct {
	// AllTypes holds every classified type keyed by the URL it was reached by.
	AllTypes map[typesystem.VersionedURL]*typesystem.Type
	// Order lists AllTypes keys in the order they were resolved.
	Order []typesystem.VersionedURL
	// Dependencies maps a type to the types it references, in encounter order.
	Dependencies map[typesystem.VersionedURL][]typesystem.VersionedURL
	// Skipped lists URLs that were reached but produced no classified type.
	Skipped []typesystem.VersionedURL
}

// OfKind returns the collated types of kind k.
func (c *Collation) OfKind(k typesystem.Kind) map[typesystem.VersionedURL]*typesystem.Type {
	out := make(map[typesystem.VersionedURL]*typesystem.Type)
	for id, t := range c.AllTypes {
		if t.Kind == k {
			out[id] = t
		}
	}
	return out
}

type options struct {
	strict bool
	logger *slog.Logger
}

// Option configures Collate.
type Option func(*options)

// Strict makes unretrievable or unclassifiable documents an error instead of
// skipping them.
func Strict() Option {
	return func(o *options) { o.strict = true }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Collate fetches every root and, transitively, every type they reference.
// Documents are fetched one at a time in first-encountered order.
func Collate(ctx context.Context, f Fetcher, roots []typesystem.VersionedURL, opts ...Option) (*Collation, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Collation{
		AllTypes:     make(map[typesystem.VersionedURL]*typesystem.Type),
		Dependencies: make(map[typesystem.VersionedURL][]typesystem.VersionedURL),
	}
	var (
		queue []typesystem.VersionedURL
		seen  = make(map[typesystem.VersionedURL]struct{})
	)
	enqueue := func(u typesystem.VersionedURL) {
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		queue = append(queue, u)
	}
	for _, r := range roots {
		if _, err := typesystem.ParseVersionedURL(string(r)); err != nil {
			return nil, err
		}
		o.logger.Debug("load: adding root to explore queue", "type", r)
		enqueue(r)
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		t, err := resolve(ctx, f, id)
		if err != nil {
			if typegen.IsClassificationError(err) && !o.strict {
				o.logger.Warn("load: skipping unclassified document", "type", id, "error", err)
				c.Skipped = append(c.Skipped, id)
				continue
			}
			return nil, err
		}
		if t == nil {
			if o.strict {
				return nil, typegen.NewFetchError(string(id), 0, 0, fmt.Errorf("no document returned"))
			}
			o.logger.Warn("load: skipping unretrievable type", "type", id)
			c.Skipped = append(c.Skipped, id)
			continue
		}

		c.AllTypes[id] = t
		c.Order = append(c.Order, id)
		for _, ref := range typesystem.References(t) {
			if _, ok := seen[ref.URL]; !ok {
				o.logger.Debug("load: encountered dependency", "type", ref.URL, "source", id, "kind", ref.Kind)
			}
			enqueue(ref.URL)
			c.addDependency(id, ref.URL)
		}
	}
	return c, nil
}

func resolve(ctx context.Context, f Fetcher, id typesystem.VersionedURL) (*typesystem.Type, error) {
	doc, ok := typesystem.Builtin(id)
	if !ok {
		var err error
		if doc, err = f.Fetch(ctx, string(id)); err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, nil
		}
	}
	t, err := typesystem.Classify(string(id), doc)
	if err != nil {
		return nil, err
	}
	t.ID = id
	return t, nil
}

func (c *Collation) addDependency(src, dep typesystem.VersionedURL) {
	for _, d := range c.Dependencies[src] {
		if d == dep {
			return
		}
	}
	c.Dependencies[src] = append(c.Dependencies[src], dep)
}
