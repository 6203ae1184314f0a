package identity

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Searcher finds a GitHub login by public email.
type Searcher interface {
	SearchUserByEmail(ctx context.Context, email string) (string, error)
}

// Asker asks the user for a single line of input.
type Asker interface {
	Line(ctx context.Context, prompt, def string) (string, error)
}

// Notifier receives non-fatal warnings.
type Notifier interface {
	Warnf(format string, args ...any)
}

// Parse splits an identity into an email or a handle. "Name <email>" and bare
// emails give an email; anything else is treated as a handle, with a leading
// "@" removed.
func Parse(identity string) (email, handle string) {
	identity = strings.TrimSpace(identity)
	if i := strings.LastIndex(identity, "<"); i >= 0 {
		if j := strings.Index(identity[i:], ">"); j > 0 {
			return strings.TrimSpace(identity[i+1 : i+j]), ""
		}
	}
	if strings.Contains(identity, "@") && !strings.HasPrefix(identity, "@") && !strings.ContainsAny(identity, " \t") {
		return identity, ""
	}
	return "", strings.TrimPrefix(identity, "@")
}

// Resolver turns author identities into GitHub handles. Sources are tried in
// order: configured seeds, the persisted store, the host's user search, then
// the user. Results found by search or typed by the user are persisted.
type Resolver struct {
	seeds    map[string]string
	store    Store
	searcher Searcher
	asker    Asker
	notify   Notifier
	logger   *zap.Logger
	memo     map[string]string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSeeds adds fixed email -> handle mappings.
func WithSeeds(seeds map[string]string) Option {
	return func(r *Resolver) {
		for e, h := range seeds {
			r.seeds[normalizeEmail(e)] = h
		}
	}
}

// WithSearcher enables host user search.
func WithSearcher(s Searcher) Option {
	return func(r *Resolver) { r.searcher = s }
}

// WithAsker enables asking the user when nothing else resolves.
func WithAsker(a Asker) Option {
	return func(r *Resolver) { r.asker = a }
}

// WithNotifier sets where warnings go.
func WithNotifier(n Notifier) Option {
	return func(r *Resolver) { r.notify = n }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a Resolver persisting into store. A nil store keeps
// results for this run only.
func NewResolver(store Store, opts ...Option) *Resolver {
	if store == nil {
		store = MemoryStore{}
	}
	r := &Resolver{
		seeds:  make(map[string]string),
		store:  store,
		logger: zap.NewNop(),
		memo:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the GitHub handle for identity, or "" when it could not be
// determined. Errors are returned only for cancellation.
func (r *Resolver) Resolve(ctx context.Context, identity string) (string, error) {
	email, handle := Parse(identity)
	if email == "" {
		return handle, nil
	}

	key := normalizeEmail(email)
	if h, ok := r.memo[key]; ok {
		return h, nil
	}

	h, err := r.lookup(ctx, email)
	if err != nil {
		return "", err
	}
	r.memo[key] = h
	return h, nil
}

func (r *Resolver) lookup(ctx context.Context, email string) (string, error) {
	if h, ok := r.seeds[normalizeEmail(email)]; ok {
		return h, nil
	}
	if h, ok := r.store.Lookup(email); ok {
		return h, nil
	}

	if r.searcher != nil {
		login, err := r.searcher.SearchUserByEmail(ctx, email)
		switch {
		case ctx.Err() != nil:
			return "", ctx.Err()
		case err != nil:
			r.logger.Warn("user search failed", zap.String("email", email), zap.Error(err))
		case login != "":
			r.persist(email, login)
			return login, nil
		}
	}

	if r.asker == nil {
		return "", nil
	}
	login, err := r.asker.Line(ctx, "GitHub handle for "+email+" (empty to skip)", "")
	if err != nil {
		return "", err
	}
	login = strings.TrimPrefix(strings.TrimSpace(login), "@")
	if login != "" {
		r.persist(email, login)
	}
	return login, nil
}

func (r *Resolver) persist(email, handle string) {
	if err := r.store.Save(email, handle); err != nil {
		r.logger.Warn("failed to persist handle", zap.String("email", email), zap.Error(err))
		if r.notify != nil {
			r.notify.Warnf("Could not save handle for %s: %v", email, err)
		}
	}
}
