package workflow

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"thoreinstein.com/prc/pkg/config"
	"thoreinstein.com/prc/pkg/github"
	"thoreinstein.com/prc/pkg/identity"
	"thoreinstein.com/prc/pkg/ui"
)

// newResolver builds a handle resolver seeded from github.user_map. A nil
// asker makes resolution non-interactive.
func newResolver(cfg *config.Config, gh github.Client, store identity.Store, asker identity.Asker, console *ui.Console, logger *zap.Logger) *identity.Resolver {
	seeds := make(map[string]string, len(cfg.GitHub.UserMap))
	for _, m := range cfg.GitHub.UserMap {
		seeds[m.Email] = m.Handle
	}

	opts := []identity.Option{
		identity.WithSeeds(seeds),
		identity.WithSearcher(gh),
		identity.WithNotifier(console),
		identity.WithLogger(logger),
	}
	if asker != nil {
		opts = append(opts, identity.WithAsker(asker))
	}
	return identity.NewResolver(store, opts...)
}

// resolveHandles maps reviewer identities to handles in order. Unresolved
// identities are skipped with a warning and duplicates are dropped.
func resolveHandles(ctx context.Context, r *identity.Resolver, console *ui.Console, identities []string) ([]string, error) {
	seen := make(map[string]bool)
	var handles []string
	for _, id := range identities {
		h, err := r.Resolve(ctx, id)
		if err != nil {
			return nil, err
		}
		if h == "" {
			console.Warnf("Warning: Could not resolve GitHub handle for '%s'. Skipping.", id)
			continue
		}
		if key := strings.ToLower(h); !seen[key] {
			seen[key] = true
			handles = append(handles, h)
		}
	}
	return handles, nil
}
