package resolver

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/switchboard-xyz/sbv2-solana-sub000/common/cache/lru"
	"github.com/switchboard-xyz/sbv2-solana-sub000/common/errors"
	"github.com/switchboard-xyz/sbv2-solana-sub000/common/logging"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
)

// DiscriminatorSize is the size of an account discriminator.
const DiscriminatorSize = 8

// Discriminator is the account type prefix of a program account.
type Discriminator [DiscriminatorSize]byte

var (
	_ api.Classifier = (*StaticClassifier)(nil)
	_ api.Classifier = (*AccountClassifier)(nil)
)

// StaticClassifier classifies every row as the same kind.
type StaticClassifier struct {
	Kind api.Kind
}

// Classify implements api.Classifier.
func (c *StaticClassifier) Classify(_ context.Context, ids []api.Reference) ([]api.Kind, error) {
	if !c.Kind.IsValid() {
		return nil, errors.WithContext(api.ErrUnknownKind, c.Kind.String())
	}
	kinds := make([]api.Kind, len(ids))
	for i := range kinds {
		kinds[i] = c.Kind
	}
	return kinds, nil
}

// AccountClassifier classifies rows by fetching the referenced account and
// matching its discriminator.
type AccountClassifier struct {
	logger *logging.Logger

	fetcher        api.AccountFetcher
	discriminators map[Discriminator]api.Kind
	fallback       api.Kind
	concurrency    int

	cache *lru.Cache[api.Reference, api.Kind]
}

// Classify implements api.Classifier.
//
// Accounts that no longer exist are classified as the fallback kind so that
// the program can evict them.
func (c *AccountClassifier) Classify(ctx context.Context, ids []api.Reference) ([]api.Kind, error) {
	kinds := make([]api.Kind, len(ids))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, id := range ids {
		if kind, ok := c.cache.Get(id); ok {
			kinds[i] = kind
			continue
		}

		i, id := i, id
		g.Go(func() error {
			kind, err := c.classify(gCtx, id)
			if err != nil {
				return err
			}
			kinds[i] = kind
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return kinds, nil
}

func (c *AccountClassifier) classify(ctx context.Context, id api.Reference) (api.Kind, error) {
	data, err := c.fetcher.FetchAccount(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, api.ErrNotFound):
		c.logger.Warn("account not found, using fallback kind",
			"id", id,
			"kind", c.fallback,
		)
		return c.fallback, nil
	default:
		return 0, fmt.Errorf("crank/resolver: failed to fetch %s: %w", id, err)
	}

	if len(data) < DiscriminatorSize {
		return 0, errors.WithContext(api.ErrUnknownKind, fmt.Sprintf("%s: account too short", id))
	}
	var disc Discriminator
	copy(disc[:], data)

	kind, ok := c.discriminators[disc]
	if !ok {
		return 0, errors.WithContext(api.ErrUnknownKind, fmt.Sprintf("%s: discriminator %x", id, disc[:]))
	}
	c.cache.Put(id, kind)

	return kind, nil
}

// NewAccountClassifier creates a new account classifier.
func NewAccountClassifier(
	fetcher api.AccountFetcher,
	discriminators map[Discriminator]api.Kind,
	fallback api.Kind,
	concurrency int,
	cacheSize int,
) (*AccountClassifier, error) {
	if !fallback.IsValid() {
		return nil, errors.WithContext(api.ErrUnknownKind, fallback.String())
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[api.Reference, api.Kind](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("crank/resolver: failed to create cache: %w", err)
	}

	return &AccountClassifier{
		logger:         logging.GetLogger("crank/resolver/classifier"),
		fetcher:        fetcher,
		discriminators: discriminators,
		fallback:       fallback,
		concurrency:    concurrency,
		cache:          cache,
	}, nil
}
