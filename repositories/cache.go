package repositories

import (
	"context"
	"sync"

	"poll-chat/domain"
	"poll-chat/observability"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedRepository memoizes reads of the log per cursor. Pollers sitting on the
// same cursor are served from memory until the next successful Append purges
// the cache. Returned slices are shared and must not be modified.
type CachedRepository struct {
	next  IMessageRepository
	pages *lru.Cache[domain.Cursor, []domain.Message]

	mu         sync.Mutex
	generation uint64
	head       *domain.Head
}

func NewCachedRepository(next IMessageRepository, size int) (*CachedRepository, error) {
	pages, err := lru.New[domain.Cursor, []domain.Message](size)
	if err != nil {
		return nil, err
	}
	return &CachedRepository{next: next, pages: pages}, nil
}

func (c *CachedRepository) Append(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error) {
	message, err := c.next.Append(ctx, cmd)
	if err != nil {
		return domain.Message{}, err
	}
	c.mu.Lock()
	c.generation++
	c.head = nil
	c.pages.Purge()
	c.mu.Unlock()
	return message, nil
}

func (c *CachedRepository) ListAll(ctx context.Context) ([]domain.Message, error) {
	return c.ListAfter(ctx, 0)
}

func (c *CachedRepository) ListAfter(ctx context.Context, cursor domain.Cursor) ([]domain.Message, error) {
	c.mu.Lock()
	page, ok := c.pages.Get(cursor)
	generation := c.generation
	c.mu.Unlock()
	if ok {
		observability.CacheRequests.WithLabelValues("hit").Inc()
		return page, nil
	}
	observability.CacheRequests.WithLabelValues("miss").Inc()

	page, err := c.next.ListAfter(ctx, cursor)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	// an Append that completed meanwhile makes this read stale
	if generation == c.generation {
		c.pages.Add(cursor, page)
	}
	c.mu.Unlock()
	return page, nil
}

func (c *CachedRepository) Head(ctx context.Context) (domain.Head, error) {
	c.mu.Lock()
	cached := c.head
	generation := c.generation
	c.mu.Unlock()
	if cached != nil {
		return *cached, nil
	}

	head, err := c.next.Head(ctx)
	if err != nil {
		return domain.Head{}, err
	}
	c.mu.Lock()
	if generation == c.generation {
		c.head = &head
	}
	c.mu.Unlock()
	return head, nil
}

func (c *CachedRepository) Close() error {
	return c.next.Close()
}
