package registry

import (
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultMemoSize = 32
	defaultMemoTTL  = time.Hour
)

// memo keeps successful search results for the exact term and page size.
// A nil memo is valid and never hits.
type memo struct {
	lru *expirable.LRU[string, []*Study]
}

func newMemo(size int, ttl time.Duration) *memo {
	if size <= 0 {
		size = defaultMemoSize
	}
	if ttl <= 0 {
		ttl = defaultMemoTTL
	}

	return &memo{lru: expirable.NewLRU[string, []*Study](size, nil, ttl)}
}

func (m *memo) get(key string) ([]*Study, bool) {
	if m == nil {
		return nil, false
	}

	return m.lru.Get(key)
}

func (m *memo) add(key string, studies []*Study) {
	if m == nil {
		return
	}

	m.lru.Add(key, studies)
}

func (m *memo) len() int {
	if m == nil {
		return 0
	}

	return m.lru.Len()
}

func cacheKey(params *SearchParams) string {
	return params.Term + "\x00" + strconv.Itoa(params.PageSize)
}
