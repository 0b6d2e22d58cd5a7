// Package dedup collapses identical concurrent reads into one in-flight call.
//
// A Coordinator is process-local and never persisted. Entries live only while
// the call is in flight: once it settles, success or failure, the key is
// forgotten and the next caller fetches again. Writes must not go through it.
package dedup

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"
)

type Coordinator struct {
	group singleflight.Group
}

func New() *Coordinator {
	return &Coordinator{}
}

// Do runs fn once per key among concurrent callers. shared reports whether the
// result was handed to more than one caller. A caller whose ctx ends stops
// waiting, but the in-flight call keeps running for the others.
func (c *Coordinator) Do(ctx context.Context, key string, fn func() (any, error)) (v any, shared bool, err error) {
	ch := c.group.DoChan(key, fn)
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	}
}

// CanonicalKey builds "endpoint?k=v&..." with parameters sorted so logically
// identical requests share a key regardless of argument order.
func CanonicalKey(endpoint string, params map[string]string) string {
	if len(params) == 0 {
		return endpoint
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(endpoint)
	b.WriteByte('?')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}
