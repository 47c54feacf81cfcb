/*
Package social maintains the friendship graph between identities.

Each identity that ever claimed a name gets a profile holding its friends, the
pending requests addressed to it, and its avatar. Friendship edges are always written
in both directions under one lock, so a reader never sees a one-sided edge.
*/
package social

import (
	"errors"
	"sort"
	"sync"
)

var (
	// ErrUnknownIdentity means the target never claimed a name.
	ErrUnknownIdentity = errors.New("social: unknown identity")

	// ErrSelfRequest means an identity addressed a request to itself.
	ErrSelfRequest = errors.New("social: cannot befriend yourself")

	// ErrAlreadyFriends means the pair is already connected.
	ErrAlreadyFriends = errors.New("social: already friends")
)

type set map[string]struct{}

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type profile struct {
	friends set

	// pending holds requesters waiting for this identity's answer.
	pending set

	avatar string
}

// Graph is the process-wide relationship store.
type Graph struct {
	mu       sync.RWMutex
	profiles map[string]*profile
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{profiles: make(map[string]*profile)}
}

// Ensure creates an empty profile for name if none exists. It reports whether one was created.
func (g *Graph) Ensure(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.profiles[name]; ok {
		return false
	}
	g.profiles[name] = &profile{friends: set{}, pending: set{}}
	return true
}

// Known reports whether name has ever been claimed.
func (g *Graph) Known(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.profiles[name]
	return ok
}

// Request files a pending request from -> to. The returned bool is true only when
// a new pending entry was created; repeating a pending request is a no-op.
func (g *Graph) Request(from, to string) (bool, error) {
	if from == to {
		return false, ErrSelfRequest
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	target, ok := g.profiles[to]
	if !ok {
		return false, ErrUnknownIdentity
	}
	if _, ok := g.profiles[from]; !ok {
		return false, ErrUnknownIdentity
	}
	if _, ok := target.friends[from]; ok {
		return false, ErrAlreadyFriends
	}
	if _, ok := target.pending[from]; ok {
		return false, nil
	}

	target.pending[from] = struct{}{}
	return true, nil
}

// Respond resolves the request from -> to. It reports whether a friendship was created.
// Answering a request that does not exist changes nothing, so an identity cannot
// force a friendship nobody asked for.
func (g *Graph) Respond(to, from string, accept bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	target, ok := g.profiles[to]
	if !ok {
		return false
	}
	if _, ok := target.pending[from]; !ok {
		return false
	}
	delete(target.pending, from)

	if !accept {
		return false
	}

	requester, ok := g.profiles[from]
	if !ok {
		return false
	}
	if _, ok := target.friends[from]; ok {
		return false
	}

	target.friends[from] = struct{}{}
	requester.friends[to] = struct{}{}

	// a crossed request in the other direction is settled by this acceptance
	delete(requester.pending, to)

	return true
}

// AreFriends reports whether a and b share a friendship edge.
func (g *Graph) AreFriends(a, b string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	p, ok := g.profiles[a]
	if !ok {
		return false
	}
	_, ok = p.friends[b]
	return ok
}

// Friends returns name's friends, sorted.
func (g *Graph) Friends(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	p, ok := g.profiles[name]
	if !ok {
		return []string{}
	}
	return p.friends.sorted()
}

// Pending returns the requesters waiting on name, sorted.
func (g *Graph) Pending(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	p, ok := g.profiles[name]
	if !ok {
		return []string{}
	}
	return p.pending.sorted()
}

// SetAvatar stores the avatar for a known identity.
func (g *Graph) SetAvatar(name, avatar string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.profiles[name]
	if !ok {
		return false
	}
	p.avatar = avatar
	return true
}

// Avatar returns the stored avatar of name, or "".
func (g *Graph) Avatar(name string) string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if p, ok := g.profiles[name]; ok {
		return p.avatar
	}
	return ""
}

// Size returns the number of known identities.
func (g *Graph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.profiles)
}
