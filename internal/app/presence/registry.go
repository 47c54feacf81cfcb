/*
Package presence binds live transport connections to claimed display names.

A connection is tracked from transport accept until release and owns at most one
name at a time; a name resolves to at most one live connection.
*/
package presence

import (
	"errors"
	"strings"
	"sync"
)

// ConnID is the opaque handle of a live transport session.
type ConnID string

var (
	// ErrInvalidName means the name was empty after trimming.
	ErrInvalidName = errors.New("presence: invalid name")

	// ErrNameTaken means another live connection holds the name.
	ErrNameTaken = errors.New("presence: name taken")

	// ErrUnknownConnection means the connection was never tracked or is already released.
	ErrUnknownConnection = errors.New("presence: unknown connection")
)

// Claim describes a successful name binding.
type Claim struct {
	Name string

	// Previous is the name the connection gave up, if it held a different one.
	Previous string
}

// Registry is the process-wide connection table.
type Registry struct {
	mu     sync.RWMutex
	byConn map[ConnID]string
	byName map[string]ConnID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[ConnID]string),
		byName: make(map[string]ConnID),
	}
}

// Normalize trims name and rejects the empty result.
func Normalize(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrInvalidName
	}
	return trimmed, nil
}

// Connect starts tracking an anonymous connection.
func (r *Registry) Connect(conn ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byConn[conn]; !ok {
		r.byConn[conn] = ""
	}
}

// Claim binds name to conn. On conflict or invalid input the connection keeps its
// current binding. Re-claiming the held name succeeds without change.
func (r *Registry) Claim(conn ConnID, name string) (Claim, error) {
	name, err := Normalize(name)
	if err != nil {
		return Claim{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, tracked := r.byConn[conn]
	if !tracked {
		return Claim{}, ErrUnknownConnection
	}
	if holder, ok := r.byName[name]; ok && holder != conn {
		return Claim{}, ErrNameTaken
	}

	claim := Claim{Name: name}
	if current != "" && current != name {
		delete(r.byName, current)
		claim.Previous = current
	}

	r.byConn[conn] = name
	r.byName[name] = conn
	return claim, nil
}

// Resolve returns the live connection bound to name.
func (r *Registry) Resolve(name string) (ConnID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.byName[name]
	return conn, ok
}

// NameOf returns the name bound to conn, if any.
func (r *Registry) NameOf(conn ConnID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name := r.byConn[conn]
	return name, name != ""
}

// Release stops tracking conn and frees its name. It returns the freed name.
func (r *Registry) Release(conn ConnID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, tracked := r.byConn[conn]
	if !tracked {
		return "", false
	}
	delete(r.byConn, conn)

	if name != "" && r.byName[name] == conn {
		delete(r.byName, name)
	}
	return name, name != ""
}

// Connections returns the number of tracked connections, named or not.
func (r *Registry) Connections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

// Online returns the number of bound names.
func (r *Registry) Online() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}
