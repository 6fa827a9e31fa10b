package navigation

import "sync"

type treeKey struct {
	userID  string
	storyID string
}

// Store keeps one navigation tree per user per story. Navigation is
// personal state: two collaborators on the same story can be looking at
// different canvases.
type Store struct {
	mu    sync.Mutex
	trees map[treeKey]*Tree
}

// NewStore creates an empty navigation store
func NewStore() *Store {
	return &Store{trees: make(map[treeKey]*Tree)}
}

// TreeFor returns the tree for a user and story, creating it at the
// root canvas on first access
func (s *Store) TreeFor(userID, storyID string) *Tree {
	key := treeKey{userID: userID, storyID: storyID}
	s.mu.Lock()
	defer s.mu.Unlock()
	tree, ok := s.trees[key]
	if !ok {
		tree = NewTree()
		s.trees[key] = tree
	}
	return tree
}
