package leaderboard

import (
	"math/rand/v2"
	"sync"

	"learnkit/core"
)

// SkipList keeps entries ordered by points descending, user ascending, so
// equal totals still rank deterministically. Inserts and removals are
// expected O(log n); a user index gives O(1) point lookups.
type SkipList struct {
	mu     sync.RWMutex
	head   *node
	height int
	index  map[core.UserID]*node
	rng    *rand.Rand
}

const (
	maxHeight = 16
	// chance of promoting a node one level up
	promote = 0.25
)

type node struct {
	entry Entry
	next  []*node
}

func NewSkipList() *SkipList {
	return &SkipList{
		head:   &node{next: make([]*node, maxHeight)},
		height: 1,
		index:  map[core.UserID]*node{},
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// before reports whether a sorts ahead of b.
func before(a, b Entry) bool {
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	return a.User < b.User
}

// predecessors returns, per level, the last node sorting ahead of e.
func (s *SkipList) predecessors(e Entry) []*node {
	prev := make([]*node, maxHeight)
	cur := s.head
	for lvl := s.height - 1; lvl >= 0; lvl-- {
		for cur.next[lvl] != nil && before(cur.next[lvl].entry, e) {
			cur = cur.next[lvl]
		}
		prev[lvl] = cur
	}
	return prev
}

func (s *SkipList) rollHeight() int {
	h := 1
	for h < maxHeight && s.rng.Float64() < promote {
		h++
	}
	return h
}

// Update inserts the user or moves them to a new point total.
func (s *SkipList) Update(user core.UserID, points int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.index[user]; ok {
		s.unlink(n)
	}

	e := Entry{User: user, Points: points}
	prev := s.predecessors(e)
	h := s.rollHeight()
	if h > s.height {
		for lvl := s.height; lvl < h; lvl++ {
			prev[lvl] = s.head
		}
		s.height = h
	}

	n := &node{entry: e, next: make([]*node, h)}
	for lvl := range n.next {
		n.next[lvl] = prev[lvl].next[lvl]
		prev[lvl].next[lvl] = n
	}
	s.index[user] = n
}

// Remove drops the user from the board; unknown users are a no-op.
func (s *SkipList) Remove(user core.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.index[user]; ok {
		s.unlink(n)
	}
}

func (s *SkipList) unlink(n *node) {
	prev := s.predecessors(n.entry)
	if prev[0].next[0] != n {
		return
	}
	for lvl := range n.next {
		if prev[lvl].next[lvl] == n {
			prev[lvl].next[lvl] = n.next[lvl]
		}
	}
	delete(s.index, n.entry.User)
	for s.height > 1 && s.head.next[s.height-1] == nil {
		s.height--
	}
}

// TopN returns the best n entries in rank order.
func (s *SkipList) TopN(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	out := make([]Entry, 0, n)
	for cur := s.head.next[0]; cur != nil && len(out) < n; cur = cur.next[0] {
		out = append(out, cur.entry)
	}
	return out
}

// Get returns the user's current entry.
func (s *SkipList) Get(user core.UserID) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.index[user]; ok {
		return n.entry, true
	}
	return Entry{}, false
}

// Rank returns the user's 1-based position, walking the base level.
func (s *SkipList) Rank(user core.UserID) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	target, ok := s.index[user]
	if !ok {
		return 0, false
	}
	rank := 1
	for cur := s.head.next[0]; cur != nil; cur = cur.next[0] {
		if cur == target {
			return rank, true
		}
		rank++
	}
	return 0, false
}

var _ Board = (*SkipList)(nil)
