package keepers

import (
	"strings"

	"webtlo/internal/registry"
)

// pairSet accumulates scanned pairs in first-seen order, dropping repeats.
type pairSet struct {
	seen  map[registry.KeeperPair]struct{}
	order []registry.KeeperPair
}

func newPairSet() *pairSet {
	return &pairSet{seen: make(map[registry.KeeperPair]struct{})}
}

func (s *pairSet) addAll(pairs []registry.KeeperPair) {
	for _, p := range pairs {
		p.Nick = strings.TrimSpace(p.Nick)
		if p.TopicID <= 0 || p.Nick == "" {
			continue
		}
		if _, dup := s.seen[p]; dup {
			continue
		}
		s.seen[p] = struct{}{}
		s.order = append(s.order, p)
	}
}

func (s *pairSet) len() int { return len(s.order) }

func (s *pairSet) pairs() []registry.KeeperPair {
	return append([]registry.KeeperPair(nil), s.order...)
}

func (s *pairSet) topicIDs() []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, p := range s.order {
		if _, ok := seen[p.TopicID]; ok {
			continue
		}
		seen[p.TopicID] = struct{}{}
		ids = append(ids, p.TopicID)
	}
	return ids
}
