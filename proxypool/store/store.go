// Package store 保存每个候选最近一次成功探测的记录，是查询 API 的唯一数据源。
package store

import (
	"errors"
	"math/rand/v2"
	"sort"
	"sync"

	"liuproxy_pool/proxypool/model"
)

// ErrEmpty is returned by Random when no proxy is currently known good.
var ErrEmpty = errors.New("no proxies available")

// Store 是 candidate -> ProxyRecord 的并发安全映射。
// 键存在当且仅当该候选最近一次探测成功。
type Store struct {
	mu      sync.RWMutex
	records map[string]model.ProxyRecord
}

func New() *Store {
	return &Store{records: make(map[string]model.ProxyRecord)}
}

// Set 写入或覆盖记录，返回该键此前是否已存在。
func (s *Store) Set(candidate string, record model.ProxyRecord) (existed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed = s.records[candidate]
	s.records[candidate] = record
	return existed
}

// Delete removes candidate and reports whether it was present.
func (s *Store) Delete(candidate string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[candidate]; !ok {
		return false
	}
	delete(s.records, candidate)
	return true
}

func (s *Store) Get(candidate string) (model.ProxyRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[candidate]
	return r, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Keys returns a sorted snapshot of every known-good candidate.
func (s *Store) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Records 返回所有记录的快照，按延迟升序排列。
func (s *Store) Records() []model.ProxyRecord {
	s.mu.RLock()
	out := make([]model.ProxyRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].LatencyMs != out[j].LatencyMs {
			return out[i].LatencyMs < out[j].LatencyMs
		}
		return out[i].Candidate() < out[j].Candidate()
	})
	return out
}

// Random picks one record uniformly at random.
func (s *Store) Random() (model.ProxyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return model.ProxyRecord{}, ErrEmpty
	}
	n := rand.IntN(len(s.records))
	for _, r := range s.records {
		if n == 0 {
			return r, nil
		}
		n--
	}
	// unreachable while the read lock is held
	return model.ProxyRecord{}, ErrEmpty
}
