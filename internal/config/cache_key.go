package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CandidateSessionKey returns the cache key holding a candidate's active login JTI.
func (r *CacheKeyStruct) CandidateSessionKey(candidateID string) string {
	return fmt.Sprintf("login:candidate:%s", candidateID)
}

// AttemptProgressKey returns the cache key for an attempt's autosaved progress snapshot.
func (r *CacheKeyStruct) AttemptProgressKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:progress", attemptID)
}

// AttemptPaperKey returns the cache key for an attempt's candidate-facing question paper.
func (r *CacheKeyStruct) AttemptPaperKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:paper", attemptID)
}

// PositionMonitorChannel returns the Redis PubSub channel for live monitoring of a position.
func (r *CacheKeyStruct) PositionMonitorChannel(positionID string) string {
	return fmt.Sprintf("position:%s:monitor", positionID)
}

var CacheKey = NewCacheKeyStruct()
