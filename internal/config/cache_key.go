package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// DraftAnswersKey returns the hash key holding a session's buffered answers,
// one field per question ID.
func (r *CacheKeyStruct) DraftAnswersKey(studentID, sessionID int64) string {
	return fmt.Sprintf("student:%d:session:%d:answers", studentID, sessionID)
}

// DraftPersistedKey returns the hash key recording what the server already
// holds, one field per question ID.
func (r *CacheKeyStruct) DraftPersistedKey(studentID, sessionID int64) string {
	return fmt.Sprintf("student:%d:session:%d:persisted", studentID, sessionID)
}

// DraftMetaKey returns the hash key for the draft's position and exam fingerprint.
func (r *CacheKeyStruct) DraftMetaKey(studentID, sessionID int64) string {
	return fmt.Sprintf("student:%d:session:%d:meta", studentID, sessionID)
}

var CacheKey = NewCacheKeyStruct()
