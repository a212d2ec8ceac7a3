package utils

import "github.com/google/uuid"

// NewID 返回按时间有序的 UUIDv7
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
