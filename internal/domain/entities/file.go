package entities

import (
	"time"
)

// StoredFile represents a received file living in the store directory
type StoredFile struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}
