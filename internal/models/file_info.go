package models

import "time"

// FileInfo represents metadata about an uploaded capture file.
type FileInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
	Status     string    `json:"status"` // "uploaded", "valid", "invalid"
}

// CaptureSummary describes the trend logs contained in a capture file.
type CaptureSummary struct {
	File       *FileInfo          `json:"file"`
	Device     string             `json:"device,omitempty"`
	CapturedAt time.Time          `json:"capturedAt,omitempty"`
	TrendLogs  []ObjectIdentifier `json:"trendLogs"`
}
