package domain

import (
	"errors"
	"time"
)

// Status tracks a project through ingestion. Records are created pending,
// become stored once the archive is written and linked, and indexed once
// the archive manifest has been recorded.
type Status string

const (
	StatusPending Status = "pending"
	StatusStored  Status = "stored"
	StatusIndexed Status = "indexed"
	StatusFailed  Status = "failed"
)

type Source string

const (
	SourceGitHub Source = "github"
	SourceLocal  Source = "local"
)

var (
	ErrNotFound          = errors.New("project not found")
	ErrFileAttached      = errors.New("project already has a stored file")
	ErrInvalidTransition = errors.New("invalid project status transition")
)

// Project represents one ingested codebase.
type Project struct {
	ID           string    `json:"id" firestore:"-"`
	Name         string    `json:"name" firestore:"name"`
	Description  string    `json:"description,omitempty" firestore:"description"`
	Organization string    `json:"organization,omitempty" firestore:"organization"`
	Source       Source    `json:"source" firestore:"source"`
	SourceURL    string    `json:"sourceUrl,omitempty" firestore:"sourceUrl,omitempty"`
	Status       Status    `json:"status" firestore:"status"`
	FileURL      string    `json:"fileUrl,omitempty" firestore:"fileUrl,omitempty"`
	FilePath     string    `json:"filePath,omitempty" firestore:"filePath,omitempty"`
	SizeBytes    int64     `json:"sizeBytes,omitempty" firestore:"sizeBytes,omitempty"`
	FileCount    int       `json:"fileCount,omitempty" firestore:"fileCount,omitempty"`
	Files        []string  `json:"files,omitempty" firestore:"files,omitempty"`
	Error        string    `json:"error,omitempty" firestore:"error,omitempty"`
	CreatedAt    time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// NewProject carries the caller supplied fields of a project.
type NewProject struct {
	Name         string
	Description  string
	Organization string
	Source       Source
	SourceURL    string
}

// FileRef links a stored object to its project.
type FileRef struct {
	URL  string
	Path string
	Size int64
}

// Manifest lists archive entries. Files may be capped below FileCount.
type Manifest struct {
	FileCount int
	Files     []string
}
