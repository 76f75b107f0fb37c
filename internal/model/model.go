package model

import "time"

type User struct {
	ID            string
	Username      string
	Email         string
	PasswordHash  string
	APIEnabled    bool
	BackupEnabled bool
	CreatedAt     time.Time
}

type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type Category struct {
	ID          string
	UserID      string
	Name        string
	Description string
	Color       string
	CreatedAt   time.Time
}

type Album struct {
	ID          string
	UserID      string
	CategoryID  *string
	Name        string
	Description string
	CreatedAt   time.Time

	// Filled by listing queries only.
	PhotoCount    int
	CategoryName  string
	CategoryColor string
}

type Photo struct {
	ID           string
	UserID       string
	AlbumID      string
	Filename     string // storage name, never the client-supplied name
	OriginalName string
	FileSize     int64
	Width        *int
	Height       *int
	UploadedAt   time.Time
	EditedAt     *time.Time
	BackupPath   *string
}

type ShareMode string

const (
	SharePublic  ShareMode = "public"
	SharePrivate ShareMode = "private"
)

type ShareLink struct {
	ID         string
	PhotoID    string
	SharedBy   string
	SharedWith *string
	Token      string
	Mode       ShareMode
	ExpiresAt  *time.Time
	CreatedAt  time.Time

	// Filled by listing queries only. Empty when the target does not resolve.
	SharedWithName string
	PhotoName      string
}

type APIToken struct {
	ID          string
	UserID      string
	Name        string
	Prefix      string
	Hash        string
	Permissions Permissions
	ExpiresAt   *time.Time
	LastUsedAt  *time.Time
	CreatedAt   time.Time
}

type BackupType string

const (
	BackupManual    BackupType = "manual"
	BackupAutomatic BackupType = "automatic"
)

type BackupStatus string

const (
	BackupPending   BackupStatus = "pending"
	BackupCompleted BackupStatus = "completed"
	BackupFailed    BackupStatus = "failed"
)

type Backup struct {
	ID           string
	UserID       string
	Type         BackupType
	FilePath     string
	Status       BackupStatus
	FileSize     int64
	PhotosCount  int
	ErrorMessage string
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

type Job struct {
	ID           string
	JobType      string
	SubjectID    string
	UserID       string
	State        string
	ErrorMessage string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}
