package rdb

import "time"

// DeploymentRecord is the RDB persistence model for domain Deployment.
// Table name: deployments
type DeploymentRecord struct {
	ID           string    `gorm:"primaryKey;type:text;not null"`
	UserID       string    `gorm:"type:text;not null;index"`
	AppName      string    `gorm:"type:text;not null;index"`
	Image        string    `gorm:"type:text;not null"`
	Port         int32     `gorm:"not null"`
	EnvVars      string    `gorm:"type:text"` // JSON encoded map[string]string
	Replicas     int32     `gorm:"not null"`
	LastReplicas int32     `gorm:"not null"`
	Resources    string    `gorm:"type:text"` // JSON encoded ResourceRequirements
	HealthCheck  string    `gorm:"type:text"` // JSON encoded HealthCheck
	Status       string    `gorm:"type:text;not null"`
	URL          string    `gorm:"type:text"`
	ErrorMsg     string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (DeploymentRecord) TableName() string { return "deployments" }

// DomainRecord persistence model
type DomainRecord struct {
	ID           string    `gorm:"primaryKey;type:text;not null"`
	DeploymentID string    `gorm:"type:text;not null;index"` // references Deployment
	UserID       string    `gorm:"type:text;not null"`
	Domain       string    `gorm:"type:text;not null;uniqueIndex"`
	Status       string    `gorm:"type:text;not null"`
	SSLEnabled   bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (DomainRecord) TableName() string { return "domains" }

// CertificateRecord persistence model
type CertificateRecord struct {
	ID        string    `gorm:"primaryKey;type:text;not null"`
	DomainID  string    `gorm:"type:text;not null"` // references Domain
	Domain    string    `gorm:"type:text;not null;index"`
	Issuer    string    `gorm:"type:text"`
	CertPEM   string    `gorm:"type:text;not null"`
	KeyPEM    string    `gorm:"type:text;not null"`
	AutoRenew bool      `gorm:"not null"`
	IssuedAt  time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
}

func (CertificateRecord) TableName() string { return "certificates" }

// WebhookRecord persistence model
type WebhookRecord struct {
	ID        string    `gorm:"primaryKey;type:text;not null"`
	UserID    string    `gorm:"type:text;not null;index"`
	URL       string    `gorm:"type:text;not null"`
	Secret    string    `gorm:"type:text"`
	Events    string    `gorm:"type:text"` // JSON encoded []string
	Active    bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (WebhookRecord) TableName() string { return "webhooks" }
