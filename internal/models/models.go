package models

import "time"

// License is one client's activation record. LastPayment and ValidUntil are
// calendar dates stored verbatim as YYYY-MM-DD strings.
type License struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	ClientID      string    `gorm:"size:128;not null;uniqueIndex:idx_licenses_client_email,priority:1;index" json:"client_id"`
	ClientName    string    `gorm:"not null" json:"client_name"`
	Email         string    `gorm:"size:320;not null;uniqueIndex:idx_licenses_client_email,priority:2" json:"email"`
	TransactionID string    `json:"transaction_id"`
	MachineID     string    `gorm:"size:64;not null" json:"machine_id"`
	Duration      int       `gorm:"not null" json:"duration"`
	Password      string    `json:"-"`
	LastPayment   string    `gorm:"size:10;not null" json:"last_payment"`
	ValidUntil    string    `gorm:"size:10;not null" json:"valid_until"`
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type User struct {
	ID           string    `gorm:"size:36;primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Mobile       string    `json:"mobile"`
	Email        string    `gorm:"size:320;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Amount       string    `json:"amount"`
	SignupTime   string    `gorm:"size:19" json:"signup_time"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type AuditLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *string   `gorm:"size:36" json:"user_id,omitempty"`
	ClientID  string    `gorm:"size:128;index;not null" json:"client_id"`
	Action    string    `gorm:"not null" json:"action"`
	Metadata  JSONB     `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

type Session struct {
	JTI       string     `gorm:"primaryKey;size:64" json:"jti"`
	UserID    string     `gorm:"size:36;index;not null" json:"user_id"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
