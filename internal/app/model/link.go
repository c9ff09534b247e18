package model

import "time"

// Link describes a provisioned short link stored in Postgres. Links are
// immutable after creation; the only mutation the API allows is deletion.
type Link struct {
	ID             string    `db:"id" gorm:"primaryKey;size:36"`
	OriginalURL    string    `db:"original_url" gorm:"type:text;not null"`
	ShortURL       string    `db:"short_url" gorm:"type:text;not null"`
	ProviderLinkID string    `db:"provider_link_id" gorm:"size:64;not null"`
	OwnerID        string    `db:"owner_id" gorm:"size:36;not null;index"`
	Owner          *User     `gorm:"foreignKey:OwnerID"`
	CreatedAt      time.Time `db:"created_at" gorm:"autoCreateTime;index"`
}
