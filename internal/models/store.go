package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Marketplace channels a store can be connected through.
const (
	PlatformShopify     = "shopify"
	PlatformAmazon      = "amazon"
	PlatformWalmart     = "walmart"
	PlatformEbay        = "ebay"
	PlatformEtsy        = "etsy"
	PlatformTikTokShop  = "tiktok_shop"
	PlatformWooCommerce = "woocommerce"
	PlatformWarehance   = "warehance"
)

// Platforms lists every supported channel.
var Platforms = []string{
	PlatformShopify, PlatformAmazon, PlatformWalmart, PlatformEbay,
	PlatformEtsy, PlatformTikTokShop, PlatformWooCommerce, PlatformWarehance,
}

// Store auth statuses. Anything else reported by an integration is kept verbatim.
const (
	AuthStatusActive  = "active"
	AuthStatusExpired = "expired"
)

// Store is a connected sales channel belonging to an organization.
type Store struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Platform        string     `json:"platform"`
	AuthStatus      string     `json:"auth_status"`
	LastHealthCheck *time.Time `json:"last_health_check,omitempty"`
	OrgID           uuid.UUID  `json:"org_id"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Credential is the 1:1 credential record of a store. The blob is opaque key/value data.
type Credential struct {
	ID          uuid.UUID         `json:"id"`
	StoreID     uuid.UUID         `json:"store_id"`
	Credentials map[string]string `json:"credentials"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// CredentialsJSON encodes the credential blob for storage.
func (c *Credential) CredentialsJSON() ([]byte, error) {
	if c.Credentials == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.Credentials)
}
