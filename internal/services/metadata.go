package services

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// Metadata keys set on Stripe objects by the checkout flow.
const (
	metaPurpose          = "purpose"
	metaProductType      = "product_type"
	metaSubscriptionType = "subscription_type"
	metaProfileID        = "profile_id"
	metaUserID           = "user_id"
	metaBuyerID          = "buyer_id"
	metaSellerID         = "seller_id"
	metaBookingID        = "booking_id"
	metaServiceID        = "service_id"
	metaPassOfferingID   = "pass_offering_id"
	metaChannelID        = "channel_id"
	metaSessionAt        = "session_at"
	metaTier             = "tier"

	purposeIdentityVerification = "identity_verification"
)

const maxStoredTextRunes = 500

var strictPolicy = bluemonday.StrictPolicy()

// metadataUUID returns the identifier stored under key. Only canonical
// hyphenated UUIDs are accepted; anything else is treated as absent.
func metadataUUID(metadata map[string]string, key string) (uuid.UUID, bool) {
	raw := strings.TrimSpace(metadata[key])
	if len(raw) != 36 {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// profileFromMetadata reads the acting profile, accepting the older user_id
// key as a fallback.
func profileFromMetadata(metadata map[string]string) (uuid.UUID, bool) {
	if id, ok := metadataUUID(metadata, metaProfileID); ok {
		return id, true
	}
	return metadataUUID(metadata, metaUserID)
}

func metadataTime(metadata map[string]string, key string) time.Time {
	raw := strings.TrimSpace(metadata[key])
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// sanitizeText strips markup from gateway-supplied text, collapses
// whitespace and truncates the result to a storable length.
func sanitizeText(s string) string {
	cleaned := strings.Join(strings.Fields(strictPolicy.Sanitize(s)), " ")
	if utf8.RuneCountInString(cleaned) <= maxStoredTextRunes {
		return cleaned
	}
	runes := []rune(cleaned)
	return string(runes[:maxStoredTextRunes])
}
