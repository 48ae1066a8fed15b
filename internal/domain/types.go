package domain

import (
	"strings"
	"time"
)

// Artwork types offered by the portal forms. The vocabulary is open: values outside this list pass
// through untouched.
const (
	ArtworkTypePainting    = "Painting"
	ArtworkTypePrint       = "Print"
	ArtworkTypePhotography = "Photography"
	ArtworkTypeSculpture   = "Sculpture"
	ArtworkTypeCeramics    = "Ceramics"
	ArtworkTypeJewelry     = "Jewelry"
	ArtworkTypeTextile     = "Textile"
	ArtworkTypeGlass       = "Glass"
	ArtworkTypeWoodwork    = "Woodwork"
	ArtworkTypeCard        = "Card"
	ArtworkTypeOther       = "Other"
)

// KnownArtworkTypes lists the enumerated artwork types in display order.
var KnownArtworkTypes = []string{
	ArtworkTypePainting,
	ArtworkTypePrint,
	ArtworkTypePhotography,
	ArtworkTypeSculpture,
	ArtworkTypeCeramics,
	ArtworkTypeJewelry,
	ArtworkTypeTextile,
	ArtworkTypeGlass,
	ArtworkTypeWoodwork,
	ArtworkTypeCard,
	ArtworkTypeOther,
}

// ArtworkRecord is the local, human-editable shape of a catalog item.
// An empty ProviderItemID means the record has not been created upstream yet.
type ArtworkRecord struct {
	ID                       string
	ProviderItemID           string
	ProviderVariationID      string
	ProviderItemVersion      int64
	ProviderVariationVersion int64
	Title                    string
	ArtistName               string
	Type                     string
	Medium                   string
	Description              string
	Height                   string
	Width                    string
	DimensionsText           string
	Price                    *float64
	SKU                      string
	Quantity                 int
	Discounts                string
	Category                 string
}

// IsCreate reports whether the record still needs to be created upstream.
func (r ArtworkRecord) IsCreate() bool {
	return strings.TrimSpace(r.ProviderItemID) == ""
}

// Dimensions returns the explicit dimensions override or the value derived from height and width.
func (r ArtworkRecord) Dimensions() string {
	if text := strings.TrimSpace(r.DimensionsText); text != "" {
		return text
	}
	height := strings.TrimSpace(r.Height)
	width := strings.TrimSpace(r.Width)
	if height == "" && width == "" {
		return ""
	}
	return height + `" x ` + width + `"`
}

// CategoryRef pairs a provider category name with its provider identifier.
type CategoryRef struct {
	Name       string
	ProviderID string
}

// ArchivedArtwork is an artwork removed from the live catalog and kept in the archive list.
type ArchivedArtwork struct {
	ArtworkRecord
	ArchiveID  string
	ArchivedAt time.Time
	ArchivedBy string
}

// Member roles recognised by the portal.
const (
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleArtist = "artist"
)

// Member is the authenticated portal user.
type Member struct {
	ID       string
	FullName string
	Email    string
	Role     string
}

// IsPrivileged reports whether the member may see and edit every artist's inventory.
func (m Member) IsPrivileged() bool {
	switch strings.ToLower(strings.TrimSpace(m.Role)) {
	case RoleAdmin, RoleStaff:
		return true
	default:
		return false
	}
}

// Attribution returns the label used when stamping records with the member's identity.
func (m Member) Attribution() string {
	for _, candidate := range []string{m.FullName, m.Email, m.ID} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return "unknown"
}

// Batch operations recorded on each result.
const (
	OperationCreate = "create"
	OperationUpdate = "update"
)

// BatchResult reports the outcome of writing one record in a batch.
type BatchResult struct {
	LocalID             string
	ProviderItemID      string
	ProviderVariationID string
	SKU                 string
	Category            string
	Operation           string
	Success             bool
	Error               string
	InventoryWarning    string
}

// Archive lifecycle events.
const (
	EventArtworkArchived = "artwork.archived"
	EventArtworkRestored = "artwork.restored"
)

// ArchiveEvent announces that an artwork moved into or out of the archive.
type ArchiveEvent struct {
	Event          string    `json:"event"`
	ArchiveID      string    `json:"archiveId"`
	ProviderItemID string    `json:"providerItemId,omitempty"`
	Title          string    `json:"title"`
	ArtistName     string    `json:"artistName"`
	Actor          string    `json:"actor"`
	OccurredAt     time.Time `json:"occurredAt"`
}
