package model

import "time"

// Neighborhood is a geographic partition used to match families with
// providers. Committee presidents are scoped to one neighborhood.
type Neighborhood struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Number    string    `json:"number"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Provider is a doctor, pharmacy or laboratory in the healthcare directory.
// Doctors carry a full name and specialty; pharmacies and laboratories a
// trading name. Name always holds the display name.
type Provider struct {
	ID                       string       `json:"id"`
	Type                     ProviderType `json:"provider_type"`
	Name                     string       `json:"name"`
	SpecialtyID              *string      `json:"specialty_id,omitempty"`
	NeighborhoodID           *string      `json:"neighborhood_id"`
	Phone                    string       `json:"phone"`
	Address                  string       `json:"address"`
	IsActive                 bool         `json:"is_active"`
	ParticipatesInSolidarity bool         `json:"participates_in_solidarity"`
	CreatedAt                time.Time    `json:"created_at"`
}

// Family is a registered household that can receive takaful benefits.
type Family struct {
	ID             string    `json:"id"`
	FamilyNumber   string    `json:"family_number"`
	Name           string    `json:"name"`
	NeighborhoodID *string   `json:"neighborhood_id"`
	MembersCount   int       `json:"members_count"`
	MonthlyNeed    float64   `json:"monthly_need"`
	Description    string    `json:"description"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// Family registry statuses.
const (
	FamilyActive    = "active"
	FamilySponsored = "sponsored"
)

// CancelReason is an entry of the catalog a cancellation must reference.
type CancelReason struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}
