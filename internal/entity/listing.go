package entity

import "time"

// Standard is the tiered quality classification of a listing.
type Standard string

const (
	StandardBronze Standard = "Bronze"
	StandardSilver Standard = "Silver"
	StandardGold   Standard = "Gold"
)

// StandardAll is the filter value that matches every standard.
const StandardAll = "All"

// PlaceholderImageURL is shown for listings that were created without images.
const PlaceholderImageURL = "https://images.unsplash.com/photo-1500530855697-b586d89ba3ee?q=80&w=1600&auto=format&fit=crop"

func ParseStandard(s string) (Standard, bool) {
	switch Standard(s) {
	case StandardBronze, StandardSilver, StandardGold:
		return Standard(s), true
	}
	return "", false
}

type Listing struct {
	ID           string
	Title        string
	Standard     Standard
	Location     string
	ContactName  string
	ContactEmail string
	ContactPhone string
	Images       []string // public URLs, first one is the cover image
	CreatedAt    time.Time
	OwnerEmail   string
	OwnerID      string
	IsFeatured   bool
}

// ImagesOrPlaceholder returns the listing's images, or a single placeholder
// when none were uploaded, so galleries always have something to show.
func (l *Listing) ImagesOrPlaceholder() []string {
	if len(l.Images) > 0 {
		return l.Images
	}
	return []string{PlaceholderImageURL}
}

// DaysListed reports how many whole days ago the listing was created.
func (l *Listing) DaysListed(now time.Time) int {
	d := now.Sub(l.CreatedAt)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}
