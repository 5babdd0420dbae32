// Package gallery models the image viewing state for a listing: a carousel
// over the listing's images and a full-screen lightbox. Both are plain state
// machines so client renderers only have to translate events into calls.
package gallery

import (
	"math"

	"github.com/Corey-Yule/caravan-site/internal/entity"
)

// Carousel pages through a listing's images one frame at a time. The index
// is always clamped to the image range and never wraps.
type Carousel struct {
	images []string
	index  int
}

// NewCarousel builds a carousel over the listing's images, falling back to
// the placeholder image when the listing has none.
func NewCarousel(l *entity.Listing) *Carousel {
	return &Carousel{images: l.ImagesOrPlaceholder()}
}

func (c *Carousel) Images() []string {
	return c.images
}

func (c *Carousel) Index() int {
	return c.index
}

func (c *Carousel) Current() string {
	return c.images[c.index]
}

// Next advances one frame, stopping at the last image.
func (c *Carousel) Next() {
	c.index = clamp(c.index+1, len(c.images))
}

// Prev steps back one frame, stopping at the first image.
func (c *Carousel) Prev() {
	c.index = clamp(c.index-1, len(c.images))
}

// Goto jumps to the given frame, clamped to the image range.
func (c *Carousel) Goto(i int) {
	c.index = clamp(i, len(c.images))
}

// TrackScroll derives the current frame from a scroll position, the way a
// snap-scrolling strip reports it: the frame nearest to the scroll offset.
// A non-positive frame width leaves the index unchanged.
func (c *Carousel) TrackScroll(scrollLeft, frameWidth float64) {
	if frameWidth <= 0 {
		return
	}
	c.index = clamp(int(math.Round(scrollLeft/frameWidth)), len(c.images))
}

// SetImages replaces the image set, re-clamping the index so it stays valid
// when the new set is shorter.
func (c *Carousel) SetImages(images []string) {
	if len(images) == 0 {
		images = []string{entity.PlaceholderImageURL}
	}
	c.images = images
	c.index = clamp(c.index, len(images))
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
