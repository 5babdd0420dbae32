package gallery

// Keyboard keys the lightbox responds to while open.
const (
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
	KeyEscape     = "Escape"
)

// Lightbox is the full-screen viewer. Unlike the carousel it wraps around at
// either end, and it only reacts to input while open.
type Lightbox struct {
	images []string
	index  int
	open   bool
}

func NewLightbox(images []string) *Lightbox {
	return &Lightbox{images: images}
}

func (lb *Lightbox) IsOpen() bool {
	return lb.open
}

func (lb *Lightbox) Index() int {
	return lb.index
}

func (lb *Lightbox) Current() string {
	return lb.images[lb.index]
}

// Open shows the viewer at the given image, clamped to the image range.
func (lb *Lightbox) Open(at int) {
	if len(lb.images) == 0 {
		return
	}
	lb.index = clamp(at, len(lb.images))
	lb.open = true
}

func (lb *Lightbox) Close() {
	lb.open = false
}

// Next advances one image, wrapping to the first after the last.
func (lb *Lightbox) Next() {
	if !lb.open {
		return
	}
	lb.index = wrap(lb.index+1, len(lb.images))
}

// Prev steps back one image, wrapping to the last before the first.
func (lb *Lightbox) Prev() {
	if !lb.open {
		return
	}
	lb.index = wrap(lb.index-1, len(lb.images))
}

// Advance is a click anywhere on the image, which moves forward.
func (lb *Lightbox) Advance() {
	lb.Next()
}

// HandleKey reacts to a keyboard event. Keys are ignored while closed, so a
// stray arrow press cannot move a viewer the user is not looking at.
func (lb *Lightbox) HandleKey(key string) {
	if !lb.open {
		return
	}
	switch key {
	case KeyArrowRight:
		lb.Next()
	case KeyArrowLeft:
		lb.Prev()
	case KeyEscape:
		lb.Close()
	}
}

// wrap maps any index into [0, n) with Euclidean modulo, so stepping back
// from zero lands on n-1.
func wrap(i, n int) int {
	if n <= 0 {
		return 0
	}
	return ((i % n) + n) % n
}
