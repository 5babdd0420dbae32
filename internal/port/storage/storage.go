package storage

import "context"

// ObjectStorage is the file storage surface the listing flows consume:
// upload bytes under a key, hand out public URLs, batch-remove objects.
type ObjectStorage interface {
	// Upload stores data under objectKey and returns its public URL.
	Upload(ctx context.Context, objectKey string, data []byte, contentType string) (string, error)
	// Remove deletes the given object keys. Removal is best effort: it keeps
	// going past individual failures and reports them in the returned error.
	Remove(ctx context.Context, objectKeys []string) error
	// ObjectKeyFromURL resolves a public URL issued by this storage back to
	// its object key. The second return is false for foreign URLs.
	ObjectKeyFromURL(url string) (string, bool)
}
