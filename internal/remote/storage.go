package remote

import (
	"context"
	"fmt"
	"strings"
)

// Storage buckets.
const (
	// BucketAvatars holds profile photos.
	BucketAvatars = "avatars"
	// BucketTenantPhotos holds tenant photos.
	BucketTenantPhotos = "tenant-photos"
)

// Upload stores a byte payload under bucket/path in object storage and
// returns the path. Existing objects at the same path are replaced.
func (c *Client) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error) {
	req, err := c.request(ctx)
	if err != nil {
		return "", err
	}

	resp, err := req.
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "true").
		SetBody(data).
		Post("/storage/v1/object/" + bucket + "/" + path)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s/%s: %w", bucket, path, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("upload %s/%s failed: status %d: %s", bucket, path, resp.StatusCode(), resp.String())
	}
	return path, nil
}

// PublicURL builds the fetchable URL for an uploaded object by joining the
// base URL, bucket and path.
func (c *Client) PublicURL(bucket, path string) string {
	base := strings.TrimSuffix(c.http.BaseURL, "/")
	return base + "/storage/v1/object/public/" + bucket + "/" + path
}
