package objectstore

import (
	"fmt"
	"strings"
)

// ParseURL splits a gs://{bucket}/{object} URL into bucket and object parts.
// The object part may be empty (a bare bucket URL).
func ParseURL(raw string) (bucket, object string, err error) {
	const scheme = "gs://"
	if !strings.HasPrefix(raw, scheme) {
		return "", "", fmt.Errorf("objectstore: not a gs:// URL: %q", raw)
	}
	rest := strings.TrimPrefix(raw, scheme)
	if rest == "" {
		return "", "", fmt.Errorf("objectstore: missing bucket in URL: %q", raw)
	}
	bucket, object, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("objectstore: missing bucket in URL: %q", raw)
	}
	return bucket, object, nil
}
