package blobstore

import (
	"fmt"
	"net/url"
	"strings"
)

// FromURI opens a local or in-memory store.
//
// Supported forms are "file:///abs/dir", "file://rel/dir", a bare directory
// path and "mem://". Cloud stores need credentials and are constructed by
// their own packages.
func FromURI(uri string) (BlobStore, error) {
	if uri == "" {
		return NewLocalStore("."), nil
	}
	if !strings.Contains(uri, "://") {
		return NewLocalStore(uri), nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("blobstore: invalid uri %q: %w", uri, err)
	}
	switch u.Scheme {
	case "file":
		root := u.Host + u.Path
		if root == "" {
			root = "."
		}
		return NewLocalStore(root), nil
	case "mem":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("blobstore: unsupported scheme %q", u.Scheme)
	}
}
