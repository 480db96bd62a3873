package signer

import (
	"fmt"
	"net/url"
	"strings"

	"stash-go/internal/stash"
)

// URLs builds the download/view URL pair for a signed entity. The path
// shape is a wire contract:
//
//	<base>/{download|view}/{uriPath}/f/{filename}/e/{extension}/{fileid}?s=<token>
func URLs(base, uriPath, filename, extension, fileid, token string) (*stash.SignedURL, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("base url %q has no scheme or host", base)
	}

	build := func(mode string) string {
		u := *parsed
		segments := []string{mode, uriPath, "f", filename, "e", extension, fileid}
		for i, s := range segments {
			segments[i] = strings.TrimPrefix(s, "/")
		}
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.Join(segments, "/")
		u.RawQuery = "s=" + token
		return u.String()
	}

	return &stash.SignedURL{
		Download: build("download"),
		View:     build("view"),
	}, nil
}
