package typesystem

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/syssam/typegen"
)

// VersionedURL identifies one revision of a type: a base URL followed by
// "v/<version>", e.g. https://example.com/@org/types/entity-type/person/v/2.
type VersionedURL string

// BaseURL identifies a type across all of its revisions. It always ends in "/".
type BaseURL string

// ParseVersionedURL validates s and returns it as a VersionedURL.
func ParseVersionedURL(s string) (VersionedURL, error) {
	if _, _, err := split(s); err != nil {
		return "", err
	}
	return VersionedURL(s), nil
}

// MustParseVersionedURL is like ParseVersionedURL but panics on error.
func MustParseVersionedURL(s string) VersionedURL {
	u, err := ParseVersionedURL(s)
	if err != nil {
		panic(err)
	}
	return u
}

// NewVersionedURL joins a base URL and a version.
func NewVersionedURL(base BaseURL, version uint32) VersionedURL {
	return VersionedURL(string(base) + "v/" + strconv.FormatUint(uint64(version), 10))
}

// BaseURL returns the base part of u. It returns an empty string if u is malformed.
func (u VersionedURL) BaseURL() BaseURL {
	base, _, err := split(string(u))
	if err != nil {
		return ""
	}
	return base
}

// Version returns the revision number of u, or 0 if u is malformed.
func (u VersionedURL) Version() uint32 {
	_, v, err := split(string(u))
	if err != nil {
		return 0
	}
	return v
}

// Valid reports whether u is a well formed versioned URL.
func (u VersionedURL) Valid() bool {
	_, _, err := split(string(u))
	return err == nil
}

func (u VersionedURL) String() string { return string(u) }

func split(s string) (BaseURL, uint32, error) {
	i := strings.LastIndex(s, "/v/")
	if i < 0 {
		return "", 0, typegen.NewURLError(s, `missing "/v/<version>" suffix`)
	}
	base, ver := s[:i+1], s[i+3:]
	if ver == "" || (len(ver) > 1 && ver[0] == '0') {
		return "", 0, typegen.NewURLError(s, "malformed version")
	}
	n, err := strconv.ParseUint(ver, 10, 32)
	if err != nil {
		return "", 0, typegen.NewURLError(s, "malformed version")
	}
	if reason := validateBase(base); reason != "" {
		return "", 0, typegen.NewURLError(s, reason)
	}
	return BaseURL(base), uint32(n), nil
}

// validateBase returns the reason base is unusable, or "".
func validateBase(base string) string {
	u, err := url.Parse(base)
	switch {
	case err != nil:
		return "base url does not parse"
	case u.Scheme != "http" && u.Scheme != "https":
		return "base url must be http or https"
	case u.Host == "":
		return "base url has no host"
	}
	return ""
}
