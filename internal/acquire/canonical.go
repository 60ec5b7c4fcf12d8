package acquire

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

var driveFilePath = regexp.MustCompile(`/file/d/([A-Za-z0-9_-]+)`)

// DriveFileID extracts a Google Drive file id from gdrive://<id>, share
// links (/file/d/<id>/view) and open/uc links (?id=<id>).
func DriveFileID(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if id, ok := strings.CutPrefix(ref, "gdrive://"); ok {
		id = strings.Trim(id, "/")
		return id, id != ""
	}
	u, err := url.Parse(ref)
	if err != nil || !strings.HasSuffix(strings.ToLower(u.Hostname()), "drive.google.com") {
		return "", false
	}
	if m := driveFilePath.FindStringSubmatch(u.Path); m != nil {
		return m[1], true
	}
	if id := u.Query().Get("id"); id != "" {
		return id, true
	}
	return "", false
}

// CanonicalID returns the cache key of a source reference. Drive files are
// keyed by file id so every link form of the same file shares one entry;
// anything else by a hash of the normalized reference.
func CanonicalID(ref string) string {
	if id, ok := DriveFileID(ref); ok {
		return "gd_" + sanitize(id)
	}
	sum := sha256.Sum256([]byte(normalize(ref)))
	return "src_" + hex.EncodeToString(sum[:])[:16]
}

func normalize(ref string) string {
	ref = strings.TrimSpace(ref)
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" {
		return filepath.Clean(ref)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if u.Scheme == "file" {
		return "file://" + filepath.Clean(u.Path)
	}
	return u.String()
}

func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
