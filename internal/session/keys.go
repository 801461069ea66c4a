package session

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// Object-store layout of one session namespace:
//
//	sessions/{sid}/session.json                      lifecycle marker
//	sessions/{sid}/documents/{filename}              raw uploads
//	sessions/{sid}/images/{docID}/page_0001.png      rendered pages
//	sessions/{sid}/index                             index artifact
//
// Everything a session owns lives under its prefix, so teardown is a
// single prefix delete.

// Prefix returns the session's namespace prefix.
func Prefix(sid string) string { return "sessions/" + sid + "/" }

// MarkerKey returns the session lifecycle marker key. The marker's absence
// means the session does not exist; merges guard on it to fail closed.
func MarkerKey(sid string) string { return Prefix(sid) + "session.json" }

// IndexKey returns the key of the session's index artifact.
func IndexKey(sid string) string { return Prefix(sid) + "index" }

// DocumentKey returns the key of a raw uploaded document.
func DocumentKey(sid, filename string) string {
	return Prefix(sid) + "documents/" + filename
}

// DocumentPrefix returns the prefix of all raw uploads.
func DocumentPrefix(sid string) string { return Prefix(sid) + "documents/" }

// ImagePrefix returns the prefix of all rendered page images.
func ImagePrefix(sid string) string { return Prefix(sid) + "images/" }

// DocumentImagePrefix returns the prefix of one document's page images.
func DocumentImagePrefix(sid, docID string) string {
	return ImagePrefix(sid) + docID + "/"
}

// ImageKey returns the key of one rendered page image.
func ImageKey(sid, docID string, page int) string {
	return fmt.Sprintf("%s%s/page_%04d.png", ImagePrefix(sid), docID, page)
}

// ParseImageKey extracts (session, document, page) from a page-image key.
// Keys that do not match the layout return an error; the ingest dispatcher
// uses this to ignore non-page objects.
func ParseImageKey(key string) (sid, docID string, page int, err error) {
	parts := strings.Split(key, "/")
	if len(parts) != 5 || parts[0] != "sessions" || parts[2] != "images" {
		return "", "", 0, fmt.Errorf("not a page image key: %s", key)
	}
	name := parts[4]
	if !strings.HasPrefix(name, "page_") || !strings.HasSuffix(name, ".png") {
		return "", "", 0, fmt.Errorf("not a page image key: %s", key)
	}
	num := strings.TrimSuffix(strings.TrimPrefix(name, "page_"), ".png")
	page, err = strconv.Atoi(num)
	if err != nil || page < 1 {
		return "", "", 0, fmt.Errorf("invalid page number in key %s", key)
	}
	return parts[1], parts[3], page, nil
}

// DocumentIDFromFilename derives the document identifier from the original
// filename: extension dropped, lowercased, runs of non-alphanumerics
// collapsed to single dashes. Unique within a session by construction as
// long as filenames are.
func DocumentIDFromFilename(filename string) string {
	base := strings.TrimSuffix(filename, path.Ext(filename))
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
