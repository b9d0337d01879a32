package media

import "strings"

// ManifestSuffix is the file suffix that marks an HLS playlist URL.
//
// Matching is a plain suffix check on the raw link: manifests served with a
// query string or without the extension are not recognized.
const ManifestSuffix = ".m3u8"

// Kind classifies a recorded episode link.
type Kind string

const (
	KindStream   Kind = "STREAM (M3U8)"
	KindFallback Kind = "HTML PAGE (FALLBACK)"
)

// IsManifest reports whether link follows the manifest suffix convention.
func IsManifest(link string) bool {
	return strings.HasSuffix(link, ManifestSuffix)
}

// KindOf derives the kind of a recorded link from the suffix convention.
func KindOf(link string) Kind {
	if IsManifest(link) {
		return KindStream
	}
	return KindFallback
}
