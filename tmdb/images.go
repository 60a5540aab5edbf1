package tmdb

const (
	// DefaultPosterBase is the CDN prefix for poster renditions
	DefaultPosterBase = "https://image.tmdb.org/t/p/w600_and_h900_bestv2"
	// DefaultImageBase is the CDN prefix for profile and gallery renditions
	DefaultImageBase = "https://image.tmdb.org/t/p/w500"
	// PlaceholderAsset is served locally for items without artwork
	PlaceholderAsset = "/static/placeholder.svg"
)

// ImageHost builds display URLs for relative image paths
type ImageHost struct {
	PosterBase string
	ImageBase  string
}

// DefaultImageHost points at the public TMDB CDN
var DefaultImageHost = ImageHost{
	PosterBase: DefaultPosterBase,
	ImageBase:  DefaultImageBase,
}

// PosterURL returns the poster URL for path, or the placeholder when path is empty
func (h ImageHost) PosterURL(path string) string {
	return joinImage(h.PosterBase, path)
}

// ImageURL returns the w500 URL for a profile or gallery path
func (h ImageHost) ImageURL(path string) string {
	return joinImage(h.ImageBase, path)
}

// PosterURL builds a poster URL against the default host
func PosterURL(path string) string {
	return DefaultImageHost.PosterURL(path)
}

func joinImage(base, path string) string {
	if path == "" {
		return PlaceholderAsset
	}
	return base + path
}
