package audio

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// Metadata is what can be learned about a song from its file.
type Metadata struct {
	Filename string
	Title    string
	Artist   string
	Album    string
	Format   string
}

// ReadTags reads ID3/MP4/FLAC/OGG tags from path. Missing tags are not an
// error: the title falls back to the file name and the artist to
// "Unknown Artist".
func ReadTags(path string) Metadata {
	meta := Metadata{Filename: filepath.Base(path)}

	if f, err := os.Open(path); err == nil {
		if m, err := tag.ReadFrom(f); err == nil {
			meta.Title = strings.TrimSpace(m.Title())
			meta.Artist = strings.TrimSpace(m.Artist())
			meta.Album = strings.TrimSpace(m.Album())
			meta.Format = string(m.FileType())
		}
		f.Close()
	}

	if meta.Title == "" {
		meta.Title = strings.TrimSuffix(meta.Filename, filepath.Ext(meta.Filename))
	}
	if meta.Artist == "" {
		meta.Artist = "Unknown Artist"
	}
	return meta
}
