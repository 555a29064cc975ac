package contentsync

import (
	"fmt"
	"path"
	"strings"
	"time"

	"coursebridge/internal/lms"
	"coursebridge/pkg/domain"
)

// coverKeywords mark filenames that look like a course cover.
var coverKeywords = []string{"overview", "cover", "course"}

func isImageFile(f lms.RemoteFile) bool {
	return strings.HasPrefix(f.MimeType, "image/")
}

// pickPrimaryImage selects the cover candidate among a course's overview
// files: the first image whose filename suggests a cover, else the only
// image file if exactly one exists.
func pickPrimaryImage(files []lms.RemoteFile) (lms.RemoteFile, bool) {
	var images []lms.RemoteFile
	for _, f := range files {
		if !isImageFile(f) {
			continue
		}
		name := strings.ToLower(f.Filename)
		for _, kw := range coverKeywords {
			if strings.Contains(name, kw) {
				return f, true
			}
		}
		images = append(images, f)
	}
	if len(images) == 1 {
		return images[0], true
	}
	return lms.RemoteFile{}, false
}

// imageStale reports whether the candidate needs downloading: no local copy
// yet, a newer source modification time, or a changed size.
func imageStale(course domain.Course, f lms.RemoteFile) bool {
	if course.LocalImagePath == "" {
		return true
	}
	if f.ModifiedAt().After(course.ImageModifiedAt) {
		return true
	}
	if f.FileSize != course.ImageSizeBytes {
		return true
	}
	return false
}

var extByMime = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// imageKey builds the storage key for a downloaded cover. The timestamp
// keeps filenames distinct across re-downloads, so parallel workers never
// write to the same path.
func imageKey(lmsCourseID int64, f lms.RemoteFile, at time.Time) string {
	ext := strings.ToLower(path.Ext(f.Filename))
	if ext == "" {
		ext = extByMime[strings.ToLower(f.MimeType)]
	}
	return fmt.Sprintf("courses/course-%d-%d%s", lmsCourseID, at.UnixNano(), ext)
}
