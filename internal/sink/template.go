package sink

import (
	"strconv"
	"strings"
)

// Values are the substitutions available to a filename template.
type Values struct {
	GalleryName string
	GalleryID   string
	PageNum     int
	PagesNum    int
}

var forbiddenChars = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", `"`, "_",
	"/", "_", `\`, "_", "|", "_", "?", "_", "*", "_",
)

// RenderFilename replaces {gallery_name}, {gallery_id}, {page_num} and
// {pages_num} in template. Replacement is a single pass, so text introduced by
// a value is never substituted again. Values are stripped of characters that
// cannot appear in a file name; the template itself is used literally.
func RenderFilename(template string, v Values) string {
	r := strings.NewReplacer(
		"{gallery_name}", forbiddenChars.Replace(v.GalleryName),
		"{gallery_id}", forbiddenChars.Replace(v.GalleryID),
		"{page_num}", strconv.Itoa(v.PageNum),
		"{pages_num}", strconv.Itoa(v.PagesNum),
	)
	return r.Replace(template)
}
