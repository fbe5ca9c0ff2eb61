package sink

import "testing"

func TestRenderFilename(t *testing.T) {
	v := Values{GalleryName: "My Gallery", GalleryID: "42", PageNum: 7, PagesNum: 10}
	tests := []struct {
		template string
		want     string
	}{
		{"{gallery_id}_{page_num}", "42_7"},
		{"{gallery_name} - {page_num} of {pages_num}", "My Gallery - 7 of 10"},
		{"static", "static"},
		{"{page_num}{page_num}", "77"},
		{"{unknown}_{page_num}", "{unknown}_7"},
	}
	for _, tt := range tests {
		if got := RenderFilename(tt.template, v); got != tt.want {
			t.Errorf("RenderFilename(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
}

func TestRenderFilenameIdempotent(t *testing.T) {
	v := Values{GalleryName: "Name", GalleryID: "1", PageNum: 3, PagesNum: 9}
	for _, tmpl := range []string{"{gallery_id}_{page_num}", "{gallery_name}/{pages_num}", "plain"} {
		once := RenderFilename(tmpl, v)
		twice := RenderFilename(once, v)
		if once != twice {
			t.Errorf("template %q: %q != %q after second render", tmpl, once, twice)
		}
	}
}

func TestRenderFilenameSingleSubstitution(t *testing.T) {
	// A value that looks like a placeholder is not expanded again.
	v := Values{GalleryName: "{gallery_id}", GalleryID: "42", PageNum: 1, PagesNum: 1}
	if got := RenderFilename("{gallery_name}", v); got != "{gallery_id}" {
		t.Errorf("expected single-pass replacement, got %q", got)
	}
}

func TestRenderFilenameSanitizesValues(t *testing.T) {
	v := Values{GalleryName: `a/b:c*d?"e"`, GalleryID: "1", PageNum: 1, PagesNum: 1}
	if got := RenderFilename("{gallery_name}", v); got != "a_b_c_d__e_" {
		t.Errorf("unexpected sanitized name %q", got)
	}
}
