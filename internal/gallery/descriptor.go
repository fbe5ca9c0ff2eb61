package gallery

import "strings"

// Descriptor is everything the downloader needs to know about one gallery.
type Descriptor struct {
	ID              string
	Name            string
	URL             string
	PageCount       int
	ImageURLPattern string
	Tags            *Tags
}

// Category groups tag values by the link prefix they were found under.
type Category struct {
	Name   string
	Prefix string
	Values []string
}

// Tags holds the categorized gallery tags in a fixed category order.
type Tags struct {
	categories []*Category
}

var categoryPrefixes = [][2]string{
	{"parodies", "/parody"},
	{"characters", "/character"},
	{"tags", "/tag"},
	{"artists", "/artist"},
	{"groups", "/group"},
	{"languages", "/language"},
	{"category", "/category"},
}

func NewTags() *Tags {
	t := &Tags{}
	for _, cp := range categoryPrefixes {
		t.categories = append(t.categories, &Category{Name: cp[0], Prefix: cp[1]})
	}
	return t
}

// Add files value under the category whose prefix matches href.
// Unknown prefixes are ignored and reported as false.
func (t *Tags) Add(href, value string) bool {
	for _, c := range t.categories {
		if strings.HasPrefix(href, c.Prefix) {
			c.Values = append(c.Values, value)
			return true
		}
	}
	return false
}

func (t *Tags) values(name string) []string {
	for _, c := range t.categories {
		if c.Name == name {
			return c.Values
		}
	}
	return nil
}

// Categories returns all categories in their fixed order, empty ones included.
func (t *Tags) Categories() []Category {
	out := make([]Category, 0, len(t.categories))
	for _, c := range t.categories {
		out = append(out, *c)
	}
	return out
}

func (t *Tags) Len() int {
	n := 0
	for _, c := range t.categories {
		n += len(c.Values)
	}
	return n
}
