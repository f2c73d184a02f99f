package domain

// categoryDisplayNames maps category folder slugs to their display strings.
// Built at compile time; unknown folders fall back to the slug itself.
var categoryDisplayNames = map[string]string{
	"action":      "Action",
	"comedy":      "Comedy",
	"drama":       "Drama",
	"documentary": "Documentary",
	"horror":      "Horror",
	"music":       "Music",
	"romance":     "Romance",
	"scifi":       "Sci-Fi",
	"series":      "TV Series",
	"thriller":    "Thriller",
}

// CategoryDisplayName returns the display string for a category folder.
func CategoryDisplayName(folder string) string {
	if name, ok := categoryDisplayNames[folder]; ok {
		return name
	}
	return folder
}
