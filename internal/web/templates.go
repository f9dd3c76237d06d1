package web

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path/filepath"
	"strconv"
	"time"

	"github.com/justestif/melora/internal/catalog"
	"github.com/justestif/melora/internal/recommend"
	"github.com/justestif/melora/internal/spotify"
)

// Templates manages HTML template rendering.
type Templates struct {
	templates map[string]*template.Template
	funcs     template.FuncMap
}

// NewTemplates creates a new template manager by loading templates from the given filesystem.
func NewTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{
		templates: make(map[string]*template.Template),
		funcs:     defaultFuncs(),
	}

	if err := t.load(templatesFS); err != nil {
		return nil, err
	}

	return t, nil
}

// Render renders a page template with the given data.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	tmpl, ok := t.templates[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}

	// Execute the "base" template which includes the page content
	return tmpl.ExecuteTemplate(w, "base", data)
}

// load parses every page together with the layouts and partials.
func (t *Templates) load(templatesFS fs.FS) error {
	layouts, err := fs.Glob(templatesFS, "layouts/*.html")
	if err != nil {
		return fmt.Errorf("finding layouts: %w", err)
	}

	partials, err := fs.Glob(templatesFS, "partials/*.html")
	if err != nil {
		return fmt.Errorf("finding partials: %w", err)
	}

	pages, err := fs.Glob(templatesFS, "pages/*.html")
	if err != nil {
		return fmt.Errorf("finding pages: %w", err)
	}
	if len(pages) == 0 {
		return fmt.Errorf("no page templates found")
	}

	commonFiles := append(layouts, partials...)

	for _, page := range pages {
		name := filepath.Base(page)
		name = name[:len(name)-len(".html")]

		files := append([]string{page}, commonFiles...)

		tmpl, err := template.New(name).Funcs(t.funcs).ParseFS(templatesFS, files...)
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}
		t.templates[name] = tmpl
	}

	return nil
}

// defaultFuncs returns the default template functions.
func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		// moodColor returns an HSL color for a valence/energy point.
		// Energy maps to hue (cool indigo to warm orange), valence to
		// saturation and lightness.
		"moodColor": moodColor,

		"embed": func(trackID string) template.HTML {
			return spotify.EmbedHTML(trackID, spotify.DefaultEmbedWidth, spotify.DefaultEmbedHeight)
		},

		"searchURL": spotify.SearchURL,

		"formatTime": func(t time.Time) string {
			return t.Format("Jan 2, 2006 15:04 MST")
		},

		// percent renders part/total as a whole-number percentage.
		"percent": func(part, total int) string {
			if total == 0 {
				return "0%"
			}
			return fmt.Sprintf("%.0f%%", float64(part)*100/float64(total))
		},

		// stat renders a nullable average, "n/a" when missing.
		"stat": func(v *float64) string {
			if v == nil {
				return "n/a"
			}
			return strconv.FormatFloat(*v, 'f', -1, 64)
		},

		// statColor colors a per-mood row, treating a missing axis as the midpoint.
		"statColor": func(f recommend.MoodFeatures) template.CSS {
			return moodColor(orMid(f.Energy), orMid(f.Valence))
		},

		// add adds two integers (for 1-based indexing in loops)
		"add": func(a, b int) int {
			return a + b
		},
	}
}

func moodColor(energy, valence float64) template.CSS {
	hue := 264 - (energy * 229)
	if hue < 0 {
		hue += 360
	}
	saturation := 60 + (valence * 40)
	lightness := 40 + (valence * 20)
	return template.CSS(fmt.Sprintf("hsl(%.0f, %.0f%%, %.0f%%)", hue, saturation, lightness))
}

func orMid(v *float64) float64 {
	if v == nil {
		return 0.5
	}
	return *v
}

// PageData contains common data passed to all page templates.
type PageData struct {
	Title       string
	CurrentPath string
	Error       string
}

// MoodOption is a mood button on the home page.
type MoodOption struct {
	Mood        catalog.Mood
	Description string
	Color       template.CSS
}

// HomePageData contains data for the home page template.
type HomePageData struct {
	PageData
	Moods   []MoodOption
	Genres  []string
	Dataset recommend.DatasetInfo
}

// RecommendPageData contains data for the results page template.
type RecommendPageData struct {
	PageData
	Mood        catalog.Mood
	Description string
	Genre       string
	Tracks      []recommend.Recommendation
}

// DashboardPageData contains data for the dashboard template.
type DashboardPageData struct {
	PageData
	Dataset   recommend.DatasetInfo
	Moods     []recommend.MoodCount
	Genres    []recommend.GenreCount
	GenreMood catalog.Mood
	Features  []recommend.MoodFeatures
}

// ErrorPageData contains data for the error page template.
type ErrorPageData struct {
	PageData
	Status int
}
