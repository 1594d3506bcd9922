package render

import (
	"bytes"
	"html/template"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
)

// Built-in section types
const (
	TypeHero     = "hero"
	TypeStats    = "stats"
	TypeFeatures = "features"
	TypeGallery  = "gallery"
)

const (
	defaultGalleryColumns = 3
	maxGalleryColumns     = 4
)

var sectionTemplates = template.Must(template.New("sections").Parse(`
{{define "hero"}}<section class="section section-hero"{{with .BackgroundImage}} style="background-image: url('{{.}}')"{{end}}>
  <div class="hero-inner">
    <h1>{{.Title}}</h1>
    {{with .Subtitle}}<p class="hero-subtitle">{{.}}</p>{{end}}
    {{with .Description}}<p class="hero-description">{{.}}</p>{{end}}
    {{if .Address}}<div class="hero-address"><code>{{.Address}}</code><button type="button" data-copy="{{.Address}}">Copy</button></div>{{end}}
    {{if and .ButtonText .ButtonURL}}<a class="button" href="{{.ButtonURL}}">{{.ButtonText}}</a>{{end}}
  </div>
</section>{{end}}
{{define "stats"}}<section class="section section-stats">
  {{with .Title}}<h2>{{.}}</h2>{{end}}
  <dl class="stats">{{range .Items}}<div class="stat"><dt>{{.Label}}</dt><dd>{{.Value}}</dd></div>{{end}}</dl>
</section>{{end}}
{{define "features"}}<section class="section section-features">
  {{with .Title}}<h2>{{.}}</h2>{{end}}
  {{with .Subtitle}}<p class="section-subtitle">{{.}}</p>{{end}}
  <ul class="features">{{range .Items}}<li>{{with .Icon}}<span class="icon">{{.}}</span>{{end}}<h3>{{.Title}}</h3>{{with .Description}}<p>{{.}}</p>{{end}}</li>{{end}}</ul>
</section>{{end}}
{{define "gallery"}}<section class="section section-gallery">
  {{with .Title}}<h2>{{.}}</h2>{{end}}
  <div class="gallery gallery-cols-{{.Columns}}">{{range .Images}}<figure><img src="{{.URL}}" alt="{{.Caption}}" loading="lazy">{{with .Caption}}<figcaption>{{.}}</figcaption>{{end}}</figure>{{end}}</div>
</section>{{end}}
`))

func execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := sectionTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// HeroContent is the decoded form of a hero section
type HeroContent struct {
	Title           string
	Subtitle        string
	Description     string
	BackgroundImage string
	ButtonText      string
	ButtonURL       string
	Address         string
}

// DecodeHero reads a hero section. The title falls back to the server
// name and the address is shown unless showAddress is false.
func DecodeHero(t Tenant, s *domain.Section) HeroContent {
	c := HeroContent{
		Title:           s.Title,
		Subtitle:        s.Subtitle,
		Description:     settingString(s.Settings, "description", t.Description),
		BackgroundImage: safeURL(settingString(s.Settings, "backgroundImage", "")),
		ButtonText:      settingString(s.Settings, "buttonText", ""),
		ButtonURL:       safeURL(settingString(s.Settings, "buttonUrl", "")),
	}
	if c.Title == "" {
		c.Title = t.Name
	}
	if c.Subtitle == "" {
		c.Subtitle = settingString(s.Settings, "subtitle", "")
	}
	if settingBool(s.Settings, "showAddress", true) {
		c.Address = t.Endpoint
	}
	return c
}

func renderHero(t Tenant, s *domain.Section) (template.HTML, error) {
	return execute(TypeHero, DecodeHero(t, s))
}

type statItem struct {
	Label string
	Value string
}

type statsContent struct {
	Title string
	Items []statItem
}

func renderStats(_ Tenant, s *domain.Section) (template.HTML, error) {
	c := statsContent{Title: s.Title}
	for _, item := range settingItems(s.Settings, "items") {
		label := settingString(item, "label", "")
		if label == "" {
			continue
		}
		c.Items = append(c.Items, statItem{Label: label, Value: settingString(item, "value", "-")})
	}
	return execute(TypeStats, c)
}

type featureItem struct {
	Title       string
	Description string
	Icon        string
}

type featuresContent struct {
	Title    string
	Subtitle string
	Items    []featureItem
}

func renderFeatures(_ Tenant, s *domain.Section) (template.HTML, error) {
	c := featuresContent{Title: s.Title, Subtitle: s.Subtitle}
	for _, item := range settingItems(s.Settings, "items") {
		title := settingString(item, "title", "")
		if title == "" {
			continue
		}
		c.Items = append(c.Items, featureItem{
			Title:       title,
			Description: settingString(item, "description", ""),
			Icon:        settingString(item, "icon", ""),
		})
	}
	return execute(TypeFeatures, c)
}

type galleryImage struct {
	URL     string
	Caption string
}

type galleryContent struct {
	Title   string
	Columns int
	Images  []galleryImage
}

func renderGallery(_ Tenant, s *domain.Section) (template.HTML, error) {
	c := galleryContent{
		Title:   s.Title,
		Columns: settingInt(s.Settings, "columns", defaultGalleryColumns),
	}
	if c.Columns < 1 || c.Columns > maxGalleryColumns {
		c.Columns = defaultGalleryColumns
	}
	for _, item := range settingItems(s.Settings, "images") {
		u := safeURL(settingString(item, "url", ""))
		if u == "" {
			continue
		}
		c.Images = append(c.Images, galleryImage{URL: u, Caption: settingString(item, "caption", "")})
	}
	return execute(TypeGallery, c)
}
