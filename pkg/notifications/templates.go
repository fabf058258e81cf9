package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

//go:embed templates
var templateFS embed.FS

const (
	TemplateMembershipRequest  = "group-manager"
	TemplateMembershipApproval = "group-member"
	TemplateStoryMapInvite     = "story-map-invite"
	TemplateProjectInvite      = "project-invite"
)

const defaultTemplateLanguage = "en"

// Rendered is a template ready to send. The subject is the template's first
// level one heading.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

type Renderer struct {
	md        goldmark.Markdown
	templates map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{md: goldmark.New(), templates: map[string]*template.Template{}}
	langs, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, err
	}
	for _, lang := range langs {
		files, err := templateFS.ReadDir("templates/" + lang.Name())
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			path := "templates/" + lang.Name() + "/" + f.Name()
			raw, err := templateFS.ReadFile(path)
			if err != nil {
				return nil, err
			}
			key := lang.Name() + "/" + strings.TrimSuffix(f.Name(), ".md")
			tmpl, err := template.New(key).Option("missingkey=error").Parse(string(raw))
			if err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
			r.templates[key] = tmpl
		}
	}
	return r, nil
}

func (r *Renderer) lookup(name, language string) (*template.Template, error) {
	lang := defaultTemplateLanguage
	if len(language) >= 2 {
		lang = strings.ToLower(language[:2])
	}
	if t, ok := r.templates[lang+"/"+name]; ok {
		return t, nil
	}
	if t, ok := r.templates[defaultTemplateLanguage+"/"+name]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("unknown email template %q", name)
}

// Render fills the named template for language, falling back to English.
func (r *Renderer) Render(name, language string, data interface{}) (*Rendered, error) {
	tmpl, err := r.lookup(name, language)
	if err != nil {
		return nil, err
	}
	var src bytes.Buffer
	if err := tmpl.Execute(&src, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	source := src.Bytes()

	doc := r.md.Parser().Parse(text.NewReader(source))
	out := &Rendered{Text: string(source)}
	if first := doc.FirstChild(); first != nil {
		if h, ok := first.(*ast.Heading); ok && h.Level == 1 {
			out.Subject = headingText(h, source)
			doc.RemoveChild(doc, h)
			if lines := h.Lines(); lines.Len() > 0 {
				out.Text = strings.TrimSpace(string(source[lines.At(lines.Len()-1).Stop:]))
			}
		}
	}

	var html bytes.Buffer
	if err := r.md.Renderer().Render(&html, source, doc); err != nil {
		return nil, err
	}
	out.HTML = html.String()
	return out, nil
}

func headingText(h *ast.Heading, source []byte) string {
	var sb strings.Builder
	lines := h.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(source))
	}
	return strings.TrimSpace(sb.String())
}
