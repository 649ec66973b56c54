package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var planTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t any, layout string) string {
			switch v := t.(type) {
			case time.Time:
				return v.Format(layout)
			case *time.Time:
				if v != nil {
					return v.Format(layout)
				}
			}
			return ""
		},
		"joinAreas": func(areas []string) string {
			return strings.Join(areas, ", ")
		},
	}

	templateContent, err := templateFS.ReadFile("templates/plan.html")
	if err != nil {
		// Fallback to built-in template if file not found
		planTemplate = template.Must(template.New("plan").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	planTemplate = template.Must(template.New("plan").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for plan template rendering
type TemplateData struct {
	PersonName           string
	VersionNumber        int
	CountersigningStatus string
	AgreementStatus      string
	AgreementDate        string
	AgreementNote        string
	UpdatedAt            time.Time
	Goals                []GoalInfo
	ProgressNotes        []NoteInfo
	IncludeNotes         bool
}

// RenderPlanHTML renders the plan template with provided data
func RenderPlanHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := planTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Plan for {{.PersonName}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .goal { background: #f5f5f5; padding: 1rem; margin: 1rem 0; border-left: 3px solid #333; }
  </style>
</head>
<body>
  <h1>Plan for {{.PersonName}}</h1>
  <div class="meta">Version {{.VersionNumber}} | {{.CountersigningStatus}} | {{.AgreementStatus}} | {{.UpdatedAt.Format "Jan 2, 2006"}}</div>
  {{range .Goals}}<div class="goal"><h3>{{.Title}}</h3><p>{{.Notes}}</p></div>{{end}}
</body>
</html>`
