// Package sidebar renders the collapsible dashboard sidebar that holds the analysis trigger.
package sidebar

import (
	"bytes"
	"html/template"
)

// Config captures the markup and style hooks required to render the sidebar.
type Config struct {
	ElementID      string
	BaseClass      string
	SummaryLabel   string
	Heading        string
	HeadingClass   string
	Divider        bool
	FormAction     string
	FormMethod     string
	TriggerName    string
	TriggerValue   string
	TriggerLabel   string
	TriggerClass   string
	Expanded       bool
	TriggerPressed bool
}

var sidebarTemplate = template.Must(template.New("sidebar").Parse(`<details id="{{.ElementID}}" class="{{.BaseClass}}"{{if .Expanded}} open{{end}}>
  <summary>{{.SummaryLabel}}</summary>
  <h3 class="{{.HeadingClass}}">{{.Heading}}</h3>
  {{if .Divider}}<hr>{{end}}
  <form action="{{.FormAction}}" method="{{.FormMethod}}">
    <button type="submit" name="{{.TriggerName}}" value="{{.TriggerValue}}" class="{{.TriggerClass}}" aria-pressed="{{.TriggerPressed}}">{{.TriggerLabel}}</button>
  </form>
</details>`))

// Render returns the sidebar HTML for the provided configuration.
func Render(config Config) (template.HTML, error) {
	var buffer bytes.Buffer
	if err := sidebarTemplate.Execute(&buffer, config); err != nil {
		return "", err
	}
	return template.HTML(buffer.String()), nil
}
