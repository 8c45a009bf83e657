package view

import (
	"bytes"
	"fmt"
	"html/template"

	"dealdesk/internal/models"
)

type ActionKind string

const (
	ActionEdit   ActionKind = "edit"
	ActionDelete ActionKind = "delete"
)

// Action is a control bound to one deal.
type Action struct {
	Kind ActionKind `json:"kind"`
	ID   string     `json:"id"`
}

// Fragment is the display of one deal in the list.
type Fragment struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Stage  string `json:"stage"`
	Label  string `json:"label"`
	Edit   Action `json:"edit"`
	Delete Action `json:"delete"`
}

type List struct {
	Items []Fragment `json:"items"`
}

// Render projects a snapshot into fragments, keeping the store's order.
func Render(deals []*models.Deal) List {
	items := make([]Fragment, 0, len(deals))
	for _, d := range deals {
		if d == nil {
			continue
		}
		items = append(items, Fragment{
			ID:     d.ID,
			Name:   d.Name,
			Stage:  string(d.Stage),
			Label:  fmt.Sprintf("%s — %s", d.Name, d.Stage),
			Edit:   Action{Kind: ActionEdit, ID: d.ID},
			Delete: Action{Kind: ActionDelete, ID: d.ID},
		})
	}
	return List{Items: items}
}

// EmptyListText is shown instead of an empty list.
const EmptyListText = "No deals yet."

func (l List) Empty() bool {
	return len(l.Items) == 0
}

var listTemplate = template.Must(template.New("deals").Parse(`
{{- range .Items -}}
<div class="deal" data-id="{{ .ID }}">
  <strong>{{ .Name }}</strong> – <em>{{ .Stage }}</em><br/>
  <small>ID: {{ .ID }}</small>
  <div class="buttons">
    <button data-action="{{ .Edit.Kind }}" data-id="{{ .Edit.ID }}" class="edit-deal">Edit</button>
    <button data-action="{{ .Delete.Kind }}" data-id="{{ .Delete.ID }}" class="delete-deal">Delete</button>
  </div>
</div>
{{- else -}}
<p class="empty">{{ $.EmptyText }}</p>
{{- end -}}
`))

// HTML renders the list for the page. Every value is escaped.
func (l List) HTML() (template.HTML, error) {
	var buf bytes.Buffer
	data := struct {
		Items     []Fragment
		EmptyText string
	}{l.Items, EmptyListText}
	if err := listTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

type StageOption struct {
	Value    string `json:"value"`
	Selected bool   `json:"selected"`
}

// EditForm populates the editor dialog.
type EditForm struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Stage  string        `json:"stage"`
	Stages []StageOption `json:"stages"`
}

func NewEditForm(d *models.Deal) EditForm {
	return EditForm{
		ID:     d.ID,
		Name:   d.Name,
		Stage:  string(d.Stage),
		Stages: StageOptions(d.Stage),
	}
}

func StageOptions(selected models.Stage) []StageOption {
	all := models.Stages()
	out := make([]StageOption, 0, len(all))
	for _, s := range all {
		out = append(out, StageOption{Value: string(s), Selected: s == selected})
	}
	return out
}

// IdentityLine is the status text next to the sign-in controls.
func IdentityLine(identity *models.Identity) string {
	if identity == nil {
		return "Not signed in."
	}
	if identity.Email == "" {
		return fmt.Sprintf("Signed in as: %s", identity.DisplayName)
	}
	return fmt.Sprintf("Signed in as: %s (%s)", identity.DisplayName, identity.Email)
}
