package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"programme-studio/internal/authoring"
	"programme-studio/internal/media"
	"programme-studio/internal/programme"
)

type wizardFieldKind int

const (
	wizardFieldText wizardFieldKind = iota
	wizardFieldFile
	wizardFieldBool
	wizardFieldCategories
)

type wizardField struct {
	Key   string
	Label string
	Help  string
	Kind  wizardFieldKind
}

var (
	videoStepFields = []wizardField{
		{Key: "title", Label: "Title", Help: "Shown to viewers; required", Kind: wizardFieldText},
		{Key: "video", Label: "Video File", Help: "Path to a video file; uploading starts when you continue", Kind: wizardFieldFile},
	}
	detailsStepFields = []wizardField{
		{Key: "description", Label: "Description", Help: "Optional", Kind: wizardFieldText},
		{Key: "categories", Label: "Categories", Help: "left/right: move | space: toggle", Kind: wizardFieldCategories},
		{Key: "thumbnail", Label: "Thumbnail File", Help: "Optional image path; empty clears it", Kind: wizardFieldFile},
		{Key: "featured", Label: "Featured", Help: "space or y/n", Kind: wizardFieldBool},
		{Key: "published", Label: "Published", Help: "space or y/n", Kind: wizardFieldBool},
	}
)

// wizardForm is the view state of the open workflow session. Draft values
// live in the workflow; text fields are buffered here until committed.
type wizardForm struct {
	Title          string
	Edit           bool
	Phase          authoring.Phase
	Fields         []wizardField
	Index          int
	Input          textinput.Model
	Values         map[string]string
	CategoryCursor int
	Error          string
	Submitting     bool
}

func newWizardForm(st authoring.Status, width int) *wizardForm {
	f := &wizardForm{
		Title:  "New Programme",
		Edit:   st.EditMode,
		Values: map[string]string{},
	}
	if st.EditMode {
		f.Title = "Edit Programme: " + st.Draft.Title
	}
	f.Values["title"] = st.Draft.Title
	f.Values["description"] = st.Draft.Description
	if st.Draft.Video != nil {
		f.Values["video"] = st.Draft.Video.Path
	}
	if st.Draft.Thumbnail != nil {
		f.Values["thumbnail"] = st.Draft.Thumbnail.Path
	}

	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 1024
	f.Input = input
	f.resize(width)
	f.setPhase(st.Phase)
	f.Input.Focus()
	return f
}

func (f *wizardForm) setPhase(phase authoring.Phase) {
	f.Phase = phase
	f.Index = 0
	f.Error = ""
	if phase == authoring.PhaseCollectingDetails {
		f.Fields = detailsStepFields
	} else {
		f.Fields = videoStepFields
	}
	f.loadFieldIntoInput()
}

func (f *wizardForm) resize(width int) {
	f.Input.Width = clampInt(width-8, 20, 120)
}

func (f *wizardForm) currentField() wizardField {
	if len(f.Fields) == 0 {
		return wizardField{}
	}
	f.Index = clampInt(f.Index, 0, len(f.Fields)-1)
	return f.Fields[f.Index]
}

func (f *wizardForm) isTextField() bool {
	kind := f.currentField().Kind
	return kind == wizardFieldText || kind == wizardFieldFile
}

func (f *wizardForm) loadFieldIntoInput() {
	if !f.isTextField() {
		f.Input.SetValue("")
		return
	}
	f.Input.SetValue(f.Values[f.currentField().Key])
	f.Input.CursorEnd()
}

// commit pushes the current text field into the workflow.
func (f *wizardForm) commit(wf *authoring.Workflow) error {
	if !f.isTextField() {
		return nil
	}
	key := f.currentField().Key
	value := strings.TrimSpace(f.Input.Value())
	f.Values[key] = value

	switch key {
	case "title":
		return wf.SetTitle(value)
	case "description":
		return wf.SetDescription(value)
	case "video":
		if value == "" {
			return nil
		}
		if cur := wf.Status().Draft.Video; cur != nil && cur.Path == value {
			return nil
		}
		video, err := media.Open(value)
		if err != nil {
			return err
		}
		return wf.SelectVideo(video)
	case "thumbnail":
		if value == "" {
			return wf.ClearThumbnail()
		}
		if cur := wf.Status().Draft.Thumbnail; cur != nil && cur.Path == value {
			return nil
		}
		thumb, err := media.Open(value)
		if err != nil {
			return err
		}
		return wf.SelectThumbnail(thumb)
	}
	return nil
}

func (m consoleModel) openWizard(edit *programme.Programme) (tea.Model, tea.Cmd) {
	if err := m.workflow.Open(edit); err != nil {
		m.statusMessage = "error: " + authoring.UserMessage(err)
		return m, nil
	}
	m.wizard = newWizardForm(m.workflow.Status(), m.width)
	m.mode = consoleModeWizard
	m.statusMessage = ""
	return m, nil
}

func (m consoleModel) closeWizard(message string) consoleModel {
	m.mode = consoleModeBrowse
	m.wizard = nil
	m.statusMessage = message
	return m
}

func (m consoleModel) updateWizard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.wizard == nil {
		m.mode = consoleModeBrowse
		return m, nil
	}
	form := m.wizard
	wf := m.workflow
	key := msg.String()

	if form.Submitting || wf.Status().Saving {
		if key == "esc" || key == "ctrl+c" {
			form.Error = "Programme details are still being saved"
		}
		return m, nil
	}

	switch key {
	case "esc", "ctrl+c":
		if err := wf.Close(); err != nil {
			form.Error = authoring.UserMessage(err)
			return m, nil
		}
		return m.closeWizard("wizard closed"), nil
	case "up", "shift+tab":
		if !m.commitWizardField() {
			return m, nil
		}
		if form.Index > 0 {
			form.Index--
		}
		form.loadFieldIntoInput()
		return m, nil
	case "down", "tab":
		if !m.commitWizardField() {
			return m, nil
		}
		if form.Index < len(form.Fields)-1 {
			form.Index++
		}
		form.loadFieldIntoInput()
		return m, nil
	case "ctrl+b":
		if form.Edit || form.Phase != authoring.PhaseCollectingDetails {
			return m, nil
		}
		if !m.commitWizardField() {
			return m, nil
		}
		if err := wf.GoBack(); err != nil {
			form.Error = authoring.UserMessage(err)
			return m, nil
		}
		form.setPhase(authoring.PhaseCollectingVideo)
		return m, nil
	case "enter":
		if !m.commitWizardField() {
			return m, nil
		}
		if form.Index < len(form.Fields)-1 {
			form.Index++
			form.loadFieldIntoInput()
			return m, nil
		}
		return m.proceedWizard()
	case "ctrl+s":
		if !m.commitWizardField() {
			return m, nil
		}
		return m.proceedWizard()
	}

	switch form.currentField().Kind {
	case wizardFieldBool:
		m.updateBoolField(key)
		return m, nil
	case wizardFieldCategories:
		m.updateCategoriesField(key)
		return m, nil
	}

	var cmd tea.Cmd
	form.Input, cmd = form.Input.Update(msg)
	form.Values[form.currentField().Key] = form.Input.Value()
	return m, cmd
}

// commitWizardField reports whether the form may move on.
func (m consoleModel) commitWizardField() bool {
	if err := m.wizard.commit(m.workflow); err != nil {
		m.wizard.Error = authoring.UserMessage(err)
		return false
	}
	m.wizard.Error = ""
	return true
}

func (m consoleModel) proceedWizard() (tea.Model, tea.Cmd) {
	form := m.wizard
	if form.Phase == authoring.PhaseCollectingVideo && !form.Edit {
		if err := m.workflow.Advance(context.Background()); err != nil {
			form.Error = authoring.UserMessage(err)
			return m, nil
		}
		form.setPhase(authoring.PhaseCollectingDetails)
		return m, nil
	}
	form.Error = ""
	form.Submitting = true
	return m, submitDetailsCmd(m.workflow)
}

func (m consoleModel) handleSubmitResult(err error) (tea.Model, tea.Cmd) {
	if m.wizard == nil {
		return m, nil
	}
	m.wizard.Submitting = false
	if err != nil {
		m.wizard.Error = authoring.UserMessage(err)
		return m, nil
	}
	return m.closeWizard("programme saved"), nil
}

func (m consoleModel) updateBoolField(key string) {
	draft := m.workflow.Status().Draft
	field := m.wizard.currentField().Key
	current := draft.IsFeatured
	if field == "published" {
		current = draft.IsPublished
	}
	next := current
	switch key {
	case " ", "space", "left", "right", "h", "l":
		next = !current
	case "y":
		next = true
	case "n":
		next = false
	default:
		return
	}
	var err error
	if field == "published" {
		err = m.workflow.SetPublished(next)
	} else {
		err = m.workflow.SetFeatured(next)
	}
	if err != nil {
		m.wizard.Error = authoring.UserMessage(err)
	}
}

func (m consoleModel) updateCategoriesField(key string) {
	if len(m.categories) == 0 {
		return
	}
	form := m.wizard
	switch key {
	case "left", "h":
		if form.CategoryCursor > 0 {
			form.CategoryCursor--
		}
	case "right", "l":
		if form.CategoryCursor < len(m.categories)-1 {
			form.CategoryCursor++
		}
	case " ", "space":
		form.CategoryCursor = clampInt(form.CategoryCursor, 0, len(m.categories)-1)
		if err := m.workflow.ToggleCategory(m.categories[form.CategoryCursor]); err != nil {
			form.Error = authoring.UserMessage(err)
		}
	}
}

func (m consoleModel) viewWizard() string {
	form := m.wizard
	if form == nil {
		return ""
	}
	st := m.workflow.Status()

	step := "Step 1 of 2: Video"
	if form.Phase == authoring.PhaseCollectingDetails {
		step = "Step 2 of 2: Details"
	}
	if form.Edit {
		step = "Details"
	}
	header := consoleTitleStyle.Render(form.Title) + "  " + consoleMutedStyle.Render(step)
	hints := "tab/shift+tab or up/down: move | enter: next/continue | ctrl+s: save | esc: close"
	if form.Phase == authoring.PhaseCollectingDetails && !form.Edit {
		hints = "tab/shift+tab or up/down: move | enter: next/save | ctrl+s: save | ctrl+b: back | esc: close"
	}

	lines := make([]string, 0, len(form.Fields)+4)
	for i, f := range form.Fields {
		prefix := "  "
		if i == form.Index {
			prefix = "> "
		}
		line := fmt.Sprintf("%s%s: %s", prefix, f.Label, m.fieldDisplay(f, st, i == form.Index))
		lines = append(lines, fitWidth(line, max(m.width-6, 20)))
	}
	lines = append(lines, "", m.renderUploadStatus(st))

	curr := form.currentField()
	footer := ""
	if strings.TrimSpace(curr.Help) != "" {
		footer += "\n" + consoleMutedStyle.Render(curr.Help)
	}
	if form.isTextField() {
		footer += "\n" + form.Input.View()
	}
	if form.Submitting || st.Saving {
		footer += "\n" + m.spinner.View() + consoleMutedStyle.Render(" Saving...")
	}
	if strings.TrimSpace(form.Error) != "" {
		footer += "\n" + consoleErrorStyle.Render(form.Error)
	}

	panel := consolePanelStyle.Width(max(m.width-2, 40)).Render(strings.Join(lines, "\n") + "\n" + footer)
	return lipgloss.JoinVertical(lipgloss.Left, header, consoleMutedStyle.Render(hints), panel)
}

func (m consoleModel) fieldDisplay(f wizardField, st authoring.Status, active bool) string {
	switch f.Kind {
	case wizardFieldBool:
		if f.Key == "published" {
			return yesNo(st.Draft.IsPublished)
		}
		return yesNo(st.Draft.IsFeatured)
	case wizardFieldCategories:
		if len(m.categories) == 0 {
			return consoleMutedStyle.Render("(none configured)")
		}
		items := make([]string, 0, len(m.categories))
		for i, c := range m.categories {
			item := fmt.Sprintf("[%s] %s", markIf(lo.Contains(st.Draft.Categories, c), "x"), c)
			if active && i == m.wizard.CategoryCursor {
				item = consoleSelStyle.Render(item)
			}
			items = append(items, item)
		}
		return strings.Join(items, " ")
	case wizardFieldFile:
		v := strings.TrimSpace(m.wizard.Values[f.Key])
		if v == "" {
			return consoleMutedStyle.Render("(none)")
		}
		return v
	default:
		v := strings.TrimSpace(m.wizard.Values[f.Key])
		if v == "" {
			return consoleMutedStyle.Render("(empty)")
		}
		return v
	}
}
