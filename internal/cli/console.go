package cli

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"programme-studio/internal/authoring"
	"programme-studio/internal/notify"
	"programme-studio/internal/programme"
)

type consoleMode int

const (
	consoleModeBrowse consoleMode = iota
	consoleModeWizard
	consoleModeDeleteConfirm
	consoleModePreview
)

const (
	consoleTickInterval = 250 * time.Millisecond
	consoleEventBuffer  = 32
)

// programmeService is the read/delete side of the Programme API used by the console.
type programmeService interface {
	FetchProgrammes(ctx context.Context) ([]programme.Programme, error)
	FetchProgrammeStats(ctx context.Context) (programme.Stats, error)
	FetchProgrammeForEdit(ctx context.Context, id string) (programme.Programme, error)
	FetchSecureProgrammeByID(ctx context.Context, id string) (programme.SecureProgramme, error)
	DeleteProgramme(ctx context.Context, id string) error
}

type consoleModel struct {
	api        programmeService
	workflow   *authoring.Workflow
	toasts     *notify.Toasts
	events     <-chan authoring.Event
	categories []string
	forget     func(programmeID string)

	programmes []programme.Programme
	stats      programme.Stats
	loading    bool
	cursor     int
	width      int
	height     int
	mode       consoleMode
	wizard     *wizardForm

	confirmDelete *programme.Programme
	preview       *programme.SecureProgramme
	statusMessage string
	spinner       spinner.Model
	bar           progress.Model
	fatalErr      error
}

type consoleLoadedMsg struct {
	programmes []programme.Programme
	stats      programme.Stats
	err        error
}

type consoleEventMsg struct {
	event authoring.Event
}

type consoleTickMsg time.Time

type consoleEditLoadedMsg struct {
	programme programme.Programme
	err       error
}

type consoleDeleteMsg struct {
	id    string
	title string
	err   error
}

type consolePreviewMsg struct {
	secure programme.SecureProgramme
	err    error
}

type wizardSubmitMsg struct {
	err error
}

var (
	consoleTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	consoleMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	consoleErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	consoleOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	consoleInfoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	consolePanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	consoleSelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
)

func runConsole(args []string) error {
	fs, common := newFlagSet("console")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !stdinIsTTY() {
		return errors.New("console requires an interactive terminal (TTY)")
	}

	rt, err := newRuntime(context.Background(), runtimeOptions{configPath: common.configPath(), logToFile: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	toasts := notify.NewToasts(notify.DefaultToastTTL)
	events := make(chan authoring.Event, consoleEventBuffer)
	wf, err := rt.newWorkflow(toasts, forwardEvents(events), nil)
	if err != nil {
		return err
	}
	forget := func(id string) {
		if _, err := rt.journal.Forget(id); err != nil {
			rt.log.Warn().Err(err).Str("programme_id", id).Msg("could not prune draft journal")
		}
	}

	m := newConsoleModel(rt.client, wf, toasts, events, rt.settings.Categories, forget)
	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "tty") {
			return errors.New("console requires an interactive terminal (TTY)")
		}
		return err
	}
	if fm, ok := finalModel.(consoleModel); ok {
		return fm.fatalErr
	}
	return nil
}

// forwardEvents never blocks the workflow; events are dropped once the buffer is full.
func forwardEvents(ch chan<- authoring.Event) authoring.EventSink {
	return authoring.SinkFunc(func(e authoring.Event) {
		select {
		case ch <- e:
		default:
		}
	})
}

func newConsoleModel(api programmeService, wf *authoring.Workflow, toasts *notify.Toasts, events <-chan authoring.Event, categories []string, forget func(string)) consoleModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = consoleInfoStyle
	if forget == nil {
		forget = func(string) {}
	}
	return consoleModel{
		api:        api,
		workflow:   wf,
		toasts:     toasts,
		events:     events,
		categories: categories,
		forget:     forget,
		loading:    true,
		mode:       consoleModeBrowse,
		spinner:    sp,
		bar:        progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

func (m consoleModel) Init() tea.Cmd {
	return tea.Batch(loadProgrammesCmd(m.api), listenEventsCmd(m.events), consoleTick(), m.spinner.Tick)
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = clampInt(m.width-30, 10, 60)
		if m.wizard != nil {
			m.wizard.resize(m.width)
		}
		return m, nil
	case consoleTickMsg:
		return m, consoleTick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case consoleLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.statusMessage = "error: " + msg.err.Error()
			return m, nil
		}
		m.programmes = msg.programmes
		m.stats = msg.stats
		m.cursor = clampInt(m.cursor, 0, max(m.totalBrowseRows()-1, 0))
		return m, nil
	case consoleEventMsg:
		return m.handleEvent(msg.event)
	case consoleEditLoadedMsg:
		if msg.err != nil {
			m.statusMessage = "error: " + msg.err.Error()
			return m, nil
		}
		return m.openWizard(&msg.programme)
	case consoleDeleteMsg:
		m.mode = consoleModeBrowse
		m.confirmDelete = nil
		if msg.err != nil {
			m.statusMessage = "error: " + msg.err.Error()
			return m, nil
		}
		m.forget(msg.id)
		m.statusMessage = "programme deleted: " + msg.title
		m.loading = true
		return m, loadProgrammesCmd(m.api)
	case consolePreviewMsg:
		if msg.err != nil {
			m.statusMessage = "error: " + msg.err.Error()
			return m, nil
		}
		m.preview = &msg.secure
		m.mode = consoleModePreview
		return m, nil
	case wizardSubmitMsg:
		return m.handleSubmitResult(msg.err)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch m.mode {
	case consoleModeBrowse:
		return m.updateBrowse(keyMsg)
	case consoleModeWizard:
		return m.updateWizard(keyMsg)
	case consoleModeDeleteConfirm:
		return m.updateDeleteConfirm(keyMsg)
	case consoleModePreview:
		return m.updatePreview(keyMsg)
	default:
		return m, nil
	}
}

func (m consoleModel) handleEvent(e authoring.Event) (tea.Model, tea.Cmd) {
	next := listenEventsCmd(m.events)
	if e.Kind == authoring.EventDetailsSaved {
		m.loading = true
		return m, tea.Batch(next, loadProgrammesCmd(m.api))
	}
	return m, next
}

func (m consoleModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	total := m.totalBrowseRows()
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < total-1 {
			m.cursor++
		}
		return m, nil
	case "n":
		return m.openWizard(nil)
	case "r":
		m.loading = true
		m.statusMessage = ""
		return m, loadProgrammesCmd(m.api)
	case "enter", "e":
		if m.isActionCursor() {
			switch m.selectedActionIndex() {
			case consoleActionNew:
				return m.openWizard(nil)
			case consoleActionRefresh:
				m.loading = true
				m.statusMessage = ""
				return m, loadProgrammesCmd(m.api)
			}
			return m, nil
		}
		p, ok := m.selectedProgramme()
		if !ok {
			m.statusMessage = "no programmes yet"
			return m, nil
		}
		m.statusMessage = "loading " + p.Title + "..."
		return m, loadForEditCmd(m.api, p.ID)
	case "d":
		p, ok := m.selectedProgramme()
		if !ok {
			m.statusMessage = "select a programme to delete"
			return m, nil
		}
		m.mode = consoleModeDeleteConfirm
		m.confirmDelete = &p
		return m, nil
	case "p":
		p, ok := m.selectedProgramme()
		if !ok {
			m.statusMessage = "select a programme to preview"
			return m, nil
		}
		return m, previewCmd(m.api, p.ID)
	}
	return m, nil
}

func (m consoleModel) updateDeleteConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc", "n":
		m.mode = consoleModeBrowse
		m.confirmDelete = nil
		m.statusMessage = "delete cancelled"
		return m, nil
	case "y", "enter":
		if m.confirmDelete == nil {
			m.mode = consoleModeBrowse
			m.statusMessage = "delete cancelled"
			return m, nil
		}
		return m, deleteProgrammeCmd(m.api, *m.confirmDelete)
	}
	return m, nil
}

func (m consoleModel) updatePreview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc", "q", "enter", "p":
		m.mode = consoleModeBrowse
		m.preview = nil
	}
	return m, nil
}

func (m consoleModel) selectedProgramme() (programme.Programme, bool) {
	if m.cursor < 0 || m.cursor >= len(m.programmes) {
		return programme.Programme{}, false
	}
	return m.programmes[m.cursor], true
}

func consoleTick() tea.Cmd {
	return tea.Tick(consoleTickInterval, func(t time.Time) tea.Msg { return consoleTickMsg(t) })
}

func listenEventsCmd(ch <-chan authoring.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return consoleEventMsg{event: e}
	}
}

func loadProgrammesCmd(api programmeService) tea.Cmd {
	return func() tea.Msg {
		var msg consoleLoadedMsg
		g, ctx := errgroup.WithContext(context.Background())
		g.Go(func() error {
			var err error
			msg.programmes, err = api.FetchProgrammes(ctx)
			return err
		})
		g.Go(func() error {
			var err error
			msg.stats, err = api.FetchProgrammeStats(ctx)
			return err
		})
		msg.err = g.Wait()
		return msg
	}
}

func loadForEditCmd(api programmeService, id string) tea.Cmd {
	return func() tea.Msg {
		p, err := api.FetchProgrammeForEdit(context.Background(), id)
		return consoleEditLoadedMsg{programme: p, err: err}
	}
}

func deleteProgrammeCmd(api programmeService, p programme.Programme) tea.Cmd {
	return func() tea.Msg {
		err := api.DeleteProgramme(context.Background(), p.ID)
		return consoleDeleteMsg{id: p.ID, title: p.Title, err: err}
	}
}

func previewCmd(api programmeService, id string) tea.Cmd {
	return func() tea.Msg {
		secure, err := api.FetchSecureProgrammeByID(context.Background(), id)
		return consolePreviewMsg{secure: secure, err: err}
	}
}

func submitDetailsCmd(wf *authoring.Workflow) tea.Cmd {
	return func() tea.Msg {
		return wizardSubmitMsg{err: wf.SubmitDetails(context.Background())}
	}
}
