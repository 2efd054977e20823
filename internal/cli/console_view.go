package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"programme-studio/internal/authoring"
	"programme-studio/internal/media"
	"programme-studio/internal/notify"
)

const (
	consoleActionNew = iota
	consoleActionRefresh
)

var consoleActions = []string{
	"New Programme",
	"Refresh",
}

func (m consoleModel) totalBrowseRows() int {
	return len(m.programmes) + len(consoleActions)
}

func (m consoleModel) isActionCursor() bool {
	return m.cursor >= len(m.programmes)
}

func (m consoleModel) selectedActionIndex() int {
	return clampInt(m.cursor-len(m.programmes), 0, len(consoleActions)-1)
}

func (m consoleModel) View() string {
	if m.fatalErr != nil {
		return consoleErrorStyle.Render("fatal: " + m.fatalErr.Error())
	}
	if m.width <= 0 {
		m.width = 100
	}
	if m.height <= 0 {
		m.height = 30
	}

	var body string
	switch m.mode {
	case consoleModeWizard:
		body = m.viewWizard()
	case consoleModeDeleteConfirm:
		body = m.viewDeleteConfirm()
	case consoleModePreview:
		body = m.viewPreview()
	default:
		body = m.viewBrowse()
	}
	if toasts := m.renderToasts(); toasts != "" {
		return lipgloss.JoinVertical(lipgloss.Left, body, toasts)
	}
	return body
}

func (m consoleModel) viewBrowse() string {
	header := consoleTitleStyle.Render("programme-studio console") + "\n" +
		consoleMutedStyle.Render("up/down: move | enter/e: edit | n: new | d: delete | p: preview | r: refresh | q: quit")

	if m.width < 90 {
		list := m.renderListPanel(m.width)
		actions := m.renderActionsPanel(m.width)
		details := m.renderDetailsPanel(m.width)
		body := lipgloss.JoinVertical(lipgloss.Left, list, actions, details)
		return lipgloss.JoinVertical(lipgloss.Left, header, body, m.renderStatusLine(m.width))
	}

	leftW := clampInt(m.width/2, 34, 60)
	rightW := m.width - leftW - 1
	left := lipgloss.JoinVertical(lipgloss.Left, m.renderListPanel(leftW), m.renderActionsPanel(leftW))
	right := lipgloss.JoinVertical(lipgloss.Left, m.renderStatsPanel(rightW), m.renderDetailsPanel(rightW))
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.renderStatusLine(m.width))
}

func (m consoleModel) renderListPanel(width int) string {
	total := len(m.programmes)
	maxRows := clampInt(m.height-16, 4, 18)
	start, end := listWindow(total, clampInt(m.cursor, 0, max(total-1, 0)), maxRows)

	lines := make([]string, 0, maxRows+3)
	lines = append(lines, "Programmes   [P] published  [F] featured")
	lines = append(lines, "")
	if m.loading {
		lines = append(lines, m.spinner.View()+" loading...")
	}
	if total == 0 && !m.loading {
		lines = append(lines, consoleMutedStyle.Render("No programmes yet."))
		lines = append(lines, consoleMutedStyle.Render("Press n to create one."))
	}
	if start > 0 {
		lines = append(lines, consoleMutedStyle.Render("..."))
	}
	for i := start; i < end; i++ {
		p := m.programmes[i]
		line := fmt.Sprintf("[%s%s] %s", markIf(p.IsPublished, "P"), markIf(p.IsFeatured, "F"), p.Title)
		line = fitWidth(line, max(width-6, 10))
		if i == m.cursor {
			line = consoleSelStyle.Width(max(width-4, 6)).Render(line)
		}
		lines = append(lines, line)
	}
	if end < total {
		lines = append(lines, consoleMutedStyle.Render("..."))
	}
	return consolePanelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m consoleModel) renderActionsPanel(width int) string {
	lines := make([]string, 0, len(consoleActions)+2)
	lines = append(lines, "Actions")
	lines = append(lines, "")
	for i, action := range consoleActions {
		row := fitWidth("[>] "+action, max(width-6, 10))
		if m.isActionCursor() && m.selectedActionIndex() == i {
			row = consoleSelStyle.Width(max(width-4, 6)).Render(row)
		}
		lines = append(lines, row)
	}
	return consolePanelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m consoleModel) renderStatsPanel(width int) string {
	line := fmt.Sprintf("total %d | published %d | drafts %d | featured %d",
		m.stats.TotalProgrammes, m.stats.PublishedProgrammes, m.stats.DraftProgrammes, m.stats.FeaturedProgrammes)
	return consolePanelStyle.Width(width).Render(fitWidth(line, max(width-6, 12)))
}

func (m consoleModel) renderDetailsPanel(width int) string {
	lines := []string{}
	if m.isActionCursor() {
		switch m.selectedActionIndex() {
		case consoleActionNew:
			lines = append(lines, "New Programme", "")
			lines = append(lines, "Step 1 uploads the video in the background.")
			lines = append(lines, "Step 2 collects details while it uploads.")
		case consoleActionRefresh:
			lines = append(lines, "Refresh", "", "Reload programmes and totals.")
		}
	} else if p, ok := m.selectedProgramme(); ok {
		lines = append(lines, "Programme Details", "")
		lines = append(lines, programmeDetails(p)...)
	} else {
		lines = append(lines, "No programme selected")
	}

	for i := range lines {
		lines[i] = fitWidth(lines[i], max(width-6, 12))
	}
	return consolePanelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m consoleModel) renderStatusLine(width int) string {
	msg := strings.TrimSpace(m.statusMessage)
	if msg == "" {
		msg = "Tip: uploads keep running while you fill in the details."
	}
	style := consoleMutedStyle
	lower := strings.ToLower(msg)
	if strings.HasPrefix(lower, "error:") {
		style = consoleErrorStyle
	} else if strings.HasPrefix(lower, "programme ") {
		style = consoleOKStyle
	}
	return style.Width(width).Render(fitWidth(msg, max(width-2, 10)))
}

func (m consoleModel) renderToasts() string {
	if m.toasts == nil {
		return ""
	}
	active := m.toasts.Active()
	if len(active) == 0 {
		return ""
	}
	lines := make([]string, 0, len(active))
	for _, t := range active {
		text := t.Text
		if t.Icon != "" {
			text = t.Icon + " " + text
		}
		text = fitWidth(text, max(m.width-4, 20))
		switch t.Level {
		case notify.LevelError:
			lines = append(lines, consoleErrorStyle.Render(text))
		case notify.LevelSuccess:
			lines = append(lines, consoleOKStyle.Render(text))
		default:
			lines = append(lines, consoleInfoStyle.Render(text))
		}
	}
	return strings.Join(lines, "\n")
}

func (m consoleModel) viewDeleteConfirm() string {
	title := ""
	if m.confirmDelete != nil {
		title = m.confirmDelete.Title
	}
	text := fmt.Sprintf(
		"Delete programme '%s'?\n\nThe programme and its video are removed from the service.\nThis cannot be undone.\n\nPress y or Enter to confirm, n or Esc to cancel.",
		title,
	)
	boxW := clampInt(m.width-8, 36, 80)
	boxH := clampInt(m.height-6, 9, 14)
	panel := consolePanelStyle.Width(boxW).Height(boxH).Render(text)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
}

func (m consoleModel) viewPreview() string {
	if m.preview == nil {
		return ""
	}
	lines := []string{
		consoleTitleStyle.Render("Secure playback"),
		"",
		kv("title", m.preview.Programme.Title),
		kv("url", m.preview.PlaybackURL),
	}
	if !m.preview.ExpiresAt.IsZero() {
		lines = append(lines, kv("expires", m.preview.ExpiresAt.Local().Format(time.RFC1123)))
	}
	lines = append(lines, "", consoleMutedStyle.Render("Press Esc to return."))
	boxW := clampInt(m.width-8, 40, 100)
	return consolePanelStyle.Width(boxW).Render(strings.Join(lines, "\n"))
}

// renderUploadStatus describes the background upload of the open session.
func (m consoleModel) renderUploadStatus(st authoring.Status) string {
	if st.EditMode {
		return consoleMutedStyle.Render("editing existing programme; the video is unchanged")
	}
	switch st.Upload {
	case authoring.UploadPending:
		snap := st.Progress
		if snap.Total <= 0 || snap.Done == 0 {
			return m.spinner.View() + " uploading video..."
		}
		detail := media.FormatBytes(snap.Done) + " / " + media.FormatBytes(snap.Total)
		if snap.RateMBps > 0 {
			detail += " | " + strconv.FormatFloat(snap.RateMBps, 'f', 1, 64) + " MB/s"
		}
		if snap.ETA != "" {
			detail += " | eta " + snap.ETA
		}
		return m.spinner.View() + " " + m.bar.ViewAs(snap.Fraction) + " " + detail
	case authoring.UploadSucceeded:
		return consoleOKStyle.Render("video uploaded")
	case authoring.UploadFailed:
		return consoleErrorStyle.Render("upload failed: " + st.UploadError)
	default:
		return consoleMutedStyle.Render("video not uploaded yet")
	}
}
