package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/malonaz/aichat/cli/tui/styles"
)

// adjustTextareaHeight resizes the textarea based on content line count.
func (m *Model) adjustTextareaHeight() {
	content := m.textarea.Value()
	lineCount := strings.Count(content, "\n") + 1

	newHeight := lineCount
	if newHeight < styles.MinTextareaHeight {
		newHeight = styles.MinTextareaHeight
	}
	if newHeight > styles.MaxTextareaHeight {
		newHeight = styles.MaxTextareaHeight
	}

	if m.textarea.Height() != newHeight {
		m.textarea.SetHeight(newHeight)
		m.recalculateLayout()
	}
}

// mainWidth returns the width left of the sidebar.
func (m *Model) mainWidth() int {
	return max(styles.DefaultTextareaWidth/2, m.width-styles.SidebarFrameSize())
}

// recalculateLayout adjusts viewport and textarea dimensions based on current state.
func (m *Model) recalculateLayout() {
	if m.width == 0 || m.height == 0 {
		return
	}

	mainWidth := m.mainWidth()
	viewportHeight := m.height - lipgloss.Height(m.renderHeader())
	viewportHeight -= m.textarea.Height() + styles.TextAreaStyle.GetVerticalFrameSize()
	viewportHeight -= lipgloss.Height(m.renderHelp())
	if viewportHeight < styles.MinViewportHeight {
		viewportHeight = styles.MinViewportHeight
	}

	if err := m.renderer.SetWidth(mainWidth - styles.MessageHorizontalFrameSize()); err != nil {
		m.log.Error("resizing renderer", "error", err)
	}

	if !m.ready {
		m.viewport = viewport.New(mainWidth, viewportHeight)
		m.ready = true
	} else {
		m.viewport.Width = mainWidth
		m.viewport.Height = viewportHeight
	}
	m.textarea.SetWidth(mainWidth - styles.TextAreaStyle.GetHorizontalPadding() - styles.TextAreaStyle.GetHorizontalBorderSize())
	m.refreshViewport(false)
}

// refreshViewport renders the transcript into the viewport, scrolling to the bottom if asked.
func (m *Model) refreshViewport(toBottom bool) {
	if !m.ready || m.screen == nil {
		return
	}
	m.viewport.SetContent(m.renderMessages())
	if toBottom {
		m.viewport.GotoBottom()
	}
}
