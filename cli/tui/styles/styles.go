package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Layout constants
const (
	// Textarea
	MinTextareaHeight    = 3
	MaxTextareaHeight    = 12
	DefaultTextareaWidth = 80
	TextAreaPaddingLeft  = 1

	// Viewport
	MinViewportHeight = 1

	// Sidebar
	SidebarWidth = 32

	MessagePaddingLeft = 2

	// Forms
	FormWidth      = 50
	FormInputWidth = 40

	// Truncation
	TruncateSuffix = "…"
)

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#7C3AED") // Purple
	SecondaryColor = lipgloss.Color("#06B6D4") // Cyan
	AccentColor    = lipgloss.Color("#F59E0B") // Amber
	SuccessColor   = lipgloss.Color("#10B981") // Green
	ErrorColor     = lipgloss.Color("#EF4444") // Red
	MutedColor     = lipgloss.Color("#6B7280") // Gray
	TextColor      = lipgloss.Color("#F9FAFB") // Light gray
	DimTextColor   = lipgloss.Color("#9CA3AF") // Dim gray
	BorderColor    = lipgloss.Color("#4B5563")
	SelectedColor  = lipgloss.Color("#10B981")
)

// Title bar
var (
	TitleStyle = lipgloss.NewStyle().
			Background(PrimaryColor).
			Foreground(TextColor).
			Bold(true)
)

// Sidebar
var (
	SidebarStyle = lipgloss.NewStyle().
			Width(SidebarWidth).
			Border(lipgloss.RoundedBorder(), false, true, false, false).
			BorderForeground(BorderColor).
			PaddingRight(1)

	SidebarFocusedStyle = lipgloss.NewStyle().
				Inherit(SidebarStyle).
				BorderForeground(PrimaryColor)

	ChatItemStyle = lipgloss.NewStyle().
			Foreground(DimTextColor).
			PaddingLeft(1)

	ChatItemSelectedStyle = lipgloss.NewStyle().
				Foreground(SelectedColor).
				Bold(true).
				PaddingLeft(1)

	ChatItemDateStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				PaddingLeft(3)

	TimestampStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	NewChatStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)
)

// Messages.
var (
	messageStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder())

	UserMessageStyle = lipgloss.NewStyle().
				Inherit(messageStyle).
				BorderForeground(PrimaryColor).
				MarginLeft(10)

	AIMessageStyle = lipgloss.NewStyle().
			Inherit(messageStyle).
			BorderForeground(SecondaryColor).
			MarginRight(10)

	ThinkingStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Italic(true).
			PaddingLeft(MessagePaddingLeft)

	PlaceholderStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				Italic(true).
				PaddingLeft(MessagePaddingLeft)
)

// Forms
var (
	FormStyle = lipgloss.NewStyle().
			Width(FormWidth).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Padding(1, 2)

	FormTitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			MarginBottom(1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(DimTextColor)

	FocusedLabelStyle = lipgloss.NewStyle().
				Foreground(SecondaryColor).
				Bold(true)

	LinkStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Underline(true)
)

// Error
var (
	ErrorStyle = lipgloss.NewStyle().
		Foreground(ErrorColor).
		Bold(true)
)

// Input area
var (
	TextAreaStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		PaddingLeft(TextAreaPaddingLeft)
)

// Spinner
var (
	SpinnerStyle = lipgloss.NewStyle().
		Foreground(SecondaryColor)
)

// Help text
var (
	HelpStyle = lipgloss.NewStyle().
		Foreground(MutedColor).
		Italic(true)
)

// Confirmation dialog
var (
	ConfirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(AccentColor).
			Padding(1, 2)

	ConfirmTitleStyle = lipgloss.NewStyle().
				Foreground(AccentColor).
				Bold(true)
)

// MessageHorizontalFrameSize returns the horizontal frame size of AI messages.
func MessageHorizontalFrameSize() int {
	return AIMessageStyle.GetHorizontalFrameSize()
}

// SidebarFrameSize returns the horizontal space taken by the sidebar.
func SidebarFrameSize() int {
	return SidebarWidth + SidebarStyle.GetHorizontalFrameSize()
}

// Truncate truncates a string to maxLen characters with a suffix.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return TruncateSuffix
	}
	return string(runes[:maxLen-1]) + TruncateSuffix
}
