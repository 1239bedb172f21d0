package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/malonaz/aichat/cli/tui/styles"
)

// Field names of the auth forms.
const (
	fieldDisplayName = "displayName"
	fieldEmail       = "email"
	fieldPassword    = "password"
)

type formField struct {
	name  string
	label string
	input textinput.Model
}

// authForm is a minimal required-fields form.
type authForm struct {
	title    string
	subtitle string
	fields   []*formField
	focused  int
	// Password fields are masked unless set.
	showPassword bool
}

func newField(name, label, placeholder string) *formField {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = ""
	ti.CharLimit = 256
	ti.Width = styles.FormInputWidth
	if name == fieldPassword {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return &formField{name: name, label: label, input: ti}
}

func newSignInForm() *authForm {
	return &authForm{
		title:    "Welcome Back",
		subtitle: "Sign in to continue to your chat",
		fields: []*formField{
			newField(fieldEmail, "Email", "Email address"),
			newField(fieldPassword, "Password", "Password"),
		},
	}
}

func newSignUpForm() *authForm {
	return &authForm{
		title:    "Create Account",
		subtitle: "Join us and start chatting",
		fields: []*formField{
			newField(fieldDisplayName, "Name", "Full name"),
			newField(fieldEmail, "Email", "Email address"),
			newField(fieldPassword, "Password", "Password"),
		},
	}
}

// value returns the value of a field. Only the password is kept verbatim.
func (f *authForm) value(name string) string {
	for _, field := range f.fields {
		if field.name != name {
			continue
		}
		if name == fieldPassword {
			return field.input.Value()
		}
		return strings.TrimSpace(field.input.Value())
	}
	return ""
}

// missing returns the label of the first empty field.
func (f *authForm) missing() (string, bool) {
	for _, field := range f.fields {
		if f.value(field.name) == "" {
			return field.label, true
		}
	}
	return "", false
}

func (f *authForm) focus() tea.Cmd {
	for i, field := range f.fields {
		if i != f.focused {
			field.input.Blur()
		}
	}
	return f.fields[f.focused].input.Focus()
}

func (f *authForm) move(delta int) tea.Cmd {
	f.focused = (f.focused + delta + len(f.fields)) % len(f.fields)
	return f.focus()
}

func (f *authForm) toggleShowPassword() {
	f.showPassword = !f.showPassword
	for _, field := range f.fields {
		if field.name != fieldPassword {
			continue
		}
		if f.showPassword {
			field.input.EchoMode = textinput.EchoNormal
		} else {
			field.input.EchoMode = textinput.EchoPassword
		}
	}
}

// reset clears every field and focuses the first one.
func (f *authForm) reset() tea.Cmd {
	for _, field := range f.fields {
		field.input.Reset()
	}
	f.focused = 0
	return f.focus()
}

func (f *authForm) update(msg tea.Msg) tea.Cmd {
	field := f.fields[f.focused]
	var cmd tea.Cmd
	field.input, cmd = field.input.Update(msg)
	return cmd
}

func (f *authForm) view(errorMessage, footer string, busy bool, spinner string) string {
	var sb strings.Builder
	sb.WriteString(styles.FormTitleStyle.Render(f.title))
	sb.WriteString("\n")
	sb.WriteString(styles.HelpStyle.Render(f.subtitle))
	sb.WriteString("\n\n")
	for i, field := range f.fields {
		labelStyle := styles.LabelStyle
		if i == f.focused {
			labelStyle = styles.FocusedLabelStyle
		}
		sb.WriteString(labelStyle.Render(field.label))
		sb.WriteString("\n")
		sb.WriteString(field.input.View())
		sb.WriteString("\n\n")
	}
	if errorMessage != "" {
		sb.WriteString(styles.ErrorStyle.Render(errorMessage))
		sb.WriteString("\n\n")
	}
	if busy {
		sb.WriteString(spinner + " Please wait...")
		sb.WriteString("\n\n")
	}
	sb.WriteString(styles.HelpStyle.Render(footer))
	return styles.FormStyle.Render(sb.String())
}

// centered places content in the middle of the screen.
func (m *Model) centered(content string) string {
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}
