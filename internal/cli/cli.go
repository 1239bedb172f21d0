package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/buger/goterm"
	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/pkg/errors"
)

var (
	userColor      = color.New(color.FgWhite)
	aiColor        = color.New(color.FgCyan)
	titleColor     = color.New(color.FgMagenta, color.Bold)
	separatorColor = color.New(color.FgHiBlack)
	infoColor      = color.New(color.FgGreen)
	errorColor     = color.New(color.FgRed)
	promptColor    = color.New(color.FgHiBlue)
)

// Width returns the terminal width, 80 when unknown.
func Width() int {
	if w := goterm.Width(); w > 0 {
		return w
	}
	return 80
}

// Separator printed to cli.
func Separator() {
	separatorColor.Println(strings.Repeat("-", Width()))
}

// Title printed to cli.
func Title(text string, args ...any) {
	w := Width()
	title := "      " + fmt.Sprintf(text, args...) + "      "
	left := max(0, (w-len(title))/2)
	right := max(0, w-len(title)-left)
	titleColor.Println(strings.Repeat("-", left) + title + strings.Repeat("-", right))
}

// UserMessage printed to cli.
func UserMessage(text string) {
	userColor.Println("> " + strings.ReplaceAll(text, "\n", "\n> "))
}

// AIMessage printed to cli. The text is expected to be rendered already.
func AIMessage(text string) {
	aiColor.Println(text)
}

// Info printed to cli.
func Info(text string, args ...any) {
	infoColor.Printf(text+"\n", args...)
}

// Error printed to cli.
func Error(text string, args ...any) {
	errorColor.Printf(text+"\n", args...)
}

// PromptMessage reads a message. Lines are accumulated until Ctrl+J is pressed on a line.
func PromptMessage(historyFile string) (string, error) {
	done := false
	config := &readline.Config{
		Prompt:            promptColor.Sprint("> "),
		InterruptPrompt:   "^C",
		HistoryFile:       historyFile,
		HistorySearchFold: true,
		FuncFilterInputRune: func(r rune) (rune, bool) {
			if r == '\x0A' { // Ctrl + J
				done = true
			}
			return r, true
		},
	}
	rl, err := readline.NewEx(config)
	if err != nil {
		return "", errors.Wrap(err, "creating readline")
	}
	defer rl.Close()

	var lines []string
	for !done {
		line, err := rl.Readline()
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
		rl.SetPrompt("")
	}
	return strings.Join(lines, "\n"), nil
}

// Confirm asks a yes/no question.
func Confirm(question string) (bool, error) {
	confirm := false
	if err := survey.AskOne(&survey.Confirm{Message: question}, &confirm); err != nil {
		return false, errors.Wrap(err, "asking confirmation")
	}
	return confirm, nil
}

// Input asks for a required value.
func Input(message, defaultValue string) (string, error) {
	value := ""
	prompt := &survey.Input{Message: message, Default: defaultValue}
	if err := survey.AskOne(prompt, &value, survey.WithValidator(survey.Required)); err != nil {
		return "", errors.Wrapf(err, "asking %s", message)
	}
	return strings.TrimSpace(value), nil
}

// Password asks for a required secret.
func Password(message string) (string, error) {
	value := ""
	if err := survey.AskOne(&survey.Password{Message: message}, &value, survey.WithValidator(survey.Required)); err != nil {
		return "", errors.Wrapf(err, "asking %s", message)
	}
	return value, nil
}
