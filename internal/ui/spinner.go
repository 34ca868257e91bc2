package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type taskDoneMsg struct {
	err error
}

// spinnerModel shows a spinner next to label until the task finishes.
type spinnerModel struct {
	label   string
	spinner spinner.Model
	task    func() error
	err     error
	done    bool
}

func newSpinnerModel(label string, task func() error) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle
	return spinnerModel{label: label, spinner: s, task: task}
}

// Init implements tea.Model
func (m spinnerModel) Init() tea.Cmd {
	task := m.task
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg { return taskDoneMsg{err: task()} },
	)
}

// Update implements tea.Model
func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), m.label)
}

// RunWithSpinner runs task while a spinner labelled label is shown. Without a
// terminal the label is printed once and task runs directly.
func RunWithSpinner(label string, task func() error) error {
	if !IsTerminal() {
		fmt.Println(label)
		return task()
	}

	final, err := tea.NewProgram(newSpinnerModel(label, task), tea.WithOutput(os.Stdout)).Run()
	if err != nil {
		return err
	}
	m := final.(spinnerModel)
	if !m.done {
		return ErrInterrupted
	}
	return m.err
}
