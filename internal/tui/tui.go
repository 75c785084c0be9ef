// Package tui is a Bubble Tea front end for playing a workout session in
// the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/meltforce/repcircle/internal/models"
	"github.com/meltforce/repcircle/internal/player"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	activeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	restStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("178"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)
)

const weightStep = 2.5

// ── Messages ────────────

type stateMsg struct {
	state player.State
	err   error
}

type finishedMsg struct {
	result player.FinishResult
	err    error
}

type tickMsg time.Time

// ── Model ────────────

// Model is the root Bubble Tea model. The session must already be started.
type Model struct {
	ctx      context.Context
	sess     *player.Session
	state    player.State
	bar      progress.Model
	tick     time.Duration
	width    int
	err      error
	busy     bool
	finished *player.FinishResult
	quitting bool
}

// Option configures a Model.
type Option func(*Model)

// WithRefresh sets how often the rest countdown is redrawn.
func WithRefresh(d time.Duration) Option {
	return func(m *Model) { m.tick = d }
}

// New wraps a started session.
func New(ctx context.Context, sess *player.Session, opts ...Option) Model {
	m := Model{
		ctx:   ctx,
		sess:  sess,
		state: sess.Snapshot(),
		bar:   progress.New(progress.WithDefaultGradient()),
		tick:  250 * time.Millisecond,
	}
	for _, o := range opts {
		o(&m)
	}
	return m
}

// State returns the last snapshot the model rendered.
func (m Model) State() player.State { return m.state }

// Finished returns the finish result once the session has been finished.
func (m Model) Finished() (player.FinishResult, bool) {
	if m.finished == nil {
		return player.FinishResult{}, false
	}
	return *m.finished, true
}

// Err returns the last error shown in the status line.
func (m Model) Err() error { return m.err }

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return m.refresh() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(10, msg.Width-4)
		return m, nil

	case tickMsg:
		if m.quitting {
			return m, nil
		}
		m.state = m.sess.Snapshot()
		return m, m.refresh()

	case stateMsg:
		m.busy = false
		m.state, m.err = msg.state, msg.err
		return m, nil

	case finishedMsg:
		m.busy = false
		m.state, m.err = msg.result.State, msg.err
		if msg.err == nil {
			res := msg.result
			m.finished = &res
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		if m.finished == nil {
			m.state = m.sess.Abandon()
		}
		m.quitting = true
		return m, tea.Quit
	}
	if m.finished != nil || m.busy {
		return m, nil
	}

	switch msg.String() {
	case "enter", " ":
		m.busy = true
		if m.state.ReadyToFinish {
			return m, m.finish()
		}
		return m, m.complete()
	case "f":
		m.busy = true
		return m, m.finish()
	case "s":
		m.state, m.err = m.sess.SkipRest(), nil
	case "n", "right", "l":
		m.state, m.err = m.sess.SkipToExercise(m.state.CurrentExerciseIndex + 1)
	case "p", "left", "h":
		m.state, m.err = m.sess.SkipToExercise(m.state.CurrentExerciseIndex - 1)
	case "+", "=", "up", "k":
		m.adjust(1, 0)
	case "-", "down", "j":
		m.adjust(-1, 0)
	case "w":
		m.adjust(0, weightStep)
	case "W":
		m.adjust(0, -weightStep)
	}
	return m, nil
}

// adjust edits the draft of the active slot. Timed exercises move the
// duration in five second steps, everything else moves reps.
func (m *Model) adjust(delta int, weight float64) {
	slot, ok := activeSlot(m.state)
	if !ok || slot.Completed {
		return
	}
	v := slot.SetValues.Clone()
	switch {
	case weight != 0:
		w := 0.0
		if v.Weight != nil {
			w = *v.Weight
		}
		w += weight
		if w <= 0 {
			v.Weight = nil
		} else {
			v.Weight = models.FloatPtr(w)
		}
	case v.DurationSeconds != nil && v.Reps == nil:
		v.DurationSeconds = models.IntPtr(max(0, *v.DurationSeconds+5*delta))
	default:
		reps := 0
		if v.Reps != nil {
			reps = *v.Reps
		}
		v.Reps = models.IntPtr(max(0, reps+delta))
	}
	m.state, m.err = m.sess.Draft(m.state.CurrentEntryID, m.state.CurrentSetIndex, v)
}

func (m Model) complete() tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		st, err := sess.CompleteActive(ctx)
		return stateMsg{state: st, err: err}
	}
}

func (m Model) finish() tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		res, err := sess.Finish(ctx)
		return finishedMsg{result: res, err: err}
	}
}

func (m Model) refresh() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func activeSlot(st player.State) (player.SetLog, bool) {
	if len(st.Exercises) == 0 {
		return player.SetLog{}, false
	}
	sets := st.Current().Sets
	if st.CurrentSetIndex < 1 || st.CurrentSetIndex > len(sets) {
		return player.SetLog{}, false
	}
	return sets[st.CurrentSetIndex-1], true
}

// ── Rendering ────────────

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	plan := m.sess.Plan()
	var b strings.Builder

	b.WriteString(titleStyle.Render(plan.Name))
	b.WriteString("  ")
	b.WriteString(dimStyle.Render(player.FormatClock(m.state.ElapsedSeconds)))
	b.WriteString("\n\n")

	for i, ex := range m.state.Exercises {
		line := fmt.Sprintf("%d/%d  %s", ex.CompletedCount(), len(ex.Sets), ex.Entry.ExerciseName)
		switch {
		case i == m.state.CurrentExerciseIndex && m.finished == nil:
			b.WriteString(activeStyle.Render("▸ " + line))
		case ex.CompletedCount() == len(ex.Sets):
			b.WriteString(doneStyle.Render("✓ " + line))
		default:
			b.WriteString(dimStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.finished != nil {
		b.WriteString(doneStyle.Render(fmt.Sprintf("Finished in %s, %d of %d sets.",
			player.FormatClock(m.state.ElapsedSeconds), m.state.CompletedSets, m.state.TotalSets)))
		b.WriteString("\n")
		if m.finished.NeedsParticipantCapture {
			b.WriteString(dimStyle.Render("Record the group's sets from the web app to reconcile participants."))
			b.WriteString("\n")
		}
	} else if slot, ok := activeSlot(m.state); ok {
		fmt.Fprintf(&b, "Set %d of %d: %s", m.state.CurrentSetIndex, len(m.state.Current().Sets), FormatValues(slot.SetValues))
		if slot.Completed {
			b.WriteString(doneStyle.Render("  done"))
		}
		b.WriteString("\n")
		if m.state.Rest.Active {
			b.WriteString(restStyle.Render("Rest " + player.FormatClock(m.state.Rest.RemainingSeconds)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(m.state.Progress))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}

	hint := "enter complete  +/- reps  w/W weight  s skip rest  n/p exercise  f finish  q quit"
	if m.finished != nil {
		hint = "q quit"
	}
	b.WriteString(statusBarStyle.Render(hint))
	return b.String()
}

// FormatValues renders set values the way the player shows them.
func FormatValues(v models.SetValues) string {
	var parts []string
	if v.Reps != nil {
		parts = append(parts, fmt.Sprintf("%d reps", *v.Reps))
	}
	if v.DurationSeconds != nil {
		parts = append(parts, player.FormatClock(*v.DurationSeconds))
	}
	if v.Weight != nil {
		parts = append(parts, fmt.Sprintf("%gkg", *v.Weight))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " · ")
}

// Run plays sess full screen until the user quits and returns the final model.
func Run(ctx context.Context, sess *player.Session, opts ...Option) (Model, error) {
	p := tea.NewProgram(New(ctx, sess, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return Model{}, err
	}
	return final.(Model), nil
}
