package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"go-pairs/internal/board"
	"go-pairs/internal/clock"
	"go-pairs/internal/config"
	"go-pairs/internal/game"
	"go-pairs/internal/levels"
	"go-pairs/internal/progress"
	"go-pairs/internal/round"
	"go-pairs/internal/scoring"
	"go-pairs/internal/storage"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
)

const (
	cardWidth     = 10
	frameInterval = 50 * time.Millisecond
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	redStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	greenStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cursorStyle  = lipgloss.NewStyle().Reverse(true)
	cardStyle    = lipgloss.NewStyle().Width(cardWidth).Align(lipgloss.Center).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8"))
	overlayStyle = lipgloss.NewStyle().Border(lipgloss.ThickBorder()).BorderForeground(lipgloss.Color("10")).Padding(0, 1)
)

type screen int

const (
	screenLevels screen = iota
	screenBoard
	screenSummary
)

type keyMap struct {
	Up, Down, Left, Right key.Binding
	Select                key.Binding
	Pause                 key.Binding
	Next, Replay, Back    key.Binding
	Reset                 key.Binding
	Quit                  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		Select: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "select")),
		Pause:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
		Next:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next level")),
		Replay: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "replay")),
		Back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "levels")),
		Reset:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reset progress")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// bindings adapts a plain list of keys to help.KeyMap.
type bindings []key.Binding

func (b bindings) ShortHelp() []key.Binding { return b }
func (b bindings) FullHelp() [][]key.Binding { return [][]key.Binding{b} }

type frameMsg time.Time

func frameCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// LocalState is the terminal front-end. The round runs on a manual clock that
// is advanced once per frame, so pausing simply stops advancing it.
type LocalState struct {
	Session *game.Session
	Clock   *clock.Manual
	Grid    game.Grid
	Screen  screen

	statuses  []game.LevelStatus
	selected  int
	overlay   string
	notice    string
	lastFrame time.Time

	keys keyMap
	help help.Model
}

func initialModel(catalogue []levels.Level, unlocks progress.UnlockStore, results scoring.ResultStorage, opts round.Options) (*LocalState, error) {
	s := &LocalState{
		Clock: clock.NewManual(),
		keys:  newKeyMap(),
		help:  help.New(),
	}
	sess, err := game.NewSession(game.SessionConfig{
		Levels:    catalogue,
		Unlocks:   unlocks,
		Results:   results,
		Scheduler: s.Clock,
		Round:     opts,
		Events: round.Events{
			OnMatch:         s.onMatch,
			OnRoundComplete: s.onRoundComplete,
		},
	})
	if err != nil {
		return nil, err
	}
	s.Session = sess
	if err := s.refreshLevels(); err != nil {
		return nil, err
	}
	return s, nil
}

// onMatch opens the fact overlay. The round stays blocked until it closes,
// which also holds back completion of the last pair.
func (s *LocalState) onMatch(value string) {
	if fact, ok := s.Session.Level.Fact(value); ok {
		s.overlay = value + ": " + fact
		s.Session.Round.SetInteractionEnabled(false)
	}
}

func (s *LocalState) onRoundComplete(score, attempts int, elapsed time.Duration) {
	s.Screen = screenSummary
	if err := s.refreshLevels(); err != nil {
		log.Error().Err(err).Msg("refresh levels")
	}
}

func (s *LocalState) refreshLevels() error {
	st, err := s.Session.LevelStatuses()
	if err != nil {
		return err
	}
	s.statuses = st
	if s.selected >= len(st) {
		s.selected = len(st) - 1
	}
	return nil
}

func (s *LocalState) startLevel(number int) error {
	if err := s.Session.StartLevel(number); err != nil {
		return err
	}
	s.enterBoard()
	return nil
}

func (s *LocalState) enterBoard() {
	s.Grid = game.NewGrid(len(s.Session.Round.Cards()))
	s.Screen = screenBoard
	s.overlay = ""
	s.Clock.Resume()
}

func (s *LocalState) showLevels() {
	if err := s.refreshLevels(); err != nil {
		s.notice = err.Error()
	}
	for i, st := range s.statuses {
		if st.Level.Number == s.Session.Level.Number {
			s.selected = i
		}
	}
	s.Screen = screenLevels
}

func (s *LocalState) Init() tea.Cmd {
	return frameCmd()
}

func (s *LocalState) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		s.frame(time.Time(msg))
		return s, frameCmd()
	case tea.WindowSizeMsg:
		s.help.Width = msg.Width
	case tea.KeyMsg:
		if key.Matches(msg, s.keys.Quit) {
			return s, tea.Quit
		}
		s.notice = ""
		switch s.Screen {
		case screenLevels:
			s.updateLevels(msg)
		case screenBoard:
			s.updateBoard(msg)
		case screenSummary:
			s.updateSummary(msg)
		}
	}
	return s, nil
}

// frame advances the round clock by the wall time since the last frame.
func (s *LocalState) frame(now time.Time) {
	if !s.lastFrame.IsZero() && s.Screen == screenBoard {
		s.Clock.Advance(now.Sub(s.lastFrame))
	}
	s.lastFrame = now
}

func (s *LocalState) updateLevels(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, s.keys.Up):
		if s.selected > 0 {
			s.selected--
		}
	case key.Matches(msg, s.keys.Down):
		if s.selected < len(s.statuses)-1 {
			s.selected++
		}
	case key.Matches(msg, s.keys.Select):
		st := s.statuses[s.selected]
		if !st.Unlocked {
			s.notice = st.Level.Title() + " is locked"
			return
		}
		if err := s.startLevel(st.Level.Number); err != nil {
			s.notice = err.Error()
		}
	case key.Matches(msg, s.keys.Reset):
		if err := s.Session.ResetProgress(); err != nil {
			s.notice = err.Error()
			return
		}
		s.showLevels()
		s.notice = "Progress reset"
	}
}

func (s *LocalState) updateBoard(msg tea.KeyMsg) {
	if s.overlay != "" {
		s.overlay = ""
		s.Session.Round.SetInteractionEnabled(true)
		return
	}
	if key.Matches(msg, s.keys.Pause) {
		if s.Clock.Paused() {
			s.Clock.Resume()
		} else {
			s.Clock.Pause()
		}
		return
	}
	if s.Clock.Paused() {
		return
	}

	switch {
	case key.Matches(msg, s.keys.Up):
		s.Grid.Move(0, -1)
	case key.Matches(msg, s.keys.Down):
		s.Grid.Move(0, 1)
	case key.Matches(msg, s.keys.Left):
		s.Grid.Move(-1, 0)
	case key.Matches(msg, s.keys.Right):
		s.Grid.Move(1, 0)
	case key.Matches(msg, s.keys.Select):
		s.Session.Round.RequestReveal(s.Grid.Cursor)
	case key.Matches(msg, s.keys.Replay):
		s.replay()
	case key.Matches(msg, s.keys.Back):
		s.showLevels()
	}
}

func (s *LocalState) updateSummary(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, s.keys.Next):
		if !s.Session.HasNext() {
			return
		}
		if err := s.Session.NextLevel(); err != nil {
			s.notice = err.Error()
			return
		}
		s.enterBoard()
	case key.Matches(msg, s.keys.Replay):
		s.replay()
	case key.Matches(msg, s.keys.Back):
		s.showLevels()
	}
}

func (s *LocalState) replay() {
	if err := s.Session.Replay(); err != nil {
		s.notice = err.Error()
		return
	}
	s.enterBoard()
}

func (s *LocalState) helpKeys() bindings {
	k := s.keys
	switch s.Screen {
	case screenLevels:
		return bindings{k.Up, k.Down, k.Select, k.Reset, k.Quit}
	case screenSummary:
		b := bindings{}
		if s.Session.HasNext() {
			b = append(b, k.Next)
		}
		return append(b, k.Replay, k.Back, k.Quit)
	}
	return bindings{k.Up, k.Down, k.Left, k.Right, k.Select, k.Pause, k.Replay, k.Back, k.Quit}
}

func (s *LocalState) View() string {
	var b strings.Builder
	switch s.Screen {
	case screenLevels:
		b.WriteString(s.levelsView())
	case screenBoard:
		b.WriteString(s.boardView())
	case screenSummary:
		b.WriteString(s.summaryView())
	}
	if s.notice != "" {
		b.WriteString("\n" + redStyle.Render(s.notice))
	}
	b.WriteString("\n\n" + s.help.View(s.helpKeys()))
	return b.String()
}

func (s *LocalState) levelsView() string {
	lines := []string{titleStyle.Render("PAIRS: choose a level"), ""}
	for i, st := range s.statuses {
		line := fmt.Sprintf("%-28s %2d pairs", st.Level.Title(), st.Level.PairCount)
		switch {
		case !st.Unlocked:
			line = dimStyle.Render(line + "  locked")
		case st.Best != nil:
			line += scoreStyle.Render(fmt.Sprintf("  best %d pts, %d tries, %s",
				st.Best.Score, st.Best.Attempts, scoring.FormatElapsed(st.Best.Elapsed())))
		}
		prefix := "  "
		if i == s.selected {
			prefix = cursorStyle.Render(">") + " "
		}
		lines = append(lines, prefix+line)
	}
	lines = append(lines, "", fmt.Sprintf("Total score this session: %d", s.Session.TotalScore))
	return strings.Join(lines, "\n")
}

func (s *LocalState) boardView() string {
	r := s.Session.Round
	cards := r.Cards()

	rows := make([]string, 0, s.Grid.Rows())
	for row := 0; row < s.Grid.Rows(); row++ {
		var cells []string
		for _, id := range s.Grid.Row(row) {
			cells = append(cells, renderCard(cards[id], id == s.Grid.Cursor))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	status := fmt.Sprintf("SCORE: %d | ATTEMPTS: %d | TIME: %s",
		r.Score(), r.Attempts(), scoring.FormatElapsed(r.Elapsed()))
	if h := s.Session.History; h != nil && h.Best != nil {
		status += fmt.Sprintf(" | BEST: %d", h.Best.Score)
	}

	display := titleStyle.Render(s.Session.Level.Title()) + "\n" +
		lipgloss.JoinVertical(lipgloss.Left, rows...) + "\n" +
		scoreStyle.Render(status)

	switch {
	case s.Clock.Paused():
		display += "\n" + redStyle.Render("PAUSED (p to resume)")
	case r.State() == round.Previewing:
		display += "\n" + dimStyle.Render("Remember the cards...")
	}
	if s.overlay != "" {
		display += "\n" + overlayStyle.Render(s.overlay+"\n"+dimStyle.Render("press any key"))
	}
	return display
}

func renderCard(c board.Card, selected bool) string {
	style := cardStyle
	text := "?"
	switch c.State {
	case board.FaceUp:
		text = c.Value
		style = style.BorderForeground(lipgloss.Color("11"))
	case board.Matched:
		text = c.Value
		style = style.BorderForeground(lipgloss.Color("10")).Foreground(lipgloss.Color("10"))
	}
	if runes := []rune(text); len(runes) > cardWidth {
		text = string(runes[:cardWidth])
	}
	if selected {
		style = style.BorderForeground(lipgloss.Color("12"))
		text = cursorStyle.Render(text)
	}
	return style.Render(text)
}

func (s *LocalState) summaryView() string {
	res := s.Session.LastResult
	if res == nil {
		return ""
	}
	display := greenStyle.Render(fmt.Sprintf("%s complete!", s.Session.Level.Title())) + "\n" +
		scoreStyle.Render(fmt.Sprintf("SCORE: %d | ATTEMPTS: %d | TIME: %s",
			res.Score, res.Attempts, scoring.FormatElapsed(res.Elapsed())))

	if h := s.Session.History; h != nil && h.GotHighScore() {
		display += "\n" + greenStyle.Render("New best for this level! Top results:")
		for _, entry := range h.TopN(5) {
			display += fmt.Sprintf("\n  * %d pts, %d tries, %s on %s",
				entry.Score, entry.Attempts, scoring.FormatElapsed(entry.Elapsed()), entry.Timestamp)
		}
	}
	display += "\n" + fmt.Sprintf("Total score this session: %d", s.Session.TotalScore)
	if !s.Session.HasNext() {
		display += "\n" + greenStyle.Render("That was the last level!")
	}
	return display
}

func main() {
	var (
		startLevel int
		levelPaths string
		noPreview  bool
		seed       int64
	)
	flag.IntVar(&startLevel, "level", 0, "Start straight into level N (must be unlocked)")
	flag.StringVar(&levelPaths, "levels", "", "Comma separated level files or directories (default: built-in levels)")
	flag.BoolVar(&noPreview, "no-preview", false, "Skip the face-up preview at the start of a round")
	flag.Int64Var(&seed, "seed", 0, "Shuffle seed (default: random)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error reading configuration: %v\n", err)
		os.Exit(1)
	}
	// The terminal belongs to the UI; logs only go to PAIRS_LOG_FILE.
	closer, err := cfg.SetupLogging(nil)
	if err != nil {
		fmt.Printf("Error setting up logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	catalogue := levels.Default()
	if levelPaths != "" {
		if catalogue, err = levels.Load(strings.Split(levelPaths, ",")); err != nil {
			fmt.Printf("Error loading levels: %v\n", err)
			os.Exit(1)
		}
	}

	backend, err := storage.Open(cfg.Store, cfg.DataDir)
	if err != nil {
		fmt.Printf("Error opening %s store: %v\n", cfg.Store, err)
		os.Exit(1)
	}
	defer backend.Close()

	opts := cfg.RoundOptions()
	if noPreview {
		opts.Preview = false
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	opts.Rand = rand.New(rand.NewSource(seed))
	log.Info().Int64("seed", seed).Str("store", cfg.Store).Msg("starting pairs")

	model, err := initialModel(catalogue, backend.Unlocks, backend.Results, opts)
	if err != nil {
		fmt.Printf("Error initializing model: %v\n", err)
		os.Exit(1)
	}
	if startLevel > 0 {
		if err := model.startLevel(startLevel); err != nil {
			fmt.Printf("Error starting level %d: %v\n", startLevel, err)
			os.Exit(1)
		}
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error starting the program: %v\n", err)
	}
	fmt.Printf("Total score: %d\n", model.Session.TotalScore)
}
