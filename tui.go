package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const fetchTimeout = 15 * time.Second

type uiView int

const (
	viewGrid uiView = iota
	viewDetail
)

// debounceMsg fires one DebounceWindow after a keystroke; stale tokens are
// dropped by the Debouncer.
type debounceMsg struct {
	token int
}

// imagesFetchedMsg is the completion of one FetchRequest.
type imagesFetchedMsg struct {
	seq    int
	images []ImageRecord
	err    error
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Faint(true).Padding(0, 1)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Bold(true)
)

type imageItem struct {
	rec ImageRecord
}

func (i imageItem) Title() string {
	if m := i.rec.Metadata; m != nil {
		if m.Title != "" {
			return m.Title
		}
		if m.App != "" {
			return m.App
		}
	}
	return i.rec.Id
}

func (i imageItem) Description() string {
	desc := i.rec.CreatedAt.Format("2006-01-02 15:04")
	if i.rec.Kind != "" {
		desc += " · " + i.rec.Kind
	}
	if i.rec.OCR != nil && i.rec.OCR.Text != "" {
		text := strings.Join(strings.Fields(i.rec.OCR.Text), " ")
		if len(text) > 60 {
			text = text[:60] + "…"
		}
		desc += " · " + text
	}
	return desc
}

func (i imageItem) FilterValue() string { return i.Title() }

// App is the host presentation adapter: a bubbletea model that owns the
// terminal and delegates every search/pagination decision to the pure
// transitions in state.go.
type App struct {
	api      *GyazoApi
	state    SearchState
	debounce Debouncer

	input   textinput.Model
	results list.Model
	detail  viewport.Model
	view    uiView

	width  int
	height int
}

func NewApp(api *GyazoApi, cfg *Config) *App {
	si := textinput.New()
	si.Placeholder = "Search your captures..."
	si.Focus()

	resultList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	resultList.Title = "› captures"
	resultList.SetShowStatusBar(false)
	resultList.SetFilteringEnabled(false)
	resultList.SetShowHelp(false)

	return &App{
		api:     api,
		state:   NewSearchState(cfg.PageSize),
		input:   si,
		results: resultList,
		detail:  viewport.New(0, 0),
	}
}

func (a *App) Init() tea.Cmd {
	var req *FetchRequest
	a.state, req = OnQueryCommitted(a.state, "")
	return tea.Batch(textinput.Blink, a.fetchCmd(req))
}

// fetchCmd runs one FetchRequest off the update loop and reports back with
// the request's seq so stale completions can be recognized.
func (a *App) fetchCmd(req *FetchRequest) tea.Cmd {
	if req == nil {
		return nil
	}
	api := a.api
	r := *req
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		images, err := api.FetchImages(ctx, r.Query, r.Page, r.PageSize)
		return imagesFetchedMsg{seq: r.Seq, images: images, err: err}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.results.SetSize(msg.Width, msg.Height-6)
		a.detail.Width = msg.Width
		a.detail.Height = msg.Height - 4
		inputWidth := msg.Width - 4
		if inputWidth < 20 {
			inputWidth = msg.Width
		}
		a.input.Width = inputWidth

	case tea.KeyMsg:
		return a.handleKey(msg)

	case debounceMsg:
		if a.debounce.Fire(msg.token) {
			var req *FetchRequest
			a.state, req = OnQueryCommitted(a.state, a.state.RawInput)
			cmds = append(cmds, a.fetchCmd(req))
		}

	case imagesFetchedMsg:
		a.state = OnFetchDone(a.state, FetchDone{Seq: msg.seq, Images: msg.images, Err: msg.err})
		cmds = append(cmds, a.syncResults())
	}

	return a, tea.Batch(cmds...)
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.view == viewDetail {
		switch msg.String() {
		case "ctrl+c", "q":
			return a, tea.Quit
		case "esc", "backspace":
			a.view = viewGrid
			return a, nil
		}
		var cmd tea.Cmd
		a.detail, cmd = a.detail.Update(msg)
		return a, cmd
	}

	switch msg.String() {
	case "ctrl+c", "esc":
		return a, tea.Quit
	case "enter":
		if item, ok := a.results.SelectedItem().(imageItem); ok {
			a.detail.SetContent(detailContent(item.rec))
			a.detail.GotoTop()
			a.view = viewDetail
		}
		return a, nil
	case "pgdown", "ctrl+n":
		var req *FetchRequest
		a.state, req = OnLoadMore(a.state)
		return a, a.fetchCmd(req)
	case "up", "down":
		var cmd tea.Cmd
		a.results, cmd = a.results.Update(msg)
		return a, cmd
	}

	before := a.input.Value()
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	cmds := []tea.Cmd{cmd}
	if a.input.Value() != before {
		a.state = OnInputChanged(a.state, a.input.Value())
		token := a.debounce.Touch()
		cmds = append(cmds, tea.Tick(DebounceWindow, func(time.Time) tea.Msg {
			return debounceMsg{token: token}
		}))
	}
	return a, tea.Batch(cmds...)
}

// syncResults mirrors the state's result list into the bubbles list.
func (a *App) syncResults() tea.Cmd {
	items := make([]list.Item, len(a.state.Results))
	for i, rec := range a.state.Results {
		items[i] = imageItem{rec: rec}
	}
	return a.results.SetItems(items)
}

func (a *App) statusLine() string {
	if a.state.Loading {
		return statusStyle.Render("fetching…")
	}
	switch a.state.Notice {
	case NoticeConfigureToken:
		return noticeStyle.Render("No access token configured. Set GYAZO_ACCESS_TOKEN and restart.")
	case NoticeFetchFailed:
		return noticeStyle.Render("Fetch failed. Check your connection and try again.")
	case NoticeEndOfResults:
		return noticeStyle.Render("No more results.")
	}
	return statusStyle.Render(fmt.Sprintf("%d shown · page %d · enter: detail · pgdn: more · esc: quit",
		len(a.state.Results), a.state.Page))
}

func (a *App) View() string {
	if a.view == viewDetail {
		return a.detail.View() + "\n" + statusStyle.Render("esc: back · q: quit")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("gyazogrid"))
	b.WriteString("\n")
	b.WriteString(a.input.View())
	b.WriteString("\n")
	b.WriteString(a.results.View())
	b.WriteString("\n")
	b.WriteString(a.statusLine())
	return b.String()
}

// detailContent renders everything already known about a capture; no
// additional fetch happens here.
func detailContent(rec ImageRecord) string {
	var b strings.Builder
	line := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(labelStyle.Render(label))
		b.WriteString(" ")
		b.WriteString(value)
		b.WriteString("\n")
	}

	line("Id:", rec.Id)
	line("Kind:", rec.Kind)
	if !rec.CreatedAt.IsZero() {
		line("Created:", rec.CreatedAt.Format(time.RFC1123))
	}
	line("Permalink:", rec.PermalinkUrl)
	line("Image:", rec.RawUrl)
	line("Thumbnail:", rec.ThumbnailUrl)

	if m := rec.Metadata; m != nil {
		b.WriteString("\n")
		line("App:", m.App)
		line("Title:", m.Title)
		line("Source:", m.SourceUrl)
		line("Description:", m.Description)
	}
	if o := rec.OCR; o != nil && o.Text != "" {
		b.WriteString("\n")
		line("OCR locale:", o.Locale)
		b.WriteString(labelStyle.Render("OCR text:"))
		b.WriteString("\n")
		b.WriteString(o.Text)
		b.WriteString("\n")
	}
	return b.String()
}
