package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragqa/internal/domain"
)

// Asker is the TUI-facing subset of the pipeline.
type Asker interface {
	Query(ctx context.Context, q string) (domain.Result, error)
	Status() domain.Status
}

type answerMsg struct {
	query  string
	result domain.Result
	err    error
}

// Model is the Bubble Tea model for the interactive question prompt.
type Model struct {
	asker     Asker
	ctx       context.Context
	input     textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	result    domain.Result
	overview  string
	status    string
	cursor    int
	ready     bool
	busy      bool
	lastQuery string
}

// New creates the model. ctx bounds every query started from the prompt.
func New(ctx context.Context, asker Asker) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		asker:    asker,
		ctx:      ctx,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		overview: asker.Status().Overview,
		status:   "Type a question. The index is built on the first one.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) ask(q string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.asker.Query(m.ctx, q)
		return answerMsg{query: q, result: res, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header and overview, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, max(3, msg.Height-reserved)-rh)
		m.viewport.SetContent(m.renderCurrent())
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + domain.UserMessage(msg.err)
			m.result = domain.Result{}
			m.cursor = 0
		} else {
			m.result = msg.result
			m.cursor = 0
			m.lastQuery = msg.query
			m.overview = m.asker.Status().Overview
			m.status = fmt.Sprintf("%d reference(s) for %q", len(msg.result.RetrievedDocs), msg.query)
		}
		m.viewport.SetContent(m.renderCurrent())
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.busy = true
			m.status = "Thinking..."
			m.input.SetValue("")
			return m, tea.Batch(m.ask(q), m.spinner.Tick)
		case "down":
			if n := len(m.result.RetrievedDocs); n > 0 {
				m.cursor = (m.cursor + 1) % (n + 1)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		case "up":
			if n := len(m.result.RetrievedDocs); n > 0 {
				m.cursor = (m.cursor + n) % (n + 1)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Handbook Q&A")
	overview := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.overview)
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + overview + "\n" +
		resultBoxStyle.Render(m.viewport.View()) + "\n" +
		queryBoxStyle.Render(m.input.View()) + "\n" +
		statusStyle.Render(status)
}

// renderCurrent shows the answer at cursor 0 and reference cursor otherwise.
func (m Model) renderCurrent() string {
	if m.lastQuery == "" {
		return "No answer yet."
	}
	docs := m.result.RetrievedDocs
	if m.cursor == 0 || m.cursor > len(docs) {
		hint := ""
		if len(docs) > 0 {
			hint = "\n\n" + hintStyle.Render("up/down: browse references")
		}
		return titleStyle.Render("Answer") + "\n\n" + m.result.Answer + hint
	}
	d := docs[m.cursor-1]
	title := fmt.Sprintf("Reference %d/%d  similarity=%.2f%%  distance=%.3f", m.cursor, len(docs), d.Similarity*100, d.Distance)
	return titleStyle.Render(title) + "\n\n" + highlightBestSentence(d.Content, m.lastQuery)
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	titleStyle     = lipgloss.NewStyle().Bold(true)
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	wordRe         = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`[^.!?。！？]+[.!?。！？]*`)
)

// highlightBestSentence emphasises the sentence sharing the most words with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{text}
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}
	q := wordSet(query)
	if len(q) == 0 {
		return strings.Join(sentences, " ")
	}
	best, bestScore := 0, -1
	for i, s := range sentences {
		if score := overlap(q, s); score > bestScore {
			best, bestScore = i, score
		}
	}
	sentences[best] = highlightStyle.Render(sentences[best])
	return strings.Join(sentences, " ")
}

func wordSet(s string) map[string]struct{} {
	words := wordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func overlap(query map[string]struct{}, sentence string) int {
	score := 0
	for w := range wordSet(sentence) {
		if _, ok := query[w]; ok {
			score++
		}
	}
	return score
}
