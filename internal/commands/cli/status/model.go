package status

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andrei-cloud/go_nodehost/internal/objinfo"
	tea "github.com/charmbracelet/bubbletea"
)

type snapshotMsg struct {
	nodes   map[string]objinfo.Metadata
	latency time.Duration
	at      time.Time
	err     error
}

type tickMsg time.Time

type categoryCount struct {
	name  string
	count int
}

type statusModel struct {
	target     string
	interval   time.Duration
	fetch      func() snapshotMsg
	total      int
	deprecated int
	categories []categoryCount
	latency    time.Duration
	updated    time.Time
	polls      int
	err        error
	quitting   bool
}

// newStatusModel creates a TUI model polling target through fetch every interval.
func newStatusModel(target string, interval time.Duration, fetch func() snapshotMsg) statusModel {
	return statusModel{target: target, interval: interval, fetch: fetch}
}

func (m statusModel) Init() tea.Cmd {
	return m.fetchCmd()
}

func (m statusModel) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		return m.fetch()
	}
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, m.fetchCmd()
		}

	case snapshotMsg:
		m.polls++
		m.latency = msg.latency
		m.updated = msg.at
		m.err = msg.err
		if msg.err == nil {
			m.apply(msg.nodes)
		}
		return m, tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })

	case tickMsg:
		return m, m.fetchCmd()
	}

	return m, nil
}

// apply summarizes a snapshot by category.
func (m *statusModel) apply(nodes map[string]objinfo.Metadata) {
	counts := make(map[string]int)
	m.deprecated = 0
	for _, n := range nodes {
		counts[n.Category]++
		if n.Deprecated {
			m.deprecated++
		}
	}

	m.total = len(nodes)
	m.categories = make([]categoryCount, 0, len(counts))
	for name, count := range counts {
		m.categories = append(m.categories, categoryCount{name: name, count: count})
	}
	sort.Slice(m.categories, func(i, j int) bool {
		if m.categories[i].count != m.categories[j].count {
			return m.categories[i].count > m.categories[j].count
		}
		return m.categories[i].name < m.categories[j].name
	})
}

func (m statusModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "object_info @ %s\n\n", m.target)

	if m.polls == 0 {
		b.WriteString("waiting for first response...\n")
	} else {
		fmt.Fprintf(&b, "nodes: %d   deprecated: %d   latency: %s   updated: %s\n",
			m.total, m.deprecated, m.latency.Round(time.Millisecond), m.updated.Format(time.TimeOnly))
		if m.err != nil {
			fmt.Fprintf(&b, "last poll failed: %v\n", m.err)
		}
		b.WriteString("\n")
		for _, c := range m.categories {
			fmt.Fprintf(&b, "  %-32s %5d\n", c.name, c.count)
		}
	}

	b.WriteString("\nr: refresh • q: quit\n")

	return b.String()
}
