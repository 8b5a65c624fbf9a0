package stats

import (
	"io"
	"sort"
	"sync"

	"resistance-moderator/internal/game"

	"github.com/olekukonko/tablewriter"
)

type Record struct {
	Name       string   `json:"name"`
	Total      Variable `json:"total"`
	Spy        Variable `json:"spy"`
	Resistance Variable `json:"resistance"`
}

// Table collects records from finished games. It is safe for concurrent use.
type Table struct {
	mu      sync.Mutex
	records map[string]*Record
	games   int
}

func NewTable() *Table {
	return &Table{records: map[string]*Record{}}
}

// Add scores every seat of res. A competitor seated twice is sampled twice.
func (t *Table) Add(res game.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.games++
	for _, p := range res.Players {
		rec := t.records[p.Name]
		if rec == nil {
			rec = &Record{Name: p.Name}
			t.records[p.Name] = rec
		}
		spy := game.OnTeam(res.Spies, p)
		won := 0.0
		if spy != res.ResistanceWon {
			won = 1
		}
		rec.Total.Sample(won)
		if spy {
			rec.Spy.Sample(won)
		} else {
			rec.Resistance.Sample(won)
		}
	}
}

func (t *Table) Games() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.games
}

// Records returns a snapshot ordered by overall estimate, best first.
func (t *Table) Records() []Record {
	t.mu.Lock()
	out := make([]Record, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, *rec)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Total.Estimate(), out[j].Total.Estimate()
		if a != b {
			return a > b
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (t *Table) Render(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Competitor", "Total", "Spy", "Resistance"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, rec := range t.Records() {
		table.Append([]string{rec.Name, rec.Total.Detail(), rec.Spy.Detail(), rec.Resistance.Detail()})
	}
	table.Render()
}
