package links

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/stupside/kisskh/internal/media"
)

// Render formats the final links as a table tagged with each link's kind.
// Kinds are colored when color is set.
func Render(m Map, color bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Episode", "Kind", "Link"})

	for _, n := range m.Numbers() {
		kind := string(media.KindOf(m[n]))
		if color {
			if media.IsManifest(m[n]) {
				kind = text.Colors{text.FgGreen}.Sprint(kind)
			} else {
				kind = text.Colors{text.FgYellow}.Sprint(kind)
			}
		}
		tw.AppendRow(table.Row{strconv.Itoa(n), kind, m[n]})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
