package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"cvelib/internal/domain"
)

// printer renders command output. Styling is dropped automatically when the
// output is not a terminal.
type printer struct {
	w       io.Writer
	heading lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
	cell    lipgloss.Style
	header  lipgloss.Style
	border  lipgloss.Style
}

func newPrinter(cmd *cobra.Command) *printer {
	w := cmd.OutOrStdout()
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:       w,
		heading: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		label:   r.NewStyle().Foreground(lipgloss.Color("#AAAAAA")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#888888")),
		cell:    r.NewStyle().PaddingRight(1),
		header:  r.NewStyle().Bold(true).PaddingRight(1),
		border:  r.NewStyle().Foreground(lipgloss.Color("#444444")),
	}
}

// JSON writes v indented, as the --raw flag requests.
func (p *printer) JSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) Heading(format string, args ...any) {
	fmt.Fprintln(p.w, p.heading.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) Line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) Note(format string, args ...any) {
	fmt.Fprintln(p.w, p.muted.Render(fmt.Sprintf(format, args...)))
}

// Fields prints label/value pairs with the values aligned.
func (p *printer) Fields(pairs ...[2]string) {
	width := 0
	for _, kv := range pairs {
		width = max(width, len(kv[0]))
	}
	for _, kv := range pairs {
		label := p.label.Render(fmt.Sprintf("%-*s", width+1, kv[0]+":"))
		fmt.Fprintf(p.w, "  %s %s\n", label, kv[1])
	}
}

// Table prints rows under headers with a light border.
func (p *printer) Table(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.border).
		BorderColumn(false).
		BorderLeft(false).
		BorderRight(false).
		BorderTop(false).
		BorderBottom(false).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.header
			}
			return p.cell
		})
	fmt.Fprintln(p.w, t.String())
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (p *printer) CveID(info domain.CveIDInfo) {
	p.Heading("%s", info.CveID)
	p.Fields(
		[2]string{"State", info.State.String()},
		[2]string{"Owning CNA", orDash(info.OwningCNA)},
		[2]string{"Reserved by", fmt.Sprintf("%s (%s)", orDash(info.RequestedBy.User), orDash(info.RequestedBy.CNA))},
		[2]string{"Reserved on", formatTime(info.Reserved)},
		[2]string{"Updated on", formatTime(info.Time.Modified)},
	)
}

func cveIDRow(info domain.CveIDInfo) []string {
	return []string{
		info.CveID.String(),
		info.State.String(),
		orDash(info.OwningCNA),
		orDash(info.RequestedBy.User),
		formatTime(info.Reserved),
	}
}

var cveIDHeaders = []string{"CVE ID", "STATE", "OWNING CNA", "REQUESTED BY", "RESERVED"}

func (p *printer) User(u domain.User) {
	p.Heading("%s", u.Username)
	p.Fields(
		[2]string{"Name", orDash(u.Name.Full())},
		[2]string{"Roles", orDash(strings.Join(u.Authority.ActiveRoles, ", "))},
		[2]string{"Active", fmt.Sprintf("%t", u.Active)},
		[2]string{"Created", formatTime(u.Time.Created)},
		[2]string{"Modified", formatTime(u.Time.Modified)},
	)
}

func userRow(u domain.User) []string {
	return []string{
		u.Username,
		orDash(u.Name.Full()),
		orDash(strings.Join(u.Authority.ActiveRoles, ",")),
		fmt.Sprintf("%t", u.Active),
		formatTime(u.Time.Created),
		formatTime(u.Time.Modified),
	}
}

var userHeaders = []string{"USERNAME", "NAME", "ROLES", "ACTIVE", "CREATED", "MODIFIED"}

func (p *printer) Quota(org string, q domain.Quota) {
	p.Heading("CVE ID quota for %s", org)
	p.Fields(
		[2]string{"Limit", fmt.Sprint(q.IDQuota)},
		[2]string{"Reserved", fmt.Sprint(q.TotalReserved)},
		[2]string{"Available", fmt.Sprint(q.Available)},
	)
}

// Record prints the metadata of a CVE record response.
func (p *printer) Record(verb string, id domain.CveID, rec domain.Container) {
	p.Heading("%s %s", verb, id)
	meta, _ := rec["cveMetadata"].(map[string]any)
	state, _ := meta["state"].(string)
	published, _ := meta["datePublished"].(string)
	updated, _ := meta["dateUpdated"].(string)
	p.Fields(
		[2]string{"State", orDash(state)},
		[2]string{"Published", orDash(published)},
		[2]string{"Updated", orDash(updated)},
	)
}
