package tui

import (
	"fmt"
	"strings"
	"time"

	"orderdesk/internal/models"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	accent  = lipgloss.Color("#D97706")
	fg      = lipgloss.Color("#E8E6E3")
	dim     = lipgloss.Color("#6B7280")
	faint   = lipgloss.Color("#3F3F46")
	success = lipgloss.Color("#22C55E")
	danger  = lipgloss.Color("#EF4444")
	warning = lipgloss.Color("#F59E0B")
)

const columnWidth = 28

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent)

	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(faint).
			Padding(0, 1).
			Width(columnWidth)

	statusColors = map[models.Status]lipgloss.Color{
		models.StatusPending:   warning,
		models.StatusConfirmed: accent,
		models.StatusPreparing: lipgloss.Color("#FB923C"),
		models.StatusReady:     success,
		models.StatusDelivered: dim,
		models.StatusCancelled: danger,
	}

	dimStyle   = lipgloss.NewStyle().Foreground(dim)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(fg)
	staleStyle = lipgloss.NewStyle().Foreground(danger).Bold(true)
)

// boardColumns are the statuses that still need staff action.
var boardColumns = []models.Status{
	models.StatusPending,
	models.StatusConfirmed,
	models.StatusPreparing,
	models.StatusReady,
}

type BoardOptions struct {
	// Now is the reference time for ages. Zero means time.Now.
	Now time.Time
	// StaleAfter highlights pending orders older than this. Zero disables it.
	StaleAfter time.Duration
	// Currency is the tenant's ISO code shown before totals.
	Currency string
}

// RenderBoard draws the open orders as one column per active status, followed by a
// count of closed orders.
func RenderBoard(restaurant string, orders []*models.Order, opts BoardOptions) string {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	byStatus := make(map[models.Status][]*models.Order)
	for _, o := range orders {
		byStatus[o.Status()] = append(byStatus[o.Status()], o)
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("orderdesk") + dimStyle.Render(" · "+restaurant))
	b.WriteString("\n\n")

	columns := make([]string, 0, len(boardColumns))
	for _, status := range boardColumns {
		columns = append(columns, renderColumn(status, byStatus[status], now, opts))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, columns...))
	b.WriteString("\n\n")

	delivered := len(byStatus[models.StatusDelivered])
	cancelled := len(byStatus[models.StatusCancelled])
	b.WriteString("  ")
	b.WriteString(statusStyle(models.StatusDelivered).Render(fmt.Sprintf("%d delivered", delivered)))
	b.WriteString("  ")
	b.WriteString(statusStyle(models.StatusCancelled).Render(fmt.Sprintf("%d cancelled", cancelled)))
	b.WriteString("\n")

	return b.String()
}

func renderColumn(status models.Status, orders []*models.Order, now time.Time, opts BoardOptions) string {
	var b strings.Builder
	b.WriteString(statusStyle(status).Bold(true).Render(fmt.Sprintf("%s (%d)", strings.ToUpper(string(status)), len(orders))))
	b.WriteString("\n")

	if len(orders) == 0 {
		b.WriteString(dimStyle.Render("no orders"))
		return columnStyle.Render(b.String())
	}

	for i, o := range orders {
		b.WriteString("\n")
		b.WriteString(renderCard(o, now, opts))
		if i < len(orders)-1 {
			b.WriteString("\n")
		}
	}
	return columnStyle.Render(b.String())
}

func renderCard(o *models.Order, now time.Time, opts BoardOptions) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("#%d %s", o.ID, o.Customer.Name)))
	b.WriteString("\n")

	units := 0
	for _, item := range o.Items() {
		units += item.Quantity
	}
	b.WriteString(fmt.Sprintf("%s · %d items", formatMoney(opts.Currency, o.Total()), units))
	b.WriteString("\n")

	age := humanize.RelTime(o.CreatedAt, now, "ago", "from now")
	if opts.StaleAfter > 0 && o.Status() == models.StatusPending && now.Sub(o.CreatedAt) > opts.StaleAfter {
		b.WriteString(staleStyle.Render(age + " · stale"))
	} else {
		b.WriteString(dimStyle.Render(age))
	}

	if next := o.AllowedTransitions(); len(next) > 0 {
		names := make([]string, len(next))
		for i, s := range next {
			names[i] = string(s)
		}
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("→ " + strings.Join(names, " | ")))
	}
	return b.String()
}

// formatMoney renders an amount held in minor units, e.g. 12000 as "ARS 120.00".
func formatMoney(currency string, minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	amount := fmt.Sprintf("%s%s.%02d", sign, humanize.Comma(minor/100), minor%100)
	if currency == "" {
		return amount
	}
	return currency + " " + amount
}

func statusStyle(status models.Status) lipgloss.Style {
	color, ok := statusColors[status]
	if !ok {
		color = fg
	}
	return lipgloss.NewStyle().Foreground(color)
}
