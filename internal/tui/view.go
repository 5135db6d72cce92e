// internal/tui/view.go
package tui

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/prediction-pump/internal/curve"
)

// lamportExp shifts a lamport count into SOL: same convention as the
// HTTP layer's display helpers.
const lamportExp = -9

// View renders the whole explorer frame.
func (e *Explorer) View() string {
	if e.width == 0 || e.height == 0 {
		return "Loading..."
	}

	title := e.styles.title.Render("📊 Prediction Pump — Bonding Curve Explorer")

	paramsPanel := e.styles.panel.Render(
		e.styles.paneTitle.Render("Curve Parameters") + "\n\n" + e.form.View())

	quotePanel := e.styles.panel.Render(e.renderQuote())

	sections := []string{
		title,
		lipgloss.JoinHorizontal(lipgloss.Top, paramsPanel, quotePanel),
		e.styles.panel.Render(e.renderCurve()),
		e.styles.panel.Render(
			e.styles.paneTitle.Render("Price Ladder") + "\n\n" + e.ladder.View()),
	}

	if e.showLogs {
		sections = append(sections, e.logView.View())
	}
	sections = append(sections, e.helpBar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderQuote draws the live quote card for the current side.
func (e *Explorer) renderQuote() string {
	sideLabel := e.styles.buySide.Render("BUY")
	totalLabel := "Total cost"
	if !e.isBuy {
		sideLabel = e.styles.sellSide.Render("SELL")
		totalLabel = "Payout"
	}

	var b strings.Builder
	b.WriteString(e.styles.paneTitle.Render("Quote Preview — ") + sideLabel)
	b.WriteString("\n\n")

	if e.quoteErr != nil {
		b.WriteString(e.styles.errLine.Render("⚠ " + e.quoteErr.Error()))
		if e.haveQuote {
			b.WriteString("\n")
			b.WriteString(e.styles.muted.Render("showing last good quote"))
			b.WriteString("\n\n")
		} else {
			return b.String()
		}
	}

	q := e.quote
	rows := []struct {
		label string
		value string
	}{
		{"Spot price", displayPrice(q.spot)},
		{"Avg price", displayPrice(q.avgPrice)},
		{totalLabel, displaySOL(q.total) + " SOL"},
		{"Slippage", displayBps(q.slippage)},
		{"Fee rate", strconv.FormatUint(uint64(q.params.FeeRateBps), 10) + " bps"},
		{"New supply", strconv.FormatUint(q.newSupply, 10)},
		{"Spot after", displayPrice(q.spotAfter)},
		{"Market cap", displaySOL(q.capAfter) + " SOL"},
	}
	for i, row := range rows {
		b.WriteString(e.styles.label.Render(row.label))
		b.WriteString(e.styles.value.Render(row.value))
		if i < len(rows)-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

// renderCurve draws the sparkline panel with its supply bounds.
func (e *Explorer) renderCurve() string {
	var b strings.Builder
	b.WriteString(e.styles.paneTitle.Render("Price Curve"))
	b.WriteString("\n\n")

	if e.sparkEmpty {
		b.WriteString(e.styles.errLine.Render("curve overflows across the whole range"))
		return b.String()
	}

	b.WriteString(e.spark.View())
	b.WriteString("\n")
	b.WriteString(e.styles.muted.Render(
		fmt.Sprintf("supply 0 → %d", e.sparkMax)))
	return b.String()
}

// displayPrice renders a fixed-point curve price as a decimal string:
// 1000 at scale 10000 is "0.1".
func displayPrice(scaled uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(scaled), 0).
		Div(decimal.NewFromInt(curve.Scale)).String()
}

// displaySOL renders lamports as SOL without precision loss.
func displaySOL(lamports uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), lamportExp).String()
}

// displayBps renders basis points as a percentage, e.g. 1525 → "15.25%".
func displayBps(bps uint16) string {
	return fmt.Sprintf("%d.%02d%%", bps/100, bps%100)
}
