// internal/tui/explorer.go
package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/prediction-pump/internal/curve"
	"github.com/rovshanmuradov/prediction-pump/internal/logger"
	"github.com/rovshanmuradov/prediction-pump/internal/tui/component"
	"github.com/rovshanmuradov/prediction-pump/internal/tui/style"
)

// Form field names.
const (
	fieldInitialPrice = "initial_price"
	fieldSteepness    = "curve_steepness"
	fieldMaxSupply    = "max_supply"
	fieldFeeBps       = "fee_bps"
	fieldSupply       = "supply"
	fieldAmount       = "amount"
)

const (
	ladderSteps  = 10
	sparkSamples = 48
	logsHeight   = 12
)

// quoteState holds the last successful pricing round. All values come
// straight out of the curve math; the view only formats them.
type quoteState struct {
	params    curve.Params
	supply    uint64
	amount    uint64
	isBuy     bool
	total     uint64
	avgPrice  uint64
	spot      uint64
	spotAfter uint64
	slippage  uint16
	capAfter  uint64
	newSupply uint64
}

// Explorer is the interactive bonding-curve playground: edit the curve
// parameters on the left, watch the price ladder, curve shape and a live
// buy/sell quote react on the right. Everything is computed locally,
// no market state is touched.
type Explorer struct {
	width  int
	height int

	keyMap  KeyMap
	logger  *zap.Logger
	form    *component.Form
	spark   *component.Sparkline
	ladder  *component.Table
	helpBar *component.HelpBar
	logView *component.LogViewer

	isBuy    bool
	showLogs bool

	quote      quoteState
	quoteErr   error
	haveQuote  bool
	sparkEmpty bool
	sparkMax   uint64
	lastLogged string

	styles explorerStyles
}

type explorerStyles struct {
	title     lipgloss.Style
	panel     lipgloss.Style
	paneTitle lipgloss.Style
	label     lipgloss.Style
	value     lipgloss.Style
	buySide   lipgloss.Style
	sellSide  lipgloss.Style
	errLine   lipgloss.Style
	muted     lipgloss.Style
}

// NewExplorer builds the explorer with a sensible demo curve prefilled,
// so the first frame already shows a complete quote. The buffer backs
// the log pane and may be shared with the zap logger writing to it.
func NewExplorer(log *zap.Logger, buffer *logger.LogBuffer) *Explorer {
	palette := style.DefaultPalette()

	e := &Explorer{
		keyMap: DefaultKeyMap(),
		logger: log,
		isBuy:  true,

		styles: explorerStyles{
			title: lipgloss.NewStyle().
				Foreground(palette.Primary).
				Bold(true).
				Padding(0, 1),
			panel:     style.PanelStyle(),
			paneTitle: style.TitleStyle(),
			label: lipgloss.NewStyle().
				Foreground(palette.TextMuted).
				Width(14),
			value: lipgloss.NewStyle().
				Foreground(palette.Text),
			buySide: lipgloss.NewStyle().
				Foreground(palette.Yes).
				Bold(true),
			sellSide: lipgloss.NewStyle().
				Foreground(palette.No).
				Bold(true),
			errLine: lipgloss.NewStyle().
				Foreground(palette.Error),
			muted: lipgloss.NewStyle().
				Foreground(palette.TextMuted),
		},
	}

	e.form = component.NewForm().
		SetLabelWidth(16).
		AddField(fieldInitialPrice, "Initial price", "1000", validateUint64).
		AddField(fieldSteepness, "Steepness", "10000", validateUint64).
		AddField(fieldMaxSupply, "Max supply", "100000", validateUint64).
		AddField(fieldFeeBps, "Fee (bps)", "100", validateUint16).
		AddField(fieldSupply, "Supply", "0", validateUint64).
		AddField(fieldAmount, "Amount", "10000", validateUint64)

	e.spark = component.NewSparkline(sparkSamples)
	e.helpBar = component.NewHelpBar().SetKeyBindings(e.keyMap.HelpBindings())
	e.logView = component.NewLogViewer(buffer, 80, logsHeight)

	e.ladder = component.NewTable().
		AddColumn("Supply", 12, lipgloss.Right).
		AddColumn("Spot Price", 14, lipgloss.Right).
		AddColumn("Market Cap", 16, lipgloss.Right)

	e.recompute()
	return e
}

// Init starts the cursor blink.
func (e *Explorer) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles window sizing, the global shortcuts and input editing.
func (e *Explorer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		e.SetSize(msg.Width, msg.Height)
		return e, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, e.keyMap.Quit):
			return e, tea.Quit

		case key.Matches(msg, e.keyMap.ToggleSide):
			e.isBuy = !e.isBuy
			e.recompute()
			e.logView.Refresh()
			return e, nil

		case key.Matches(msg, e.keyMap.ToggleLogs):
			e.showLogs = !e.showLogs
			if e.showLogs {
				e.logView.Refresh()
			}
			return e, nil

		case key.Matches(msg, e.keyMap.CycleFilter):
			if e.showLogs {
				e.logView.CycleFilter()
			}
			return e, nil
		}

		// Page keys scroll the log pane; everything else edits the form.
		switch msg.String() {
		case "pgup", "pgdown", "home", "end":
			if e.showLogs {
				var cmd tea.Cmd
				e.logView, cmd = e.logView.Update(msg)
				return e, cmd
			}
		}

		var cmd tea.Cmd
		e.form, cmd = e.form.Update(msg)
		e.recompute()
		if e.showLogs {
			e.logView.Refresh()
		}
		return e, cmd
	}

	return e, nil
}

// SetSize relays the terminal dimensions to the panels.
func (e *Explorer) SetSize(width, height int) {
	e.width = width
	e.height = height
	e.helpBar.SetWidth(width - 2)
	e.logView.SetSize(width, logsHeight)
}

// recompute re-reads the form, validates the curve record and rebuilds
// the ladder, the sparkline and the quote. It runs on every keystroke;
// the math is integer-only and cheap.
func (e *Explorer) recompute() {
	params, supply, amount, err := e.parseInputs()
	if err == nil {
		err = params.Validate()
	}
	if err != nil {
		e.quoteErr = err
		e.logOnce("reject", err)
		return
	}

	e.buildLadder(params)
	e.buildSpark(params)

	quote, err := e.buildQuote(params, supply, amount)
	if err != nil {
		e.quoteErr = err
		e.logOnce("reject", err)
		return
	}

	e.quote = quote
	e.quoteErr = nil
	e.haveQuote = true
	e.logQuote(quote)
}

// parseInputs reads the six fields into a curve record plus trade state.
// The form's own validation marks the failing field; the returned error
// feeds the quote panel.
func (e *Explorer) parseInputs() (curve.Params, uint64, uint64, error) {
	if !e.form.Validate() {
		return curve.Params{}, 0, 0, fmt.Errorf("fix the highlighted fields")
	}

	initialPrice, err := strconv.ParseUint(e.form.Value(fieldInitialPrice), 10, 64)
	if err != nil {
		return curve.Params{}, 0, 0, fmt.Errorf("initial price: %w", err)
	}
	steepness, err := strconv.ParseUint(e.form.Value(fieldSteepness), 10, 64)
	if err != nil {
		return curve.Params{}, 0, 0, fmt.Errorf("steepness: %w", err)
	}
	maxSupply, err := strconv.ParseUint(e.form.Value(fieldMaxSupply), 10, 64)
	if err != nil {
		return curve.Params{}, 0, 0, fmt.Errorf("max supply: %w", err)
	}
	feeBps, err := strconv.ParseUint(e.form.Value(fieldFeeBps), 10, 16)
	if err != nil {
		return curve.Params{}, 0, 0, fmt.Errorf("fee: %w", err)
	}
	supply, err := strconv.ParseUint(e.form.Value(fieldSupply), 10, 64)
	if err != nil {
		return curve.Params{}, 0, 0, fmt.Errorf("supply: %w", err)
	}
	amount, err := strconv.ParseUint(e.form.Value(fieldAmount), 10, 64)
	if err != nil {
		return curve.Params{}, 0, 0, fmt.Errorf("amount: %w", err)
	}

	params := curve.Params{
		InitialPrice:   initialPrice,
		CurveSteepness: steepness,
		MaxSupply:      maxSupply,
		FeeRateBps:     uint16(feeBps),
	}
	return params, supply, amount, nil
}

// buildLadder fills the table with spot price and market cap at even
// supply steps up to max supply. Steps the curve cannot price render as
// "overflow" instead of aborting the whole ladder.
func (e *Explorer) buildLadder(params curve.Params) {
	rows := make([][]string, 0, ladderSteps+1)
	step := params.MaxSupply / ladderSteps

	for i := 0; i <= ladderSteps; i++ {
		supply := step * uint64(i)
		if i == ladderSteps {
			supply = params.MaxSupply
		}

		priceCell := "overflow"
		if price, err := params.PriceAt(supply); err == nil {
			priceCell = displayPrice(price)
		}
		capCell := "overflow"
		if cap, err := params.MarketCap(supply); err == nil {
			capCell = displaySOL(cap)
		}

		rows = append(rows, []string{
			strconv.FormatUint(supply, 10),
			priceCell,
			capCell,
		})
	}
	e.ladder.SetRows(rows)
}

// buildSpark samples the spot price across the whole supply range.
func (e *Explorer) buildSpark(params curve.Params) {
	data := make([]float64, 0, sparkSamples)
	step := params.MaxSupply / (sparkSamples - 1)

	for i := 0; i < sparkSamples; i++ {
		supply := step * uint64(i)
		if i == sparkSamples-1 {
			supply = params.MaxSupply
		}
		price, err := params.PriceAt(supply)
		if err != nil {
			break
		}
		data = append(data, float64(price))
	}

	e.sparkEmpty = len(data) == 0
	e.sparkMax = params.MaxSupply
	e.spark.SetData(data)
}

// buildQuote prices one trade on the current side.
func (e *Explorer) buildQuote(params curve.Params, supply, amount uint64) (quoteState, error) {
	spot, err := params.PriceAt(supply)
	if err != nil {
		return quoteState{}, err
	}

	var total, newSupply uint64
	if e.isBuy {
		total, err = params.BuyQuote(supply, amount)
		newSupply = supply + amount
	} else {
		total, err = params.SellQuote(supply, amount)
		newSupply = supply - amount
	}
	if err != nil {
		return quoteState{}, err
	}

	slippage, err := params.Slippage(supply, amount, e.isBuy)
	if err != nil {
		return quoteState{}, err
	}
	spotAfter, err := params.PriceAt(newSupply)
	if err != nil {
		return quoteState{}, err
	}
	capAfter, err := params.MarketCap(newSupply)
	if err != nil {
		return quoteState{}, err
	}

	return quoteState{
		params:    params,
		supply:    supply,
		amount:    amount,
		isBuy:     e.isBuy,
		total:     total,
		avgPrice:  total / amount,
		spot:      spot,
		spotAfter: spotAfter,
		slippage:  slippage,
		capAfter:  capAfter,
		newSupply: newSupply,
	}, nil
}

// logQuote records a successful pricing round, once per distinct state.
func (e *Explorer) logQuote(q quoteState) {
	side := "buy"
	if !q.isBuy {
		side = "sell"
	}
	fingerprint := fmt.Sprintf("ok|%s|%d|%d|%s", q.params, q.supply, q.amount, side)
	if fingerprint == e.lastLogged {
		return
	}
	e.lastLogged = fingerprint

	e.logger.Info("💱 Quote refreshed",
		zap.String("side", side),
		zap.Uint64("supply", q.supply),
		zap.Uint64("amount", q.amount),
		zap.Uint64("total", q.total),
		zap.Uint16("slippage_bps", q.slippage))
}

// logOnce records a rejected state without flooding the pane while the
// user is mid-edit.
func (e *Explorer) logOnce(kind string, err error) {
	fingerprint := kind + "|" + err.Error()
	if fingerprint == e.lastLogged {
		return
	}
	e.lastLogged = fingerprint
	e.logger.Warn("Quote rejected", zap.Error(err))
}

func validateUint64(v string) error {
	if _, err := strconv.ParseUint(v, 10, 64); err != nil {
		return fmt.Errorf("not a number")
	}
	return nil
}

func validateUint16(v string) error {
	if _, err := strconv.ParseUint(v, 10, 16); err != nil {
		return fmt.Errorf("not a number")
	}
	return nil
}
