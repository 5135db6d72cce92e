// cmd/quote/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/prediction-pump/internal/curve"
)

// quoteResult is the machine-readable output of one pricing query.
// Scaled integers carry the exact engine values; the *_display fields
// are decimal renderings for humans.
type quoteResult struct {
	Op     string `json:"op"`
	Supply uint64 `json:"supply"`
	Amount uint64 `json:"amount,omitempty"`

	Price        uint64 `json:"price,omitempty"`
	PriceDisplay string `json:"price_display,omitempty"`

	Total      uint64 `json:"total,omitempty"`
	TotalSOL   string `json:"total_sol,omitempty"`
	AvgPrice   uint64 `json:"avg_price,omitempty"`
	AvgDisplay string `json:"avg_price_display,omitempty"`

	SlippageBps uint16 `json:"slippage_bps,omitempty"`

	MarketCap    uint64 `json:"market_cap,omitempty"`
	MarketCapSOL string `json:"market_cap_sol,omitempty"`

	NewSupply uint64 `json:"new_supply,omitempty"`
}

func main() {
	op := flag.String("op", "buy", "Query: buy, sell, price or cap")
	initialPrice := flag.Uint64("initial-price", 1000, "Unit price at zero supply, scaled by 10000")
	steepness := flag.Uint64("steepness", 10000, "Curve steepness denominator")
	maxSupply := flag.Uint64("max-supply", 100000, "Maximum outstanding supply")
	feeBps := flag.Uint("fee-bps", 100, "Trading fee in basis points")
	supply := flag.Uint64("supply", 0, "Current outstanding supply")
	amount := flag.Uint64("amount", 0, "Trade size (buy/sell only)")
	asJSON := flag.Bool("json", false, "Emit a single JSON object instead of text")
	flag.Parse()

	if *feeBps > curve.MaxFeeRateBps {
		fatalf("fee-bps %d exceeds maximum %d", *feeBps, curve.MaxFeeRateBps)
	}

	params := curve.Params{
		InitialPrice:   *initialPrice,
		CurveSteepness: *steepness,
		MaxSupply:      *maxSupply,
		FeeRateBps:     uint16(*feeBps),
	}
	if err := params.Validate(); err != nil {
		fatalf("invalid curve: %v", err)
	}

	result, err := run(params, *op, *supply, *amount)
	if err != nil {
		fatalf("%s: %v", *op, err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		if err := enc.Encode(result); err != nil {
			fatalf("encode: %v", err)
		}
		return
	}
	printText(result)
}

// run executes one query against the curve.
func run(params curve.Params, op string, supply, amount uint64) (quoteResult, error) {
	result := quoteResult{Op: op, Supply: supply}

	switch op {
	case "price":
		price, err := params.PriceAt(supply)
		if err != nil {
			return result, err
		}
		result.Price = price
		result.PriceDisplay = displayPrice(price)

	case "cap":
		cap, err := params.MarketCap(supply)
		if err != nil {
			return result, err
		}
		result.MarketCap = cap
		result.MarketCapSOL = displaySOL(cap)

	case "buy", "sell":
		isBuy := op == "buy"
		result.Amount = amount

		var total uint64
		var err error
		if isBuy {
			total, err = params.BuyQuote(supply, amount)
			result.NewSupply = supply + amount
		} else {
			total, err = params.SellQuote(supply, amount)
			result.NewSupply = supply - amount
		}
		if err != nil {
			return result, err
		}

		slippage, err := params.Slippage(supply, amount, isBuy)
		if err != nil {
			return result, err
		}
		cap, err := params.MarketCap(result.NewSupply)
		if err != nil {
			return result, err
		}

		result.Total = total
		result.TotalSOL = displaySOL(total)
		result.AvgPrice = total / amount
		result.AvgDisplay = displayPrice(result.AvgPrice)
		result.SlippageBps = slippage
		result.MarketCap = cap
		result.MarketCapSOL = displaySOL(cap)

	default:
		return result, fmt.Errorf("unknown op %q (want buy, sell, price or cap)", op)
	}

	return result, nil
}

// printText writes the human layout: one aligned row per value.
func printText(r quoteResult) {
	switch r.Op {
	case "price":
		fmt.Printf("spot price:  %d (%s)\n", r.Price, r.PriceDisplay)
	case "cap":
		fmt.Printf("market cap:  %d lamports (%s SOL)\n", r.MarketCap, r.MarketCapSOL)
	case "buy":
		fmt.Printf("total cost:  %d lamports (%s SOL)\n", r.Total, r.TotalSOL)
		printTradeRows(r)
	case "sell":
		fmt.Printf("payout:      %d lamports (%s SOL)\n", r.Total, r.TotalSOL)
		printTradeRows(r)
	}
}

func printTradeRows(r quoteResult) {
	fmt.Printf("avg price:   %d (%s)\n", r.AvgPrice, r.AvgDisplay)
	fmt.Printf("slippage:    %d bps\n", r.SlippageBps)
	fmt.Printf("new supply:  %d\n", r.NewSupply)
	fmt.Printf("market cap:  %d lamports (%s SOL)\n", r.MarketCap, r.MarketCapSOL)
}

// displayPrice renders a scaled curve price as decimal text.
func displayPrice(scaled uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(scaled), 0).
		Div(decimal.NewFromInt(curve.Scale)).String()
}

// displaySOL renders lamports as SOL.
func displaySOL(lamports uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -9).String()
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "quote: "+format+"\n", args...)
	os.Exit(1)
}
