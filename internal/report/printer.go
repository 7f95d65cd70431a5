package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/sawpanic/cadvi/internal/application/pipeline"
	"github.com/sawpanic/cadvi/internal/backtest/montecarlo"
	"github.com/sawpanic/cadvi/internal/domain/market"
)

const rule = "================================================================================"

// Printer renders scan and simulation results for a terminal
type Printer struct {
	w         io.Writer
	verbose   bool
	portfolio float64

	title *color.Color
	info  *color.Color
	good  *color.Color
	warn  *color.Color
	bad   *color.Color
}

// Option customises a printer
type Option func(*Printer)

// WithVerbose adds per-candidate factor and indicator detail
func WithVerbose(v bool) Option {
	return func(p *Printer) { p.verbose = v }
}

// WithColor forces colour on or off; by default fatih/color decides from the TTY
func WithColor(enabled bool) Option {
	return func(p *Printer) {
		for _, c := range p.colors() {
			if enabled {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

// WithPortfolio sets the portfolio value used for dollar position sizes
func WithPortfolio(v float64) Option {
	return func(p *Printer) { p.portfolio = v }
}

// NewPrinter creates a printer writing to w
func NewPrinter(w io.Writer, opts ...Option) *Printer {
	p := &Printer{
		w:         w,
		portfolio: 10_000,
		title:     color.New(color.FgCyan, color.Bold),
		info:      color.New(color.FgCyan),
		good:      color.New(color.FgGreen),
		warn:      color.New(color.FgYellow),
		bad:       color.New(color.FgRed),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Printer) colors() []*color.Color {
	return []*color.Color{p.title, p.info, p.good, p.warn, p.bad}
}

func (p *Printer) printf(c *color.Color, format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	if c != nil {
		line = c.Sprint(line)
	}
	fmt.Fprintln(p.w, line)
}

// scoreColor mirrors the quick list: green above 75, yellow above 65
func (p *Printer) scoreColor(score float64) *color.Color {
	switch {
	case score > 75:
		return p.good
	case score > 65:
		return p.warn
	default:
		return nil
	}
}

func (p *Printer) riskColor(level market.RiskLevel) *color.Color {
	switch level {
	case market.RiskExtreme:
		return p.bad
	case market.RiskHigh:
		return p.warn
	default:
		return p.good
	}
}

func categoryLabel(c market.Category) string {
	if c == "" {
		return "all"
	}
	return string(c)
}

// Scan prints the ranked candidates of a scan
func (p *Printer) Scan(result *pipeline.Result) {
	p.printf(p.title, "CADVI SCAN %s", result.ScanID)
	p.printf(p.info, "BTC regime: %s | Category: %s | Analyzed: %d | Eligible: %d | Skipped: %d",
		strings.ToUpper(result.BTCRegime.String()), categoryLabel(result.Category),
		result.Analyzed, result.Eligible, result.Rejected+result.Excluded)
	fmt.Fprintln(p.w, rule)

	if result.NoOpportunities() {
		p.printf(p.bad, "No opportunities passed the entry gates.")
		p.printf(p.warn, "Most coins are either overextended, fading on volume or flagged for wash trading.")
		fmt.Fprintln(p.w)
		return
	}

	p.printf(p.info, "%-3s %-8s %12s %10s %9s %6s %6s %-8s %12s %12s",
		"#", "SYMBOL", "PRICE", "MCAP", "24H", "SCORE", "SIZE", "RISK", "TARGET", "STOP")
	for i, c := range result.Candidates {
		p.printf(p.scoreColor(c.Score), "%-3d %-8s %12s %10s %9s %6.1f %5.1f%% %-8s %12s %12s",
			i+1, c.Symbol, Price(c.Price), USD(c.MarketCap), Percent(c.PercentChange24h),
			c.Score, c.PositionSizePct, c.RiskLevel, Price(c.TakeProfit), Price(c.StopLoss))
	}
	fmt.Fprintln(p.w)

	if p.verbose {
		for i, c := range result.Candidates {
			p.candidate(i+1, c)
		}
	}
}

func (p *Printer) candidate(rank int, c pipeline.ScoredCandidate) {
	p.printf(p.title, "#%d %s (%s)", rank, c.Name, c.Symbol)
	fmt.Fprintln(p.w, strings.Repeat("-", len(rule)))
	fmt.Fprintf(p.w, "  Price %s | Market cap %s | 24h volume %s | Tier %s\n",
		Price(c.Price), USD(c.MarketCap), USD(c.Volume24h), c.Tier)
	fmt.Fprintf(p.w, "  Change 1h %s | 24h %s | 7d %s\n",
		Percent(c.PercentChange1h), Percent(c.PercentChange24h), Percent(c.PercentChange7d))
	fmt.Fprintf(p.w, "  Score %.2f/100 (raw %.2f)\n", c.Score, c.RawScore)

	f := c.Factors
	fmt.Fprintf(p.w, "  RSI %.1f | MACD %.1f | Bollinger %.1f | BTC correlation %.1f (%s)\n",
		f.RSI, f.MACD, f.Bollinger, f.Correlation, c.Correlation.Bucket)
	fmt.Fprintf(p.w, "  Momentum %.1f | Volume %.1f | Cap risk %.1f | Volatility %.1f\n",
		f.Momentum, f.VolumeActivity, f.MarketCapRisk, f.Volatility)
	if c.Indicators.Estimated {
		p.printf(p.warn, "  Indicators estimated from snapshot changes")
	}

	if c.Wash.Suspicious {
		p.printf(p.bad, "  WARNING: possible wash trading (confidence %.0f%%)", c.Wash.Confidence)
	} else {
		p.printf(p.good, "  Volume appears legitimate (wash confidence %.0f%%)", c.Wash.Confidence)
	}

	fmt.Fprintf(p.w, "  Position %.1f%% of portfolio, %s on %s | win p=%.2f | R:R %.2f\n",
		c.PositionSizePct, Notional(p.portfolio, c.PositionSizePct), USD(p.portfolio),
		c.WinProbability, c.RewardRisk)
	fmt.Fprintf(p.w, "  Entry %s | Take profit %s (+%.1f%%) | Stop loss %s (-%.1f%%) | %s\n",
		Price(c.Price), Price(c.TakeProfit), c.TargetPct, Price(c.StopLoss), c.StopPct, c.Timeframe)

	fmt.Fprint(p.w, "  Risk: ")
	p.printf(p.riskColor(c.RiskLevel), "%s", c.RiskLevel)
	if c.InfoURL != "" {
		fmt.Fprintf(p.w, "  More info: %s\n", c.InfoURL)
	}
	fmt.Fprintln(p.w)
}

// Quick prints the limit-order list: buy at market, sell at the target
func (p *Printer) Quick(result *pipeline.Result) {
	if result.NoOpportunities() {
		p.printf(p.bad, "No high-probability opportunities right now. Try again later.")
		return
	}

	p.printf(p.good, "TOP PICKS - READY TO TRADE:")
	fmt.Fprintln(p.w)
	p.printf(p.info, "%-10s  %-12s  %-12s  %-8s  %-10s  %s", "Symbol", "Entry", "Target", "Gain", "Time", "Score")
	fmt.Fprintln(p.w, strings.Repeat("-", 75))
	for _, c := range result.Candidates {
		p.printf(p.scoreColor(c.Score), "%-10s  %-12s  %-12s  %-8s  %-10s  %.0f",
			c.Symbol, Price(c.Price), Price(c.TakeProfit), fmt.Sprintf("+%.1f%%", c.TargetPct), c.Timeframe, c.Score)
	}

	fmt.Fprintln(p.w, strings.Repeat("=", 75))
	p.printf(p.info, "How to execute:")
	fmt.Fprintln(p.w, "1. Buy the symbol on a spot exchange")
	fmt.Fprintln(p.w, "2. Place a LIMIT SELL at the target price")
	fmt.Fprintln(p.w, "3. Wait for the fill, then scan again")
	fmt.Fprintln(p.w, strings.Repeat("=", 75))
	p.printf(p.info, "Analysis: %d coins | Passed gates: %d | Showing: %d",
		result.Analyzed, result.Eligible, len(result.Candidates))
}

// WashSuspects prints up to limit flagged coins, highest confidence first
func (p *Printer) WashSuspects(suspects []pipeline.WashSuspect, limit int) {
	if len(suspects) == 0 {
		p.printf(p.good, "No wash trading detected in analyzed coins.")
		return
	}

	fmt.Fprintln(p.w, rule)
	p.printf(p.bad, "WASH TRADING DETECTION REPORT")
	p.printf(p.warn, "The following coins show suspicious volume patterns:")
	fmt.Fprintln(p.w, rule)

	if limit <= 0 || limit > len(suspects) {
		limit = len(suspects)
	}
	for _, s := range suspects[:limit] {
		p.printf(p.bad, "%s (%s)", s.Symbol, s.Name)
		fmt.Fprintf(p.w, "   Confidence: %.0f%%\n", s.Wash.Confidence)
		fmt.Fprintf(p.w, "   Volume change: %s\n", Percent(s.VolumeChange24h))
		fmt.Fprintf(p.w, "   Price change: %s\n", Percent(s.PercentChange24h))
		fmt.Fprintf(p.w, "   Market cap: %s\n", USD(s.MarketCap))
		if len(s.Wash.Rules) > 0 {
			rules := make([]string, len(s.Wash.Rules))
			for i, r := range s.Wash.Rules {
				rules[i] = string(r)
			}
			fmt.Fprintf(p.w, "   Rules: %s\n", strings.Join(rules, ", "))
		}
	}
	if limit < len(suspects) {
		fmt.Fprintf(p.w, "... and %d more\n", len(suspects)-limit)
	}
	p.printf(p.warn, "These coins are excluded from recommendations.")
	fmt.Fprintln(p.w, rule)
}

// Simulation prints a Monte Carlo report with its synthetic label and verdict
func (p *Printer) Simulation(r *montecarlo.Report) {
	a := r.Aggregate

	fmt.Fprintln(p.w, rule)
	p.printf(p.title, "MONTE CARLO SIMULATION [%s]", r.Kind)
	p.printf(p.warn, "%s", r.Disclaimer)
	fmt.Fprintln(p.w, rule)

	fmt.Fprintf(p.w, "  Seed:                %d\n", r.Seed)
	fmt.Fprintf(p.w, "  Runs:                %d x %d trades\n", a.Runs, a.TradesPerRun)
	fmt.Fprintf(p.w, "  Profitable runs:     %.1f%% (expected %.1f%%, band %.1f%%-%.1f%%)\n",
		a.ProfitableFraction*100, a.ExpectedProfitable.Expected*100,
		a.ExpectedProfitable.Low*100, a.ExpectedProfitable.High*100)
	fmt.Fprintf(p.w, "  Win rate:            %.1f%% (expected %.1f%%)\n", a.MeanWinRate*100, a.ExpectedWinRate*100)
	fmt.Fprintf(p.w, "  Total return:        mean %s | median %s\n", Percent(a.MeanTotalReturnPct), Percent(a.MedianTotalReturnPct))
	fmt.Fprintf(p.w, "  Best / worst run:    %s / %s\n", Percent(a.BestTotalReturnPct), Percent(a.WorstTotalReturnPct))
	fmt.Fprintf(p.w, "  Mean max drawdown:   %.2f%%\n", a.MeanMaxDrawdownPct)
	fmt.Fprintf(p.w, "  Risk-adjusted ratio: mean %.2f | median %.2f\n", a.MeanRiskAdjusted, a.MedianRiskAdjusted)

	if p.verbose {
		fmt.Fprintln(p.w)
		p.printf(p.info, "  %-8s %6s %8s %8s %9s  %s", "SYMBOL", "WIN P", "TARGET", "STOP", "SIZE", "RISK")
		for _, t := range r.Trades {
			fmt.Fprintf(p.w, "  %-8s %6.2f %7.1f%% %7.1f%% %8.1f%%  %s\n",
				t.Symbol, t.WinProbability, t.TargetPct, t.StopPct, t.PositionPct, t.RiskLevel)
		}
	}

	verdict := a.Verdict()
	c := p.bad
	switch verdict {
	case "ROBUST":
		c = p.good
	case "MODERATE":
		c = p.warn
	}
	fmt.Fprintln(p.w)
	fmt.Fprint(p.w, "  Verdict: ")
	p.printf(c, "%s", verdict)
	fmt.Fprintln(p.w, rule)
}
