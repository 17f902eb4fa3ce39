package transfer

import (
	"context"
	"encoding/json"

	"go-pos/pkg/model"
	"go-pos/pkg/money"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	RateConfigured = "configured"
	RateDefault    = "default"
)

// Rate is the tax rate used for a merge estimate, as a fraction (0.08).
type Rate struct {
	Value  decimal.Decimal
	Source string
	// Names of the configured rates that were summed.
	Names []string
}

// MergePreview is the client-side estimate shown before a merge. The backend recomputes the
// real total after merging.
type MergePreview struct {
	SourceSubtotal      decimal.Decimal
	DestinationSubtotal decimal.Decimal
	CombinedSubtotal    decimal.Decimal
	EstimatedTax        decimal.Decimal
	EstimatedTotal      decimal.Decimal
	Rate                Rate
}

func NewMergePreview(src, dst model.Order, rate Rate) MergePreview {
	combined := src.SubtotalOrItems().Add(dst.SubtotalOrItems())
	tax := money.Cents(combined.Mul(rate.Value))
	return MergePreview{
		SourceSubtotal:      src.SubtotalOrItems(),
		DestinationSubtotal: dst.SubtotalOrItems(),
		CombinedSubtotal:    combined,
		EstimatedTax:        tax,
		EstimatedTotal:      combined.Add(tax),
		Rate:                rate,
	}
}

// Summary is the preview with every amount formatted for display.
type Summary struct {
	SourceSubtotal      string   `json:"source_subtotal"`
	DestinationSubtotal string   `json:"destination_subtotal"`
	CombinedSubtotal    string   `json:"combined_subtotal"`
	EstimatedTax        string   `json:"estimated_tax"`
	EstimatedTotal      string   `json:"estimated_total"`
	TaxRate             string   `json:"tax_rate"`
	RateSource          string   `json:"rate_source"`
	RateNames           []string `json:"rate_names,omitempty"`
	Estimate            bool     `json:"estimate"`
}

func (p MergePreview) Summary() Summary {
	return Summary{
		SourceSubtotal:      money.Format(p.SourceSubtotal),
		DestinationSubtotal: money.Format(p.DestinationSubtotal),
		CombinedSubtotal:    money.Format(p.CombinedSubtotal),
		EstimatedTax:        money.Format(p.EstimatedTax),
		EstimatedTotal:      money.Format(p.EstimatedTotal),
		TaxRate:             p.Rate.Value.Mul(decimal.NewFromInt(100)).String() + "%",
		RateSource:          p.Rate.Source,
		RateNames:           p.Rate.Names,
		Estimate:            true,
	}
}

func (p MergePreview) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Summary())
}

// TaxSource lists the configured tax rates.
type TaxSource interface {
	ListTaxRates(ctx context.Context) ([]model.TaxRate, error)
}

// TaxEstimator picks the rate for merge previews: the active dine-in rates from the tax
// configuration, or a fixed fallback when none can be loaded.
type TaxEstimator struct {
	src      TaxSource
	fallback decimal.Decimal
	log      *log.Entry
}

func NewTaxEstimator(src TaxSource, fallback float64, logger *log.Entry) *TaxEstimator {
	return &TaxEstimator{src: src, fallback: decimal.NewFromFloat(fallback), log: logger}
}

func (e *TaxEstimator) Rate(ctx context.Context) Rate {
	def := Rate{Value: e.fallback, Source: RateDefault}
	if e.src == nil {
		return def
	}
	rates, err := e.src.ListTaxRates(ctx)
	if err != nil {
		e.log.WithError(err).Warn("tax rates unavailable, using default estimate rate")
		return def
	}
	sum := decimal.Zero
	var names []string
	for _, r := range rates {
		if !r.IsActive || !r.AppliesToType(model.DineIn) {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(r.Rate))
		names = append(names, r.Name)
	}
	if len(names) == 0 {
		return def
	}
	return Rate{Value: sum.Div(decimal.NewFromInt(100)), Source: RateConfigured, Names: names}
}
