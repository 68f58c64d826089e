package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ledgerpay/transfer/internal/domain"
)

// ConfigurableExchangeRateProvider serves rates from a static pair table.
// Rates are supplied by configuration; real-time quoting is out of scope.
type ConfigurableExchangeRateProvider struct {
	rates map[string]map[string]decimal.Decimal
}

func NewConfigurableExchangeRateProvider(rates map[string]map[string]decimal.Decimal) *ConfigurableExchangeRateProvider {
	if rates == nil {
		rates = map[string]map[string]decimal.Decimal{}
	}
	return &ConfigurableExchangeRateProvider{rates: rates}
}

// Rate returns the rate converting one unit of source into target.
func (p *ConfigurableExchangeRateProvider) Rate(ctx context.Context, sourceCurrency, targetCurrency string) (decimal.Decimal, error) {
	if err := domain.ValidateCurrency(sourceCurrency); err != nil {
		return decimal.Zero, err
	}
	if err := domain.ValidateCurrency(targetCurrency); err != nil {
		return decimal.Zero, err
	}
	if sourceCurrency == targetCurrency {
		return decimal.NewFromInt(1), nil
	}

	rate, ok := p.rates[sourceCurrency][targetCurrency]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: exchange rate not available: %s -> %s",
			domain.ErrInvalidArgument, sourceCurrency, targetCurrency)
	}
	return rate, nil
}

// Convert multiplies the minor-unit amount by the configured rate, rounding
// half-up to whole minor units.
func (p *ConfigurableExchangeRateProvider) Convert(ctx context.Context, amount domain.Money, targetCurrency string) (domain.Money, error) {
	rate, err := p.Rate(ctx, amount.Currency, targetCurrency)
	if err != nil {
		return domain.Money{}, err
	}

	converted := amount.ToDecimal().Mul(rate).Round(0).IntPart()
	return domain.NewMoney(converted, targetCurrency)
}
