// Package normalize turns nested billing-provider responses into canonical
// per-day, per-service cost records.
package normalize

import (
	"fmt"
	"strings"

	"github.com/ogulcanaydogan/cloudsaver/pkg/model"
	"github.com/shopspring/decimal"
)

// Places is the number of decimal places kept on every normalized cost.
const Places = 2

// MinCost is the smallest raw amount kept. Anything below is rounding noise.
var MinCost = decimal.New(1, -Places)

// Normalize flattens raw into canonical cost records.
//
// The whole batch fails on the first structural problem or unparsable amount;
// no partial output is returned. Amounts below MinCost are dropped before
// rounding, so "0.005" yields nothing. Surviving amounts are rounded half away
// from zero to two places ("1.005" becomes 1.01). Output follows input order.
func Normalize(raw *model.RawUsageResponse) ([]model.CostRecord, error) {
	if raw == nil {
		return nil, malformed("", "", "nil response")
	}
	if raw.ResultsByTime == nil {
		return nil, malformed("", "", "missing ResultsByTime")
	}

	records := make([]model.CostRecord, 0, len(raw.ResultsByTime))
	seen := make(map[model.RecordKey]struct{})

	for i, period := range raw.ResultsByTime {
		if period.TimePeriod == nil {
			return nil, malformed("", "", fmt.Sprintf("ResultsByTime[%d]: missing TimePeriod", i))
		}
		day := period.TimePeriod.Start
		date, err := model.ParseDate(day)
		if err != nil {
			return nil, malformed("", "", fmt.Sprintf("ResultsByTime[%d]: invalid TimePeriod.Start %q", i, day))
		}
		if period.Groups == nil {
			return nil, malformed(day, "", "missing Groups")
		}

		for j, group := range period.Groups {
			service, err := serviceName(group)
			if err != nil {
				return nil, malformed(day, "", fmt.Sprintf("Groups[%d]: %v", j, err))
			}

			key := model.RecordKey{Date: day, Service: service}
			if _, dup := seen[key]; dup {
				return nil, malformed(day, service, "duplicate service in time period")
			}
			seen[key] = struct{}{}

			cost, err := parseCost(day, service, group)
			if err != nil {
				return nil, err
			}
			if cost.LessThan(MinCost) {
				continue
			}

			records = append(records, model.CostRecord{
				Date:     date,
				Service:  service,
				Cost:     cost.Round(Places),
				Currency: model.CurrencyUSD,
			})
		}
	}

	return records, nil
}

func serviceName(g model.Group) (string, error) {
	if len(g.Keys) != 1 {
		return "", fmt.Errorf("expected exactly one key, got %d", len(g.Keys))
	}
	if strings.TrimSpace(g.Keys[0]) == "" {
		return "", fmt.Errorf("empty service name")
	}
	return g.Keys[0], nil
}

func parseCost(day, service string, g model.Group) (decimal.Decimal, error) {
	metric, ok := g.Metrics[model.MetricUnblendedCost]
	if !ok {
		return decimal.Zero, malformed(day, service, "missing "+model.MetricUnblendedCost+" metric")
	}
	if metric.Unit != "" && metric.Unit != model.CurrencyUSD {
		return decimal.Zero, malformed(day, service, fmt.Sprintf("unsupported unit %q", metric.Unit))
	}
	if metric.Amount == nil {
		return decimal.Zero, invalidAmount(day, service, "missing Amount")
	}

	amount := strings.TrimSpace(*metric.Amount)
	cost, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, invalidAmount(day, service, fmt.Sprintf("%q is not a decimal", *metric.Amount))
	}
	return cost, nil
}

func malformed(day, service, reason string) error {
	return &model.InputError{Kind: model.ErrMalformedInput, Date: day, Service: service, Reason: reason}
}

func invalidAmount(day, service, reason string) error {
	return &model.InputError{Kind: model.ErrInvalidAmount, Date: day, Service: service, Reason: reason}
}
