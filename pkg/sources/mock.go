package sources

import (
	"context"
	"math/rand/v2"

	"github.com/ogulcanaydogan/cloudsaver/pkg/model"
	"github.com/shopspring/decimal"
)

// DefaultServices is the service catalog used by the synthetic generator.
var DefaultServices = []string{
	"Amazon EC2",
	"Amazon RDS",
	"Amazon S3",
	"AWS Lambda",
	"Amazon CloudFront",
	"Amazon DynamoDB",
	"AWS Data Transfer",
	"Amazon ECS",
	"Amazon VPC",
	"Amazon Route 53",
}

const (
	mockMinCents = 50
	mockMaxCents = 5000
)

// Mock generates realistic-looking daily costs when no billing account is
// available. Amounts depend only on the seed and the day, so re-fetching a
// window yields the same response.
type Mock struct {
	services []string
	seed     uint64
}

// NewMock creates a generator. Nil services selects DefaultServices.
func NewMock(services []string, seed uint64) *Mock {
	if len(services) == 0 {
		services = DefaultServices
	}
	return &Mock{services: services, seed: seed}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Fetch(ctx context.Context, w Window) (*model.RawUsageResponse, error) {
	raw := &model.RawUsageResponse{ResultsByTime: []model.ResultByTime{}}
	for _, day := range w.Days() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rng := rand.New(rand.NewPCG(m.seed, uint64(day.Unix())))
		groups := make([]model.Group, 0, len(m.services))
		for _, service := range m.services {
			cents := mockMinCents + rng.Int64N(mockMaxCents-mockMinCents+1)
			amount := decimal.New(cents, -2).StringFixed(2)
			groups = append(groups, model.Group{
				Keys: []string{service},
				Metrics: map[string]model.MetricValue{
					model.MetricUnblendedCost: {Amount: &amount, Unit: model.CurrencyUSD},
				},
			})
		}

		start := day.Format(model.DateLayout)
		raw.ResultsByTime = append(raw.ResultsByTime, model.ResultByTime{
			TimePeriod: &model.DateInterval{Start: start, End: day.AddDate(0, 0, 1).Format(model.DateLayout)},
			Groups:     groups,
		})
	}
	return raw, nil
}
