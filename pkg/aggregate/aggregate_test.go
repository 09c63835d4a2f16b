package aggregate_test

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/ogulcanaydogan/cloudsaver/pkg/aggregate"
	"github.com/ogulcanaydogan/cloudsaver/pkg/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(day, service, cost string) model.CostRecord {
	d, err := model.ParseDate(day)
	if err != nil {
		panic(err)
	}
	return model.CostRecord{Date: d, Service: service, Cost: decimal.RequireFromString(cost), Currency: model.CurrencyUSD}
}

func TestAggregate_TieBreak(t *testing.T) {
	records := []model.CostRecord{
		record("2024-01-01", "EC2", "10.00"),
		record("2024-01-02", "EC2", "5.00"),
		record("2024-01-01", "S3", "15.00"),
	}

	totals := aggregate.Aggregate(records)
	require.Len(t, totals, 2)
	assert.Equal(t, "EC2", totals[0].Service)
	assert.Equal(t, "15.00", totals[0].TotalCost.StringFixed(2))
	assert.Equal(t, "S3", totals[1].Service)
	assert.Equal(t, "15.00", totals[1].TotalCost.StringFixed(2))
}

func TestAggregate_OrderIndependentOfInput(t *testing.T) {
	records := []model.CostRecord{
		record("2024-01-01", "Lambda", "1.00"),
		record("2024-01-01", "EC2", "10.00"),
		record("2024-01-01", "S3", "10.00"),
		record("2024-01-01", "RDS", "20.00"),
		record("2024-01-02", "Lambda", "9.00"),
		record("2024-01-01", "CloudFront", "3.00"),
	}
	want := []string{"RDS", "EC2", "Lambda", "S3", "CloudFront"}

	rng := rand.New(rand.NewPCG(1, 2))
	for range 20 {
		shuffled := append([]model.CostRecord(nil), records...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		var got []string
		for _, total := range aggregate.Aggregate(shuffled) {
			got = append(got, total.Service)
		}
		assert.Equal(t, want, got)
	}
}

func TestAggregate_Empty(t *testing.T) {
	totals := aggregate.Aggregate(nil)
	assert.NotNil(t, totals)
	assert.Empty(t, totals)

	totals = aggregate.Aggregate([]model.CostRecord{})
	assert.NotNil(t, totals)
	assert.Empty(t, totals)
}

func TestAggregate_CaseSensitive(t *testing.T) {
	totals := aggregate.Aggregate([]model.CostRecord{
		record("2024-01-01", "Amazon S3", "1.00"),
		record("2024-01-01", "amazon s3", "2.00"),
	})
	require.Len(t, totals, 2)
	assert.Equal(t, "amazon s3", totals[0].Service)
	assert.Equal(t, "Amazon S3", totals[1].Service)
}

func TestAggregate_NoFloatDrift(t *testing.T) {
	var records []model.CostRecord
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 10000 {
		records = append(records, model.CostRecord{
			Date:    start.AddDate(0, 0, i),
			Service: "EC2",
			Cost:    decimal.RequireFromString("0.01"),
		})
	}

	totals := aggregate.Aggregate(records)
	require.Len(t, totals, 1)
	assert.True(t, totals[0].TotalCost.Equal(decimal.NewFromInt(100)), totals[0].TotalCost.String())
}

func TestCompare(t *testing.T) {
	a := model.ServiceTotal{Service: "A", TotalCost: decimal.NewFromInt(5)}
	b := model.ServiceTotal{Service: "B", TotalCost: decimal.NewFromInt(5)}
	c := model.ServiceTotal{Service: "C", TotalCost: decimal.NewFromInt(7)}

	assert.Negative(t, aggregate.Compare(a, b))
	assert.Positive(t, aggregate.Compare(b, a))
	assert.Negative(t, aggregate.Compare(c, a))
	assert.Zero(t, aggregate.Compare(a, a))
}

func TestSumAndTop(t *testing.T) {
	totals := aggregate.Aggregate([]model.CostRecord{
		record("2024-01-01", "EC2", "10.25"),
		record("2024-01-01", "S3", "4.50"),
		record("2024-01-01", "RDS", "0.25"),
	})

	assert.Equal(t, "15.00", aggregate.Sum(totals).StringFixed(2))
	assert.True(t, aggregate.Sum(nil).IsZero())

	top := aggregate.Top(totals, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "EC2", top[0].Service)
	assert.Len(t, aggregate.Top(totals, 0), 3)
	assert.Len(t, aggregate.Top(totals, 10), 3)
}
