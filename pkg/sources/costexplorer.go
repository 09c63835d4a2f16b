package sources

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	ceTypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/ogulcanaydogan/cloudsaver/pkg/model"
)

// costExplorerRegion is the only region serving the Cost Explorer API.
const costExplorerRegion = "us-east-1"

// CostExplorerAPI is the subset of the Cost Explorer client used here.
type CostExplorerAPI interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

// CostExplorer fetches daily unblended cost grouped by service from AWS.
type CostExplorer struct {
	client CostExplorerAPI
}

// NewCostExplorer wraps an existing Cost Explorer client.
func NewCostExplorer(client CostExplorerAPI) *CostExplorer {
	return &CostExplorer{client: client}
}

// NewCostExplorerFromProfile builds a client from the shared AWS config.
// An empty profile uses the default credential chain.
func NewCostExplorerFromProfile(ctx context.Context, profile string) (*CostExplorer, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(costExplorerRegion)}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config for profile %q: %w", profile, err)
	}
	return NewCostExplorer(costexplorer.NewFromConfig(cfg)), nil
}

func (c *CostExplorer) Name() string { return "costexplorer" }

// Fetch calls GetCostAndUsage with DAILY granularity and follows pagination.
func (c *CostExplorer) Fetch(ctx context.Context, w Window) (*model.RawUsageResponse, error) {
	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &ceTypes.DateInterval{
			Start: aws.String(w.Start.Format(model.DateLayout)),
			End:   aws.String(w.End.Format(model.DateLayout)),
		},
		Granularity: ceTypes.GranularityDaily,
		Metrics:     []string{model.MetricUnblendedCost},
		GroupBy: []ceTypes.GroupDefinition{
			{Type: ceTypes.GroupDefinitionTypeDimension, Key: aws.String("SERVICE")},
		},
	}

	raw := &model.RawUsageResponse{ResultsByTime: []model.ResultByTime{}}
	for {
		out, err := c.client.GetCostAndUsage(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("get cost and usage %s: %w", w, err)
		}
		for _, result := range out.ResultsByTime {
			raw.ResultsByTime = append(raw.ResultsByTime, convertResult(result))
		}
		if aws.ToString(out.NextPageToken) == "" {
			break
		}
		input.NextPageToken = out.NextPageToken
	}
	return raw, nil
}

func convertResult(r ceTypes.ResultByTime) model.ResultByTime {
	out := model.ResultByTime{
		Groups:    make([]model.Group, 0, len(r.Groups)),
		Estimated: r.Estimated,
	}
	if r.TimePeriod != nil {
		out.TimePeriod = &model.DateInterval{
			Start: aws.ToString(r.TimePeriod.Start),
			End:   aws.ToString(r.TimePeriod.End),
		}
	}
	for _, g := range r.Groups {
		metrics := make(map[string]model.MetricValue, len(g.Metrics))
		for name, m := range g.Metrics {
			metrics[name] = model.MetricValue{Amount: m.Amount, Unit: aws.ToString(m.Unit)}
		}
		out.Groups = append(out.Groups, model.Group{
			Keys:    append([]string(nil), g.Keys...),
			Metrics: metrics,
		})
	}
	return out
}
