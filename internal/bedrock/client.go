// Package bedrock holds the Amazon Bedrock runtime plumbing shared by the
// embedding and generation adapters.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// Invoker is the subset of the Bedrock runtime client the adapters need.
type Invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

var _ Invoker = (*bedrockruntime.Client)(nil)

// NewRuntime loads the default AWS credential chain for region and returns a
// runtime client. An empty region defers to AWS_REGION and the shared config.
func NewRuntime(ctx context.Context, region string) (*bedrockruntime.Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return bedrockruntime.NewFromConfig(cfg), nil
}

// InvokeJSON marshals payload, invokes modelID and decodes the response body into out.
func InvokeJSON(ctx context.Context, inv Invoker, modelID string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	resp, err := inv.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("invoke %s: %w", modelID, err)
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", modelID, err)
	}
	return nil
}
