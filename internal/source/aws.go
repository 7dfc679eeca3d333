package source

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// maxBackoff caps the SDK's exponential backoff between retries.
const maxBackoff = 5 * time.Second

// AWSOptions controls how the AWS configuration is loaded.
type AWSOptions struct {
	Region      string
	Profile     string
	MaxAttempts int
}

// LoadAWSConfig loads the default AWS configuration with a bounded
// exponential backoff retryer.
func LoadAWSConfig(ctx context.Context, opts AWSOptions) (aws.Config, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	attempts := opts.MaxAttempts
	if attempts < 1 {
		attempts = retry.DefaultMaxAttempts
	}
	loadOpts = append(loadOpts, config.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = attempts
			o.MaxBackoff = maxBackoff
		})
	}))

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// AWSSources builds the parameter store, secrets manager and environment
// sources. Parameters are always fetched with decryption.
func AWSSources(cfg aws.Config) []Source {
	return []Source{
		NewParameters(ssm.NewFromConfig(cfg), true),
		NewSecrets(secretsmanager.NewFromConfig(cfg)),
		NewEnv(nil),
	}
}
