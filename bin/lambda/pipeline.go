package main

import (
	"context"
	"fmt"

	"github.com/30Piraten/fmtcf/config"
	"github.com/30Piraten/fmtcf/internal/batch"
	"github.com/30Piraten/fmtcf/internal/pipeline"
	"github.com/30Piraten/fmtcf/internal/resolver"
	"github.com/30Piraten/fmtcf/internal/source"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newRunner wires the AWS clients once per Lambda container. The source set
// is reused by every invocation the container serves.
func newRunner(ctx context.Context, cfg config.Config, logger *zap.Logger) (*pipeline.Runner, error) {
	awsCfg, err := source.LoadAWSConfig(ctx, source.AWSOptions{
		Region:      cfg.Region,
		MaxAttempts: cfg.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}

	set := source.NewSet(source.AWSSources(awsCfg),
		source.WithTimeout(cfg.LookupTimeout),
		source.WithLogger(logger))

	return pipeline.NewRunner(
		s3.NewFromConfig(awsCfg),
		codepipeline.NewFromConfig(awsCfg),
		resolver.New(set, resolver.WithLogger(logger)),
		batch.Options{Workers: cfg.Workers, FailFast: true},
		logger,
	), nil
}

// The handler is built here and started
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		panic(fmt.Sprintf("invalid configuration: %v", err))
	}

	zc := zap.NewProductionConfig()
	if cfg.Verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	runner, err := newRunner(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize runner", zap.Error(err))
	}

	lambda.Start(runner.Handle)
}
