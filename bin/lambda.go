package main

import (
	"path/filepath"
	"runtime"

	"github.com/30Piraten/fmtcf/config"
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3assets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/jsii-runtime-go"
)

// Lambda related resources
func createLambdaResources(resources *PipelineResources) awslambda.Function {
	// Create DLQ
	deadLetterQueue := createDeadLetterQueue(resources.stack)

	// Create Lambda function
	lambdaFunction := createLambdaFunction(resources.stack, deadLetterQueue)

	// The resolver reads parameters and secrets, and moves artifacts
	for _, statement := range resolverLookupPolicies(resources.props) {
		lambdaFunction.AddToRolePolicy(statement)
	}
	resources.artifactBucket.GrantReadWrite(lambdaFunction, nil)

	alarm(resources.stack, "ResolverErrorsAlarm", "Alarm for placeholder resolver errors",
		lambdaFunction.MetricErrors(&awscloudwatch.MetricOptions{
			Period:    awscdk.Duration_Minutes(jsii.Number(1)),
			Statistic: jsii.String("Sum"),
		}),
		resources.alarmTopic)

	return lambdaFunction
}

func createDeadLetterQueue(stack awscdk.Stack) awssqs.IQueue {
	return awssqs.NewQueue(stack, jsii.String("ResolverDLQ"), &awssqs.QueueProps{
		QueueName:       jsii.String("fmtcf-resolver-dlq"),
		RetentionPeriod: awscdk.Duration_Days(jsii.Number(7)),
	})
}

func createLambdaFunction(stack awscdk.Stack, dlq awssqs.IQueue) awslambda.Function {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		panic("Could not get file name")
	}
	// The bootstrap binary is built from bin/lambda before synth
	lambdaDir := filepath.Join(filepath.Dir(filename), "lambda")

	return awslambda.NewFunction(stack, jsii.String("resolverHandler"), &awslambda.FunctionProps{
		Runtime:         awslambda.Runtime_PROVIDED_AL2023(),
		Handler:         jsii.String("bootstrap"),
		RetryAttempts:   jsii.Number(0),
		MemorySize:      jsii.Number(512),
		Timeout:         awscdk.Duration_Minutes(jsii.Number(5)),
		Architecture:    awslambda.Architecture_ARM_64(),
		DeadLetterQueue: dlq,
		Code:            awslambda.Code_FromAsset(jsii.String(lambdaDir), &awss3assets.AssetOptions{}),
		Environment: &map[string]*string{
			config.EnvLookupTimeout: jsii.String("10s"),
			config.EnvMaxAttempts:   jsii.String("5"),
			config.EnvWorkers:       jsii.String("4"),
		},
		Tracing: awslambda.Tracing_ACTIVE,
	})
}
