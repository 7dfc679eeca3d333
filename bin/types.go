package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
)

// ResolverStackProps configures the placeholder resolver stack.
type ResolverStackProps struct {
	awscdk.StackProps
	// ParameterPath limits which SSM parameters the resolver may read, e.g. "/app/".
	ParameterPath string
	// SecretPrefix limits which secrets the resolver may read, e.g. "app/".
	SecretPrefix string
}

type PipelineResources struct {
	stack          awscdk.Stack
	props          *ResolverStackProps
	githubSecret   awssecretsmanager.ISecret
	artifactBucket awss3.IBucket
	alarmTopic     awssns.ITopic
}
