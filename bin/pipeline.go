package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodebuild"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodepipeline"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodepipelineactions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/jsii-runtime-go"
)

// Pipeline related resources
func createPipelineResources(resources *PipelineResources, lambdaFunction awslambda.Function, codeBuildProject awscodebuild.PipelineProject) awscodepipeline.Pipeline {
	// Create pipeline role
	pipelineRole := createPipelineRole(resources.stack)

	// Create artifacts
	sourceArtifact := awscodepipeline.NewArtifact(jsii.String("SourceArtifact"), nil)
	resolvedArtifact := awscodepipeline.NewArtifact(jsii.String("ResolvedArtifact"), nil)
	buildArtifact := awscodepipeline.NewArtifact(jsii.String("BuildArtifact"), nil)

	// Create pipeline
	pipeline := awscodepipeline.NewPipeline(resources.stack, jsii.String("ResolverPipeline"),
		&awscodepipeline.PipelineProps{
			PipelineName:   jsii.String("fmtcf-pipeline"),
			ArtifactBucket: resources.artifactBucket,
			Role:           pipelineRole,
			Stages: &[]*awscodepipeline.StageProps{
				createSourceStage(sourceArtifact, resources.githubSecret),
				createResolveStage(sourceArtifact, resolvedArtifact, lambdaFunction),
				createBuildStage(resolvedArtifact, buildArtifact, codeBuildProject),
			},
			CrossAccountKeys: jsii.Bool(false),
		})

	// Create pipeline alarms
	alarm(resources.stack, "PipelineFailureAlarm", "Alert when the resolver pipeline fails",
		awscloudwatch.NewMetric(&awscloudwatch.MetricProps{
			Namespace:  jsii.String("AWS/CodePipeline"),
			MetricName: jsii.String("FailedPipelines"),
			Statistic:  jsii.String("Sum"),
			Period:     awscdk.Duration_Minutes(jsii.Number(5)),
			DimensionsMap: &map[string]*string{
				"PipelineName": pipeline.PipelineName(),
			},
			Unit: awscloudwatch.Unit_COUNT,
		}),
		resources.alarmTopic)

	return pipeline
}

func createPipelineRole(stack awscdk.Stack) awsiam.Role {
	return awsiam.NewRole(stack, jsii.String("CodePipelineRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("codepipeline.amazonaws.com"), nil),
	})
}

func createSourceStage(sourceArtifact awscodepipeline.Artifact,
	githubSecret awssecretsmanager.ISecret) *awscodepipeline.StageProps {
	return &awscodepipeline.StageProps{
		StageName: jsii.String("Source"),
		Actions: &[]awscodepipeline.IAction{
			awscodepipelineactions.NewGitHubSourceAction(&awscodepipelineactions.GitHubSourceActionProps{
				ActionName: jsii.String("pipelineSource"),
				Owner:      jsii.String(mustEnv("GITHUB_OWNER")),
				Repo:       jsii.String(mustEnv("GITHUB_REPO")),
				Branch:     jsii.String(mustEnv("GITHUB_BRANCH")),
				OauthToken: githubSecret.SecretValue(),
				Output:     sourceArtifact,
				Trigger:    awscodepipelineactions.GitHubTrigger_WEBHOOK,
			}),
		},
	}
}

// The Lambda resolves every *.fmtcf template in the source artifact
func createResolveStage(sourceArtifact, resolvedArtifact awscodepipeline.Artifact,
	lambdaFunction awslambda.Function) *awscodepipeline.StageProps {
	return &awscodepipeline.StageProps{
		StageName: jsii.String("Resolve"),
		Actions: &[]awscodepipeline.IAction{
			awscodepipelineactions.NewLambdaInvokeAction(&awscodepipelineactions.LambdaInvokeActionProps{
				ActionName: jsii.String("ResolvePlaceholders"),
				Inputs:     &[]awscodepipeline.Artifact{sourceArtifact},
				Outputs:    &[]awscodepipeline.Artifact{resolvedArtifact},
				Lambda:     lambdaFunction,
			}),
		},
	}
}

func createBuildStage(resolvedArtifact, buildArtifact awscodepipeline.Artifact,
	codeBuildProject awscodebuild.PipelineProject) *awscodepipeline.StageProps {
	return &awscodepipeline.StageProps{
		StageName: jsii.String("Build"),
		Actions: &[]awscodepipeline.IAction{
			awscodepipelineactions.NewCodeBuildAction(&awscodepipelineactions.CodeBuildActionProps{
				ActionName: jsii.String("pipelineBuild"),
				Project:    codeBuildProject,
				Input:      resolvedArtifact,
				Outputs:    &[]awscodepipeline.Artifact{buildArtifact},
			}),
		},
	}
}
