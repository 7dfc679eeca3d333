package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodebuild"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/jsii-runtime-go"
)

// CodeBuild related resources
func createCodeBuildResources(resources *PipelineResources) awscodebuild.PipelineProject {
	// Create CodeBuild role
	codeBuildRole := createCodeBuildRole(resources)

	// Create CodeBuild project
	codeBuildProject := createCodeBuildProject(resources.stack, codeBuildRole)

	// Create CodeBuild alarms
	alarm(resources.stack, "CodeBuildFailureAlarm", "Alert when the build of resolved sources fails",
		awscloudwatch.NewMetric(&awscloudwatch.MetricProps{
			Namespace:  jsii.String("AWS/CodeBuild"),
			MetricName: jsii.String("FailedBuilds"),
			Statistic:  jsii.String("Sum"),
			Period:     awscdk.Duration_Minutes(jsii.Number(5)),
			DimensionsMap: &map[string]*string{
				"ProjectName": codeBuildProject.ProjectName(),
			},
			Unit: awscloudwatch.Unit_COUNT,
		}),
		resources.alarmTopic)

	return codeBuildProject
}

// The build receives templates already resolved by the Lambda and only
// substitutes bare tokens from a value table, so it needs no lookup access.
func createCodeBuildRole(resources *PipelineResources) awsiam.Role {
	role := awsiam.NewRole(resources.stack, jsii.String("CodeBuildRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("codebuild.amazonaws.com"), nil),
	})

	resources.artifactBucket.GrantReadWrite(role, nil)

	return role
}

func createCodeBuildProject(stack awscdk.Stack, role awsiam.IRole) awscodebuild.PipelineProject {
	return awscodebuild.NewPipelineProject(stack, jsii.String("ResolvedBuild"), &awscodebuild.PipelineProjectProps{
		ProjectName: jsii.String("fmtcf-resolved-build"),
		Role:        role,
		BuildSpec: awscodebuild.BuildSpec_FromObject(&map[string]interface{}{
			"version": "0.2",
			"phases": map[string]interface{}{
				"install": map[string]interface{}{
					"commands": []string{"go install github.com/30Piraten/fmtcf/cmd/fmtcf@latest"},
				},
				"build": map[string]interface{}{
					"commands": []string{
						"if [ -f outputs.json ] && [ -d dist ]; then fmtcf substitute --values outputs.json dist; fi",
					},
				},
			},
			"artifacts": map[string]interface{}{
				"files": []string{"**/*"},
			},
		}),
		Environment: &awscodebuild.BuildEnvironment{
			ComputeType: awscodebuild.ComputeType_SMALL,
			BuildImage:  awscodebuild.LinuxBuildImage_STANDARD_7_0(),
		},
		Timeout: awscdk.Duration_Minutes(jsii.Number(15)),
	})
}
