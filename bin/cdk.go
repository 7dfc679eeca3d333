package main

import (
	"log"
	"os"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/joho/godotenv"
)

// NewResolverStack deploys the resolver Lambda and the pipeline that runs it.
func NewResolverStack(scope constructs.Construct, id string, props *ResolverStackProps) awscdk.Stack {
	stack := initializeStack(scope, id, props)

	resources := &PipelineResources{
		stack:          stack,
		props:          props,
		githubSecret:   createGithubSecret(stack),
		artifactBucket: createArtifactBucket(stack),
		alarmTopic:     createMonitoringResources(stack),
	}

	lambdaFunction := createLambdaResources(resources)
	codeBuildProject := createCodeBuildResources(resources)
	pipeline := createPipelineResources(resources, lambdaFunction, codeBuildProject)

	createStackOutputs(stack, pipeline, codeBuildProject, lambdaFunction)

	return stack
}

func main() {
	defer jsii.Close()

	// Load .env variables one time
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatal("Warning: .env file could not be loaded: ", err)
	}

	app := awscdk.NewApp(nil)
	NewResolverStack(app, "FmtcfResolverStack", &ResolverStackProps{
		StackProps: awscdk.StackProps{
			Env: env(),
		},
		ParameterPath: envOr("FMTCF_PARAMETER_PATH", "/"),
		SecretPrefix:  envOr("FMTCF_SECRET_PREFIX", ""),
	})

	app.Synth(nil)
}

func env() *awscdk.Environment {
	return &awscdk.Environment{
		Account: jsii.String(os.Getenv("ACCOUNT_ID")),
		Region:  jsii.String(envOr("ACCOUNT_REGION", "us-east-1")),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
