package main

import (
	"fmt"

	"github.com/30Piraten/fmtcf/config"
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// mustEnv stops synthesis when a required setting is missing
func mustEnv(key string) string {
	value, err := config.RequireEnv(key)
	if err != nil {
		panic(fmt.Sprintf("WARNING: %v!", err))
	}
	return value
}

func initializeStack(scope constructs.Construct, id string, props *ResolverStackProps) awscdk.Stack {
	var sprops awscdk.StackProps
	if props != nil {
		sprops = props.StackProps
	}

	// Configure stack synthesizer
	sprops.Synthesizer = awscdk.NewDefaultStackSynthesizer(&awscdk.DefaultStackSynthesizerProps{
		Qualifier: jsii.String("fmtcf"),
	})

	return awscdk.NewStack(scope, &id, &sprops)
}

func createGithubSecret(stack awscdk.Stack) awssecretsmanager.ISecret {
	return awssecretsmanager.Secret_FromSecretNameV2(stack,
		jsii.String("GitHubTokenSecret"),
		jsii.String("token"))
}

func createArtifactBucket(stack awscdk.Stack) awss3.IBucket {
	return awss3.NewBucket(stack, jsii.String("ArtifactBucket"), &awss3.BucketProps{
		AutoDeleteObjects: jsii.Bool(true),
		RemovalPolicy:     awscdk.RemovalPolicy_DESTROY,
		BucketName:        jsii.String(mustEnv("S3_ARTIFACT_BUCKET_NAME")),
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		EnforceSSL:        jsii.Bool(true),
		Versioned:         jsii.Bool(true),
	})
}

// resolverLookupPolicies are the statements anything running the resolver
// needs: read parameters (decrypting SecureStrings) and secrets under the
// configured prefixes.
func resolverLookupPolicies(props *ResolverStackProps) []awsiam.PolicyStatement {
	return []awsiam.PolicyStatement{
		awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
			Effect:  awsiam.Effect_ALLOW,
			Actions: jsii.Strings("ssm:GetParameter"),
			Resources: jsii.Strings(fmt.Sprintf("arn:aws:ssm:%s:%s:parameter%s*",
				*awscdk.Aws_REGION(), *awscdk.Aws_ACCOUNT_ID(), props.ParameterPath)),
		}),
		awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
			Effect:  awsiam.Effect_ALLOW,
			Actions: jsii.Strings("secretsmanager:GetSecretValue"),
			Resources: jsii.Strings(fmt.Sprintf("arn:aws:secretsmanager:%s:%s:secret:%s*",
				*awscdk.Aws_REGION(), *awscdk.Aws_ACCOUNT_ID(), props.SecretPrefix)),
		}),
		awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
			Effect:    awsiam.Effect_ALLOW,
			Actions:   jsii.Strings("kms:Decrypt"),
			Resources: jsii.Strings("*"),
			Conditions: &map[string]interface{}{
				"StringEquals": map[string]interface{}{
					"kms:ViaService": jsii.String(fmt.Sprintf("ssm.%s.amazonaws.com", *awscdk.Aws_REGION())),
				},
			},
		}),
	}
}
