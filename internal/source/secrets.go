package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

// SecretsAPI is the slice of the Secrets Manager client the secret source needs.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Secrets resolves names (or ARNs) against AWS Secrets Manager.
type Secrets struct {
	client SecretsAPI
}

func NewSecrets(client SecretsAPI) *Secrets {
	return &Secrets{client: client}
}

func (s *Secrets) Kind() Kind { return SecretStore }

func (s *Secrets) Lookup(ctx context.Context, name string) (string, error) {
	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get secret value: %w", err)
	}
	// Binary secrets cannot be substituted into a text file
	if result.SecretString == nil {
		return "", fmt.Errorf("secret has no string value")
	}
	return *result.SecretString, nil
}
