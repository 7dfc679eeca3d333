package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// SSMAPI is the slice of the SSM client the parameter source needs.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Parameters resolves names against SSM Parameter Store.
type Parameters struct {
	client  SSMAPI
	decrypt bool
}

// NewParameters returns a parameter store source. With decrypt set,
// SecureString parameters come back as plaintext.
func NewParameters(client SSMAPI, decrypt bool) *Parameters {
	return &Parameters{client: client, decrypt: decrypt}
}

func (p *Parameters) Kind() Kind { return ParameterStore }

func (p *Parameters) Lookup(ctx context.Context, name string) (string, error) {
	out, err := p.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(p.decrypt),
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get parameter: %w", err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("parameter has no value")
	}
	return *out.Parameter.Value, nil
}
