package config

import (
	"context"
	"fmt"

	"rentops-backend/internal/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

type SSMClientInterface interface {
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

func NewSSMClient(ctx context.Context, s SecretsConfig) (*ssm.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if s.Region != "" {
		opts = append(opts, awsconfig.WithRegion(s.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	if s.Endpoint != "" {
		cfg.BaseEndpoint = aws.String(s.Endpoint)
	}
	return ssm.NewFromConfig(cfg), nil
}

// GetParameters reads every parameter below path, following pagination.
func GetParameters(ctx context.Context, client SSMClientInterface, path string) (map[string]string, error) {
	params := map[string]string{}
	input := &ssm.GetParametersByPathInput{
		Path:           aws.String(path),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	}

	for {
		logger.ExternalServiceCall("ssm", "GetParametersByPath", "path", path)
		output, err := client.GetParametersByPath(ctx, input)
		logger.ExternalServiceResult("ssm", "GetParametersByPath", err, "path", path)
		if err != nil {
			return nil, err
		}

		for _, param := range output.Parameters {
			if param.Name == nil || param.Value == nil {
				continue
			}
			params[*param.Name] = *param.Value
		}

		if output.NextToken == nil {
			break
		}
		input.NextToken = output.NextToken
	}
	return params, nil
}

// ApplySecrets overlays parameter store values onto c and re-validates.
func (c *Config) ApplySecrets(ctx context.Context, client SSMClientInterface) error {
	if c.Secrets.SSMPath == "" {
		return nil
	}
	params, err := GetParameters(ctx, client, c.Secrets.SSMPath)
	if err != nil {
		return fmt.Errorf("failed to load secrets from %s: %w", c.Secrets.SSMPath, err)
	}

	applied := 0
	for name, value := range params {
		if c.applyParameter(name, value) {
			applied++
		} else {
			logger.Debug("Ignoring unknown parameter", "name", name)
		}
	}
	logger.Info("Applied secrets from parameter store", "path", c.Secrets.SSMPath, "count", applied)

	return c.Validate()
}
