// Package secrets resolves the store connection string from AWS Secrets Manager.
//
// Deployments that cannot inject MONGO_URI into the environment point
// uri_secret at a secret instead. The secret value is either the raw
// connection string or a JSON object carrying it under "uri" (or
// "MONGO_URI"). Secret values are never logged.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
)

// ErrNotFound is returned when the secret does not exist.
var ErrNotFound = errors.New("secret not found")

// ManagerAPI is the subset of the Secrets Manager client this package uses.
type ManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// Resolver reads connection strings from Secrets Manager.
type Resolver struct {
	api    ManagerAPI
	logger *slog.Logger
}

// NewResolver wraps an existing Secrets Manager client.
func NewResolver(api ManagerAPI, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{api: api, logger: logger.With("component", "secrets")}
}

// NewResolverFromEnv loads the default AWS configuration (environment,
// shared config, instance role) and returns a Resolver for it.
func NewResolverFromEnv(ctx context.Context, region string, logger *slog.Logger) (*Resolver, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewResolver(secretsmanager.NewFromConfig(cfg), logger), nil
}

// ConnectionString fetches secretID and extracts the connection string.
func (r *Resolver) ConnectionString(ctx context.Context, secretID string) (string, error) {
	if secretID == "" {
		return "", fmt.Errorf("secret id cannot be empty")
	}

	r.logger.Debug("fetching connection string", "secret", secretID)

	out, err := r.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException" {
			return "", fmt.Errorf("%w: %s", ErrNotFound, secretID)
		}
		return "", fmt.Errorf("failed to get secret %s: %w", secretID, err)
	}

	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", secretID)
	}

	uri, err := extract(*out.SecretString)
	if err != nil {
		return "", fmt.Errorf("secret %s: %w", secretID, err)
	}
	return uri, nil
}

// extract accepts either a bare connection string or a JSON object.
func extract(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("secret value is empty")
	}
	if !strings.HasPrefix(value, "{") {
		return value, nil
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(value), &fields); err != nil {
		return "", fmt.Errorf("failed to parse secret JSON: %w", err)
	}
	for _, key := range []string{"uri", "MONGO_URI", "connection_string"} {
		if s, ok := fields[key].(string); ok && s != "" {
			return s, nil
		}
	}
	return "", fmt.Errorf("secret JSON has no uri field")
}
