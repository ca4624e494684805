package secrets

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockManagerAPI implements ManagerAPI for testing
type mockManagerAPI struct {
	getSecretValueFunc func(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

func (m *mockManagerAPI) GetSecretValue(
	ctx context.Context,
	params *secretsmanager.GetSecretValueInput,
	optFns ...func(*secretsmanager.Options),
) (*secretsmanager.GetSecretValueOutput, error) {
	if m.getSecretValueFunc != nil {
		return m.getSecretValueFunc(ctx, params, optFns...)
	}
	return nil, fmt.Errorf("GetSecretValue not implemented")
}

func returning(value string) *mockManagerAPI {
	return &mockManagerAPI{
		getSecretValueFunc: func(_ context.Context, params *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
			return &secretsmanager.GetSecretValueOutput{
				Name:         params.SecretId,
				SecretString: aws.String(value),
			}, nil
		},
	}
}

func TestConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    string
		wantErr bool
	}{
		{"bare", "mongodb://user:pw@db:27017/tasks", "mongodb://user:pw@db:27017/tasks", false},
		{"json uri", `{"uri":"mongodb+srv://cluster/tasks"}`, "mongodb+srv://cluster/tasks", false},
		{"json env style", `{"MONGO_URI":"mongodb://db/tasks"}`, "mongodb://db/tasks", false},
		{"json without uri", `{"user":"x"}`, "", true},
		{"broken json", `{"uri":`, "", true},
		{"empty", "   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(returning(tt.value), nil)
			got, err := r.ConnectionString(context.Background(), "prod/tasksync")
			if tt.wantErr {
				require.Error(t, err)
				assert.NotContains(t, err.Error(), "pw@", "secret value leaked into error")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConnectionString_PassesSecretID(t *testing.T) {
	var seen string
	api := &mockManagerAPI{
		getSecretValueFunc: func(_ context.Context, params *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
			seen = aws.ToString(params.SecretId)
			return &secretsmanager.GetSecretValueOutput{SecretString: aws.String("mongodb://db/x")}, nil
		},
	}

	_, err := NewResolver(api, nil).ConnectionString(context.Background(), "arn:aws:secretsmanager:us-east-1:123:secret:tasksync")
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:secretsmanager:us-east-1:123:secret:tasksync", seen)
}

func TestConnectionString_NotFound(t *testing.T) {
	api := &mockManagerAPI{
		getSecretValueFunc: func(context.Context, *secretsmanager.GetSecretValueInput, ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "nope"}
		},
	}

	_, err := NewResolver(api, nil).ConnectionString(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConnectionString_NoStringValue(t *testing.T) {
	api := &mockManagerAPI{
		getSecretValueFunc: func(context.Context, *secretsmanager.GetSecretValueInput, ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
			return &secretsmanager.GetSecretValueOutput{SecretBinary: []byte{0x1}}, nil
		},
	}

	_, err := NewResolver(api, nil).ConnectionString(context.Background(), "binary")
	require.Error(t, err)
}

func TestConnectionString_EmptyID(t *testing.T) {
	_, err := NewResolver(&mockManagerAPI{}, nil).ConnectionString(context.Background(), "")
	require.Error(t, err)
}
