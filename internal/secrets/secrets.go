// Package secrets fetches database credentials from AWS Secrets Manager.
//
// The secret is expected to hold a JSON document in the shape RDS writes for
// managed master passwords, of which only "username" and "password" are used:
//
//	{"username": "admin", "password": "...", "engine": "postgres", ...}
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

var (
	ErrSecretNameMissing = errors.New("secrets: DB_SECRET_NAME is not set")
	ErrMalformedSecret   = errors.New("secrets: malformed database secret")
)

// Credentials are the database login taken from the secret.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// API is the subset of the Secrets Manager client in use.
type API interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type Client struct {
	api API
}

func NewClient(api API) *Client {
	return &Client{api: api}
}

// NewAWSClient resolves AWS credentials through the default chain
// (environment, shared config, web identity / IRSA, instance role).
func NewAWSClient(ctx context.Context, region string) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("secrets: load aws config: %w", err)
	}
	return NewClient(secretsmanager.NewFromConfig(cfg)), nil
}

// Resolve reads the named secret and extracts the database login.
func (c *Client) Resolve(ctx context.Context, name string) (*Credentials, error) {
	if name == "" {
		return nil, ErrSecretNameMissing
	}

	out, err := c.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("secrets: get %q: %w", name, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("%w: %q has no string value", ErrMalformedSecret, name)
	}

	return parseCredentials(*out.SecretString)
}

func parseCredentials(raw string) (*Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSecret, err)
	}
	if creds.Username == "" || creds.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrMalformedSecret)
	}
	return &creds, nil
}
