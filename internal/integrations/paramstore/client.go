package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ssmAPI is the minimal AWS SSM interface required by Client.
// *ssm.Client from aws-sdk-go-v2 satisfies this interface.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Getter is the interface that wraps GetParameter.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client wraps an AWS SSM API for parameter retrieval.
type Client struct {
	api ssmAPI
}

// New creates a Client with the given SSM API implementation.
func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api}, nil
}

// GetParameter returns the decrypted value of a parameter.
func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	if c.api == nil {
		return "", errors.New("paramstore: client not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}

	withDecryption := true
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", errors.New("paramstore: parameter missing value")
	}
	return *out.Parameter.Value, nil
}

// tokenPayload is the JSON shape secrets may be stored in.
type tokenPayload struct {
	Token string `json:"token"`
}

// Secret is an API key that is either fixed or fetched from Parameter Store
// on first use. Only a successful fetch is cached; a failed one is retried on
// the next call with that caller's context.
type Secret struct {
	getter Getter
	name   string

	mu     sync.Mutex
	value  string
	loaded bool
}

// NewSecret returns a Secret backed by the named parameter.
func NewSecret(g Getter, name string) (*Secret, error) {
	if g == nil {
		return nil, errors.New("paramstore: getter must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("paramstore: secret name is empty")
	}
	return &Secret{getter: g, name: name}, nil
}

// StaticSecret returns a Secret that always yields value.
func StaticSecret(value string) *Secret {
	return &Secret{value: value, loaded: true}
}

// Value resolves the secret. Parameter values may be a bare string or a JSON
// object with a "token" field.
func (s *Secret) Value(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		v, err := fetchSecret(ctx, s.getter, s.name)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(v) == "" {
			return "", fmt.Errorf("paramstore: secret %q is empty", s.name)
		}
		s.value, s.loaded = v, true
	}
	if strings.TrimSpace(s.value) == "" {
		return "", errors.New("paramstore: secret is empty")
	}
	return s.value, nil
}

func fetchSecret(ctx context.Context, g Getter, name string) (string, error) {
	raw, err := g.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("paramstore: fetch secret: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return raw, nil
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("paramstore: unmarshal secret %q as JSON: %w", name, err)
	}
	if tp.Token == "" {
		return "", fmt.Errorf("paramstore: secret %q has an empty token", name)
	}
	return tp.Token, nil
}
