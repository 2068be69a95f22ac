// Package ssm stores the rotation state as an AWS Systems Manager Parameter Store
// String parameter, the backend the first release of the tool used.
package ssm

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/bluegreen/pkg/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// API is the subset of the SSM client used by Store.
type API interface {
	GetParameter(ctx context.Context, params *awsssm.GetParameterInput, optFns ...func(*awsssm.Options)) (*awsssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, params *awsssm.PutParameterInput, optFns ...func(*awsssm.Options)) (*awsssm.PutParameterOutput, error)
}

// Store implements ports.StateStore on top of Parameter Store.
// Parameter Store has no conditional overwrite, so writes are
// last-writer-wins.
type Store struct {
	api    API
	prefix string
}

type Option func(*Store)

// WithPrefix prepends a path (e.g. "/myapp/") to every parameter name.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// NewFromConfig creates a Store using an SSM client built from cfg.
func NewFromConfig(cfg aws.Config, opts ...Option) *Store {
	return NewFromClient(awsssm.NewFromConfig(cfg), opts...)
}

// NewFromClient creates a Store from an existing API implementation.
func NewFromClient(api API, opts ...Option) *Store {
	s := &Store{api: api}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) name(key string) string {
	return s.prefix + key
}

// Load retrieves the parameter and decodes it.
func (s *Store) Load(ctx context.Context, key string) (*domain.RotationState, error) {
	out, err := s.api.GetParameter(ctx, &awsssm.GetParameterInput{
		Name: aws.String(s.name(key)),
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return nil, domain.ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to get parameter %q: %w", s.name(key), err)
	}

	if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
		return nil, domain.ErrStateNotFound
	}

	state, err := domain.DecodeState([]byte(aws.ToString(out.Parameter.Value)))
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Save overwrites the parameter with the encoded state.
func (s *Store) Save(ctx context.Context, key string, state domain.RotationState) error {
	data, err := domain.EncodeState(state)
	if err != nil {
		return err
	}

	_, err = s.api.PutParameter(ctx, &awsssm.PutParameterInput{
		Name:      aws.String(s.name(key)),
		Value:     aws.String(string(data)),
		Type:      types.ParameterTypeString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to put parameter %q: %w", s.name(key), err)
	}
	return nil
}
