package ssm_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aretw0/bluegreen/pkg/adapters/ssm"
	"github.com/aretw0/bluegreen/pkg/domain"
	"github.com/aretw0/bluegreen/pkg/ports"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSSM is an in-memory Parameter Store.
type fakeSSM struct {
	mu     sync.Mutex
	params map[string]string
	err    error
}

func newFakeSSM() *fakeSSM {
	return &fakeSSM{params: make(map[string]string)}
}

func (f *fakeSSM) GetParameter(ctx context.Context, in *awsssm.GetParameterInput, _ ...func(*awsssm.Options)) (*awsssm.GetParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.params[aws.ToString(in.Name)]
	if !ok {
		return nil, &types.ParameterNotFound{Message: aws.String("not found")}
	}
	return &awsssm.GetParameterOutput{Parameter: &types.Parameter{Name: in.Name, Value: aws.String(v)}}, nil
}

func (f *fakeSSM) PutParameter(ctx context.Context, in *awsssm.PutParameterInput, _ ...func(*awsssm.Options)) (*awsssm.PutParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	name := aws.ToString(in.Name)
	if _, exists := f.params[name]; exists && !aws.ToBool(in.Overwrite) {
		return nil, &types.ParameterAlreadyExists{Message: aws.String("exists")}
	}
	f.params[name] = aws.ToString(in.Value)
	return &awsssm.PutParameterOutput{}, nil
}

func TestSSMStore_Contract(t *testing.T) {
	store := ssm.NewFromClient(newFakeSSM())
	ports.RunStateStoreContract(t, store)
}

func TestSSMStore_PrefixAndFormat(t *testing.T) {
	fake := newFakeSSM()
	store := ssm.NewFromClient(fake, ssm.WithPrefix("/shop/"))

	err := store.Save(context.Background(), domain.DefaultStateKey, domain.BootstrapState())
	require.NoError(t, err)

	raw, ok := fake.params["/shop/blue-green-state"]
	require.True(t, ok)
	assert.JSONEq(t, `{"activeSlot":"BLUE","currentVersion":1,"previousVersion":1}`, raw)
}

func TestSSMStore_LegacyRecord(t *testing.T) {
	fake := newFakeSSM()
	fake.params["blue-green-state"] = `{"nextUpdate":"green","currentVersion":5,"previousVersion":4}`
	store := ssm.NewFromClient(fake)

	loaded, err := store.Load(context.Background(), domain.DefaultStateKey)
	require.NoError(t, err)
	assert.Equal(t, domain.RotationState{ActiveSlot: domain.SlotGreen, CurrentVersion: 5, PreviousVersion: 4}, *loaded)
}

func TestSSMStore_TransportError(t *testing.T) {
	fake := newFakeSSM()
	fake.err = errors.New("dial tcp: i/o timeout")
	store := ssm.NewFromClient(fake)

	_, err := store.Load(context.Background(), domain.DefaultStateKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrStateNotFound)
	assert.ErrorIs(t, err, fake.err)

	err = store.Save(context.Background(), domain.DefaultStateKey, domain.BootstrapState())
	assert.ErrorIs(t, err, fake.err)
}
