package cli

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/aretw0/bluegreen/internal/config"
	"github.com/aretw0/bluegreen/pkg/adapters/file"
	"github.com/aretw0/bluegreen/pkg/adapters/memory"
	"github.com/aretw0/bluegreen/pkg/adapters/redis"
	"github.com/aretw0/bluegreen/pkg/adapters/ssm"
	"github.com/aretw0/bluegreen/pkg/ports"
)

// ErrLockUnsupported is returned when locking is enabled on a backend without a locker.
var ErrLockUnsupported = errors.New("locking is not supported by this backend")

// Backend is an opened state store plus its locker, if any.
// Redis locks coordinate every process sharing the server; the memory and file
// backends get an in-process locker that only serializes runs of one server.
type Backend struct {
	Store  ports.StateStore
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases the backend connection.
func (b *Backend) Close() error {
	if b == nil || b.close == nil {
		return nil
	}
	return b.close()
}

// OpenBackend builds the state store selected by cfg.Store.
func OpenBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	var b *Backend
	var err error

	switch cfg.Store.Backend {
	case config.BackendMemory:
		b = &Backend{Store: memory.NewStore(), Locker: memory.NewLocker()}
	case config.BackendFile:
		b, err = openFile(cfg.Store)
	case config.BackendRedis:
		b, err = openRedis(cfg.Store)
	case config.BackendSSM:
		b, err = openSSM(ctx, cfg.Store)
	default:
		err = fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Lock.Enabled && b.Locker == nil {
		_ = b.Close()
		return nil, fmt.Errorf("%w (backend %q)", ErrLockUnsupported, cfg.Store.Backend)
	}
	if !cfg.Lock.Enabled {
		b.Locker = nil
	}
	return b, nil
}

func openFile(sc config.StoreConfig) (*Backend, error) {
	opts := config.FileOptions{}
	if err := sc.DecodeOptions(&opts); err != nil {
		return nil, err
	}
	return &Backend{Store: file.New(opts.Dir), Locker: memory.NewLocker()}, nil
}

func openRedis(sc config.StoreConfig) (*Backend, error) {
	opts := config.RedisOptions{
		Addr:   "localhost:6379",
		Prefix: "bluegreen:",
	}
	if err := sc.DecodeOptions(&opts); err != nil {
		return nil, err
	}

	store := redis.New(opts.Addr, opts.Password, opts.DB, redis.WithPrefix(opts.Prefix))
	return &Backend{
		Store:  store,
		Locker: redis.NewLocker(store.Client(), opts.Prefix),
		close:  store.Client().Close,
	}, nil
}

func openSSM(ctx context.Context, sc config.StoreConfig) (*Backend, error) {
	opts := config.SSMOptions{}
	if err := sc.DecodeOptions(&opts); err != nil {
		return nil, err
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(opts.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Backend{Store: ssm.NewFromConfig(awsCfg, ssm.WithPrefix(opts.Prefix))}, nil
}
