package announcer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	v3 "go.etcd.io/etcd/client/v3"

	"github.com/chronos-tachyon/ticks/lib/membership"
	"github.com/chronos-tachyon/ticks/lib/ticksutil"
)

// LeaseTTLSeconds is the TTL of the etcd lease backing an announcement.
const LeaseTTLSeconds = 30

// AddEtcd is a convenience wrapper around NewEtcd and Add.
func (a *Announcer) AddEtcd(etcd *v3.Client, etcdPath, unique string, format Format, namedPort string) error {
	impl, err := NewEtcd(etcd, etcdPath, unique, format, namedPort)
	if err != nil {
		return err
	}
	a.Add(impl)
	return nil
}

// NewEtcd returns an Impl that writes the key etcdPath+unique under a lease,
// kept alive until Withdraw revokes it.
func NewEtcd(etcd *v3.Client, etcdPath, unique string, format Format, namedPort string) (Impl, error) {
	if etcd == nil {
		panic(errors.New("*v3.Client is nil"))
	}
	if err := ticksutil.ValidateEtcdPath(etcdPath); err != nil {
		return nil, err
	}
	if err := validateCommon(unique, format, namedPort); err != nil {
		return nil, err
	}
	return &etcdImpl{
		etcd:      etcd,
		etcdPath:  etcdPath,
		unique:    unique,
		format:    format,
		namedPort: namedPort,
	}, nil
}

type etcdImpl struct {
	wg        sync.WaitGroup
	etcd      *v3.Client
	etcdPath  string
	unique    string
	format    Format
	namedPort string

	mu      sync.Mutex
	alive   bool
	leaseID v3.LeaseID
	cancel  context.CancelFunc
}

func (impl *etcdImpl) Announce(ctx context.Context, t *membership.Ticks) error {
	impl.mu.Lock()
	defer impl.mu.Unlock()

	payload, err := encodePayload(t, impl.format, impl.namedPort)
	if err != nil {
		return err
	}

	lease, err := impl.etcd.Lease.Grant(ctx, LeaseTTLSeconds)
	if err = MapEtcdError(err); err != nil {
		return err
	}

	// The keepalive must outlive ctx, which may be request-scoped.
	kaCtx, kaCancel := context.WithCancel(context.Background())
	ch, err := impl.etcd.Lease.KeepAlive(kaCtx, lease.ID)
	if err = MapEtcdError(err); err != nil {
		kaCancel()
		_, _ = impl.etcd.Lease.Revoke(ctx, lease.ID)
		return err
	}

	impl.wg.Add(1)
	go func() {
		defer impl.wg.Done()
		for range ch {
		}
	}()

	key := impl.etcdPath + impl.unique
	_, err = impl.etcd.KV.Put(ctx, key, string(payload), v3.WithLease(lease.ID))
	if err = MapEtcdError(err); err != nil {
		kaCancel()
		_, _ = impl.etcd.Lease.Revoke(ctx, lease.ID)
		return err
	}

	log.Logger.Debug().
		Str("key", key).
		Str("lease", fmt.Sprintf("%x", int64(lease.ID))).
		Msg("etcd announced")
	impl.alive = true
	impl.leaseID = lease.ID
	impl.cancel = kaCancel
	return nil
}

func (impl *etcdImpl) Withdraw(ctx context.Context) error {
	impl.mu.Lock()
	defer impl.mu.Unlock()

	if !impl.alive {
		return nil
	}
	impl.alive = false
	impl.cancel()
	_, err := impl.etcd.Lease.Revoke(ctx, impl.leaseID)
	return MapEtcdError(err)
}

func (impl *etcdImpl) Close() error {
	impl.wg.Wait()
	return nil
}

var _ Impl = (*etcdImpl)(nil)
