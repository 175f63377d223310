package announcer

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/go-zookeeper/zk"
	"github.com/rs/zerolog/log"

	"github.com/chronos-tachyon/ticks/lib/membership"
	"github.com/chronos-tachyon/ticks/lib/ticksutil"
)

// AddZK is a convenience wrapper around NewZK and Add.
func (a *Announcer) AddZK(zkconn *zk.Conn, zkPath, unique string, format Format, namedPort string) error {
	impl, err := NewZK(zkconn, zkPath, unique, format, namedPort)
	if err != nil {
		return err
	}
	a.Add(impl)
	return nil
}

// NewZK returns an Impl that creates a protected ephemeral sequential node
// named after unique beneath zkPath.  Missing parents of zkPath are created
// on first use.
func NewZK(zkconn *zk.Conn, zkPath, unique string, format Format, namedPort string) (Impl, error) {
	if zkconn == nil {
		panic(errors.New("*zk.Conn is nil"))
	}
	if err := ticksutil.ValidateZKPath(zkPath); err != nil {
		return nil, err
	}
	if err := validateCommon(unique, format, namedPort); err != nil {
		return nil, err
	}
	return &zkImpl{
		zkconn:    zkconn,
		zkPath:    zkPath,
		unique:    unique,
		format:    format,
		namedPort: namedPort,
	}, nil
}

type zkImpl struct {
	zkconn    *zk.Conn
	zkPath    string
	unique    string
	format    Format
	namedPort string

	mu     sync.Mutex
	alive  bool
	actual string
}

func (impl *zkImpl) Announce(ctx context.Context, t *membership.Ticks) error {
	impl.mu.Lock()
	defer impl.mu.Unlock()

	payload, err := encodePayload(t, impl.format, impl.namedPort)
	if err != nil {
		return err
	}

	file := path.Join(impl.zkPath, impl.unique)
	acl := zk.WorldACL(zk.PermAll)
	actual, err := impl.zkconn.CreateProtectedEphemeralSequential(file, payload, acl)
	if errors.Is(MapZKError(err), fs.ErrNotExist) {
		if err = impl.createParents(acl); err == nil {
			actual, err = impl.zkconn.CreateProtectedEphemeralSequential(file, payload, acl)
		}
	}
	if err = MapZKError(err); err != nil {
		return err
	}

	log.Logger.Debug().
		Str("path", actual).
		Msg("zk announced")
	impl.alive = true
	impl.actual = actual
	return nil
}

func (impl *zkImpl) Withdraw(ctx context.Context) error {
	impl.mu.Lock()
	defer impl.mu.Unlock()

	if !impl.alive {
		return nil
	}
	impl.alive = false
	return MapZKError(impl.zkconn.Delete(impl.actual, -1))
}

func (impl *zkImpl) Close() error {
	return nil
}

func (impl *zkImpl) createParents(acl []zk.ACL) error {
	var prefix string
	for _, segment := range strings.Split(strings.TrimPrefix(impl.zkPath, "/"), "/") {
		prefix += "/" + segment
		_, err := impl.zkconn.Create(prefix, nil, 0, acl)
		err = MapZKError(err)
		if err != nil && !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return nil
}

var _ Impl = (*zkImpl)(nil)
