package announcer

import (
	"context"
	"errors"
	"io/fs"

	"github.com/go-zookeeper/zk"
	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"
	"google.golang.org/grpc/codes"
)

// MapZKError converts ZooKeeper client errors into their io/fs equivalents,
// where one exists.
func MapZKError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, zk.ErrConnectionClosed), errors.Is(err, zk.ErrClosing):
		return fs.ErrClosed
	case errors.Is(err, zk.ErrNodeExists):
		return fs.ErrExist
	case errors.Is(err, zk.ErrNoNode):
		return fs.ErrNotExist
	default:
		return err
	}
}

// MapEtcdError converts etcd client errors into their io/fs equivalents,
// where one exists.
func MapEtcdError(err error) error {
	if err == nil {
		return nil
	}

	var etcdErr rpctypes.EtcdError
	if errors.As(err, &etcdErr) {
		switch etcdErr.Code() {
		case codes.NotFound:
			return fs.ErrNotExist
		case codes.Canceled:
			return fs.ErrClosed
		}
	}

	if errors.Is(err, context.Canceled) {
		return fs.ErrClosed
	}
	return err
}
