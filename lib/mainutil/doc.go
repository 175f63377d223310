// Package mainutil provides the pieces shared by the main() functions of the
// ticks daemon and its control tool: logging, listener and client
// configuration, ZooKeeper and etcd connections, health reporting, and the
// MultiServer that ties the daemon's servers together.
package mainutil
