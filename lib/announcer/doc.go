// Package announcer advertises a running ticks daemon to clients through
// service discovery systems (ZooKeeper, etcd).
//
// Typical usage:
//
//	// On startup:
//	a := announcer.New()
//	err := a.AddZK(zkconn, "/ticks", uniqueID, announcer.TicksFormat, "")
//	// check err
//
//	// When ready to serve:
//	err = a.Announce(ctx, &membership.Ticks{
//		Ready:    true,
//		Unique:   uniqueID,
//		IP:       ipAddr,
//		Ports:    map[string]uint16{"http": httpPort},
//		Trackers: []string{"anemometer"},
//	})
//	// check err
//
//	// When about to stop serving:
//	err = a.Withdraw(ctx)
//	// check err
//
//	// On exit:
//	err = a.Close()
//	// check err
package announcer
