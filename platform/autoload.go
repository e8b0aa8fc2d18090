package platform

import "log/slog"

// TFTPAutoLoader is the Linux-host [AutoLoader]. Actual file transfer is
// out of scope (spec.md §1 Non-goals): Load only logs the bootfile the
// client negotiated and returns nil, standing in for the TFTP/NFS fetch
// original_source's net_auto_load performs once a lease is bound.
type TFTPAutoLoader struct {
	Log *slog.Logger
}

func (l TFTPAutoLoader) Load() error {
	log := l.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("auto-load stage reached; transfer is out of scope, skipping")
	return nil
}
