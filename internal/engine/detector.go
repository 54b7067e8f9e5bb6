package engine

import (
	"fmt"
	"time"

	"github.com/markstack/markstack/internal/domain"
)

// nearSimultaneousWindow is the timestamp gap under which a conflict is
// classified as two devices editing at roughly the same moment rather
// than one side having gone stale.
const nearSimultaneousWindow = 5 * time.Second

// Detect compares a local snapshot against the remote one and decides
// whether they can be reconciled silently. Returns nil when one side
// cleanly wins, or a SyncConflict when neither can be preferred.
//
// The rule is deliberately asymmetric on device identity: remote wins only
// when it is newer AND was written by another device; local wins only when
// it is newer AND this device was the last writer. Raw timestamps alone
// are not enough because clocks are approximate - two devices editing
// around the same remote state must surface a conflict even though one
// timestamp is nominally larger, while a single device syncing repeatedly
// must never conflict with itself.
func Detect(local *domain.Snapshot, localMeta domain.SyncMetadata, remote *domain.Snapshot, remoteMeta domain.SyncMetadata, deviceID string) *domain.SyncConflict {
	localTime := local.LastUpdated
	remoteTime := remote.LastUpdated

	if remoteTime.After(localTime) && remoteMeta.DeviceID != deviceID {
		// Another device wrote more recently: caller downloads.
		return nil
	}
	if localTime.After(remoteTime) && remoteMeta.DeviceID == deviceID {
		// This device was the last writer and has edited since: caller uploads.
		return nil
	}

	gap := localTime.Sub(remoteTime)
	if gap < 0 {
		gap = -gap
	}

	kind := domain.ConflictDiverged
	if gap < nearSimultaneousWindow {
		kind = domain.ConflictNearSimultaneous
	}

	return &domain.SyncConflict{
		Kind:       kind,
		Local:      local,
		Remote:     remote,
		LocalMeta:  localMeta,
		RemoteMeta: remoteMeta,
		Message:    conflictMessage(kind, localTime, remoteTime, gap),
	}
}

func conflictMessage(kind domain.ConflictKind, localTime, remoteTime time.Time, gap time.Duration) string {
	if kind == domain.ConflictNearSimultaneous {
		return fmt.Sprintf("local and remote were modified within %.0f seconds of each other", gap.Seconds())
	}

	newer := "local"
	if remoteTime.After(localTime) {
		newer = "remote"
	}
	return fmt.Sprintf("local and remote diverged by %.0f minutes, %s side is newer", gap.Minutes(), newer)
}
