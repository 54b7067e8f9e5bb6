package domain

import "time"

// SyncMetadata travels alongside a Snapshot in the remote document as a
// sibling blob, never embedded inside the snapshot itself. It is created
// and incremented only by the sync engine, once per successful upload.
type SyncMetadata struct {
	SchemaVersion string    `json:"schemaVersion" validate:"required"`
	LastSync      time.Time `json:"lastSync" validate:"required"`
	DeviceID      string    `json:"deviceId" validate:"required"`
	SyncCount     int       `json:"syncCount" validate:"gte=0"`
	Checksum      string    `json:"checksum" validate:"required"`
}

// ConflictKind sub-classifies a detected conflict.
type ConflictKind string

const (
	// ConflictNearSimultaneous means the two timestamps are within a small
	// window, suggesting independent concurrent edits on two devices.
	ConflictNearSimultaneous ConflictKind = "near-simultaneous"

	// ConflictDiverged means the two sides drifted apart over a longer span.
	ConflictDiverged ConflictKind = "diverged"
)

// SyncConflict captures both sides of a divergence that cannot be silently
// resolved. Ephemeral: born inside one sync attempt, consumed by a
// resolution call, never persisted.
type SyncConflict struct {
	Kind       ConflictKind `json:"kind"`
	Local      *Snapshot    `json:"local"`
	Remote     *Snapshot    `json:"remote"`
	LocalMeta  SyncMetadata `json:"localMeta"`
	RemoteMeta SyncMetadata `json:"remoteMeta"`
	Message    string       `json:"message"`
}

// SyncAction says what a sync attempt actually did.
type SyncAction string

const (
	ActionUploaded   SyncAction = "uploaded"
	ActionDownloaded SyncAction = "downloaded"
	ActionNoChange   SyncAction = "no_change"
	ActionConflict   SyncAction = "conflict"
)

// SyncResult is returned synchronously from every sync attempt. The engine
// never returns a bare error to its caller; failures are carried in-band so
// the presentation layer can render a status without special-casing.
type SyncResult struct {
	Success     bool          `json:"success"`
	Action      SyncAction    `json:"action"`
	Data        *Snapshot     `json:"data,omitempty"`
	Conflict    *SyncConflict `json:"conflict,omitempty"`
	Error       string        `json:"error,omitempty"`
	RemoteDocID string        `json:"remoteDocId,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}

// Resolution selects a conflict resolution strategy.
type Resolution string

const (
	ResolveLocal  Resolution = "local"
	ResolveRemote Resolution = "remote"
	ResolveMerge  Resolution = "merge"
)

// Valid reports whether r is one of the known strategies.
func (r Resolution) Valid() bool {
	switch r {
	case ResolveLocal, ResolveRemote, ResolveMerge:
		return true
	}
	return false
}

// SyncTrigger names what caused a sync attempt. Carried for logging and
// policy decisions (a manual sync will not sit out a long rate-limit wait).
type SyncTrigger string

const (
	TriggerManual      SyncTrigger = "manual"
	TriggerAuto        SyncTrigger = "auto"
	TriggerStartup     SyncTrigger = "startup"
	TriggerBeforeClose SyncTrigger = "before_close"
)
