package redis

const (
	// KeyDeviceID holds the stable per-installation identifier.
	KeyDeviceID = "markstack:device_id"
	// KeyDocumentID caches the remote document id after first discovery.
	KeyDocumentID = "markstack:remote_doc_id"
	// KeySnapshot holds the last-known local snapshot (JSON).
	KeySnapshot = "markstack:snapshot"
	// KeyMetadata holds the last sync metadata record (JSON).
	KeyMetadata = "markstack:sync_meta"
)
