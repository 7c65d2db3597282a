package ingest

// Stage is a state of the per-request ingestion state machine.
type Stage string

const (
	StageStart           Stage = "START"
	StageCreateFailed    Stage = "CREATE_FAILED"
	StageMetadataCreated Stage = "METADATA_CREATED"
	StageFetching        Stage = "FETCHING"
	StageFetchFailed     Stage = "FETCH_FAILED"
	StageBuffered        Stage = "BUFFERED"
	StageStoring         Stage = "STORING"
	StageStored          Stage = "STORED"
	StageStoreFailed     Stage = "STORE_FAILED"
	StageMetadataPatched Stage = "METADATA_PATCHED"
	StagePatchFailed     Stage = "PATCH_FAILED"
	StageIndexed         Stage = "INDEXED"
)

// Terminal reports whether s settles the request's outcome. The only
// transition out of a terminal stage is METADATA_PATCHED -> INDEXED, which
// records the manifest and never changes success into failure.
func (s Stage) Terminal() bool {
	switch s {
	case StageCreateFailed, StageFetchFailed, StageStoreFailed, StagePatchFailed, StageMetadataPatched, StageIndexed:
		return true
	}
	return false
}

// outcome is the metrics label for a terminal stage.
func (s Stage) outcome() string {
	switch s {
	case StageCreateFailed:
		return "create_failed"
	case StageFetchFailed:
		return "fetch_failed"
	case StageStoreFailed:
		return "store_failed"
	case StagePatchFailed:
		return "patch_failed"
	case StageMetadataPatched, StageIndexed:
		return "success"
	}
	return "rejected"
}
