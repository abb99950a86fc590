package constants

// Stage names a step of the extraction state machine. Values are recorded in
// diagnostics and persisted with results.
type Stage string

const (
	StageStart        Stage = "START"
	StageTextLayerTry Stage = "TEXT_LAYER_TRY"
	StageRender       Stage = "RENDER"
	StagePreprocess   Stage = "PREPROCESS"
	StageOCR          Stage = "OCR"
	StageFieldExtract Stage = "FIELD_EXTRACT"
	StageMatch        Stage = "MATCH"
	StagePathExtract  Stage = "PATH_EXTRACT"
	StageDone         Stage = "DONE"
)

// RunStatus is the canonical outcome of one document run.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusOK      RunStatus = "OK"      // every stage reached DONE
	RunStatusPartial RunStatus = "PARTIAL" // deadline hit, result is best-effort
	RunStatusFailed  RunStatus = "FAILED"  // source unreadable
)

// Provenance tags where a line of text came from.
type Provenance string

const (
	ProvenanceTextLayer Provenance = "text-layer"
	ProvenanceOCR       Provenance = "ocr"
)

// Route records which branch produced the header lines for a document.
type Route string

const (
	RouteTextLayer Route = "text-layer"
	RouteOCR       Route = "ocr"
)
