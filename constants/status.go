package constants

// RunStatus is the canonical status for rows in the runs table.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
)

// RunKind distinguishes the two utilities writing to the ledger.
type RunKind string

const (
	RunKindGrid     RunKind = "GRID"
	RunKindPipeline RunKind = "PIPELINE"
)

// ResultStatus classifies how a grid document/model pairing ended.
type ResultStatus string

const (
	ResultSuccess   ResultStatus = "Success"
	ResultJSONError ResultStatus = "JSON Error"
	ResultAPIError  ResultStatus = "API Error"
	ResultException ResultStatus = "Exception"
)

// DocumentStatus is stored per extracted PDF.
type DocumentStatus string

const (
	DocumentExtracted DocumentStatus = "EXTRACTED" // text/tables written
	DocumentSchemesOK DocumentStatus = "SCHEMES_OK"
	DocumentFailed    DocumentStatus = "FAILED"
)
