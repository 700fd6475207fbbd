package constants

import "strings"

// Input formats recognised by the extractor.
const (
	PDF   = "PDF"
	EXCEL = "EXCEL"
	ZIP   = "ZIP"
	TEXT  = "TEXT"
	CSV   = "CSV"
)

// FileTypes holds the formats a document row may carry in the ledger.
var FileTypes = []string{PDF, EXCEL, ZIP, TEXT, CSV}

// AllowedExtensions holds the extensions the extract command picks up from a directory.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"xlsx": {},
	"xlsm": {},
	"xls":  {},
	"zip":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the input format for an extension, or "" when unsupported.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "xlsx", "xlsm", "xls":
		return EXCEL
	case "zip":
		return ZIP
	case "txt":
		return TEXT
	case "csv":
		return CSV
	default:
		return ""
	}
}
