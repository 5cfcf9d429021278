package reconcile

// ImportEntryStatus classifies one receivable's outcome during import
type ImportEntryStatus string

const (
	ImportEntryImported ImportEntryStatus = "imported"
	ImportEntrySkipped  ImportEntryStatus = "skipped"
)

// ImportLogEntry records what happened to one receivable
type ImportLogEntry struct {
	ExternalID   string            `json:"external_id"`
	Counterparty string            `json:"counterparty"`
	Status       ImportEntryStatus `json:"status"`
	Reason       string            `json:"reason,omitempty"`
	ClientCode   string            `json:"client_code,omitempty"`
}

// ImportResult is the outcome of one import run
type ImportResult struct {
	Total          int              `json:"total"`
	Imported       int              `json:"imported"`
	Skipped        int              `json:"skipped"`
	ClientsCreated int              `json:"clients_created"`
	Log            []ImportLogEntry `json:"log"`
}

// Progress is called after every processed receivable so a long import can
// be observed mid-run
type Progress func(current, total, imported, skipped int)

// SyncResult is the outcome of one status sync run
type SyncResult struct {
	Total          int `json:"total"`
	Updated        int `json:"updated"`
	Unchanged      int `json:"unchanged"`
	Cancelled      int `json:"cancelled"`
	DueDateUpdated int `json:"due_date_updated"`
}

// BulkDeleteResult is the outcome of one bulk delete run
type BulkDeleteResult struct {
	Total       int      `json:"total"`
	SoftDeleted int      `json:"soft_deleted"`
	HardDeleted int      `json:"hard_deleted"`
	Errors      []string `json:"errors,omitempty"`
}
