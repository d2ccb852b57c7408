package schema

// WorkflowDocument is the fully-resolved workflow configuration handed to the
// engine by the config loader. Environment substitution has already happened
// by the time the engine sees it.
type WorkflowDocument struct {
	Bot       BotConfig        `json:"bot" yaml:"bot"`
	Variables map[string]any   `json:"variables,omitempty" yaml:"variables,omitempty"`
	Actions   []map[string]any `json:"actions" yaml:"actions"`
}

// BotConfig is the workflow-level record.
type BotConfig struct {
	Name          string        `json:"name" yaml:"name"`
	Headless      bool          `json:"headless,omitempty" yaml:"headless,omitempty"`
	Debug         bool          `json:"debug,omitempty" yaml:"debug,omitempty"`
	CorrelationID string        `json:"correlation_id,omitempty" yaml:"correlation_id,omitempty"`
	Report        *ReportConfig `json:"report,omitempty" yaml:"report,omitempty"`
}

// ReportConfig controls what happens with the run summary after a run.
// Each toggle only takes effect when the matching integration is configured.
type ReportConfig struct {
	Notify   bool   `json:"notify,omitempty" yaml:"notify,omitempty"`
	Upload   bool   `json:"upload,omitempty" yaml:"upload,omitempty"`
	UploadTo string `json:"upload_to,omitempty" yaml:"upload_to,omitempty"` // object key prefix
	// TransferTo is a remote directory; downloaded files are copied there
	// over SFTP after the run.
	TransferTo string `json:"transfer_to,omitempty" yaml:"transfer_to,omitempty"`
}
