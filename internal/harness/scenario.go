package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cachegc/internal/engine"
	"github.com/roach88/cachegc/internal/storepath"
)

// Scenario defines one end-to-end run.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Now is the fixed reference time in epoch seconds.
	Now int64 `yaml:"now"`

	// RetentionDays is parsed like the command-line argument. Empty
	// selects the default window.
	RetentionDays string `yaml:"retention_days,omitempty"`

	// MissingPolicy is "skip" (default) or "abort".
	MissingPolicy string `yaml:"missing_policy,omitempty"`

	// Records is the store snapshot.
	Records []RecordSpec `yaml:"records"`

	// Closures maps ids to their expected closure, compared exactly.
	Closures map[string][]string `yaml:"closures,omitempty"`

	// Assertions validate the plan.
	Assertions []Assertion `yaml:"assertions"`
}

// RecordSpec is a store object record as written in a scenario.
type RecordSpec struct {
	Path             string   `yaml:"path"`
	References       []string `yaml:"references,omitempty"`
	RegistrationTime int64    `yaml:"registration_time"`
	DownloadSize     int64    `yaml:"download_size,omitempty"`
	URL              string   `yaml:"url,omitempty"`
}

// Record converts the spec into a store record.
func (r RecordSpec) Record() storepath.Record {
	refs := r.References
	if refs == nil {
		refs = []string{}
	}
	return storepath.Record{
		Path:             r.Path,
		References:       refs,
		RegistrationTime: r.RegistrationTime,
		DownloadSize:     r.DownloadSize,
		URL:              r.URL,
	}
}

// Assertion validates one property of a run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// IDs are object identifiers (deleted, kept).
	IDs []string `yaml:"ids,omitempty"`

	// Origins are origin URLs (deletable_origins).
	Origins []string `yaml:"origins,omitempty"`

	// Bytes is the expected reclaimable total (reclaimable_bytes).
	Bytes int64 `yaml:"bytes,omitempty"`

	// Code is the expected error code (error).
	Code string `yaml:"code,omitempty"`

	// Text is a substring of the captured log (log_contains).
	Text string `yaml:"text,omitempty"`
}

// Assertion type constants.
const (
	AssertDeleted          = "deleted"
	AssertKept             = "kept"
	AssertDeletableOrigins = "deletable_origins"
	AssertReclaimableBytes = "reclaimable_bytes"
	AssertError            = "error"
	AssertLogContains      = "log_contains"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Now <= 0 {
		return fmt.Errorf("now must be a positive epoch time")
	}

	if _, err := engine.ParseMissingPolicy(s.MissingPolicy); err != nil {
		return err
	}

	for i, rec := range s.Records {
		if rec.Path == "" {
			return fmt.Errorf("record %d: path is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion %d: %w", i, err)
		}
	}

	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertDeleted, AssertKept:
		if len(a.IDs) == 0 {
			return fmt.Errorf("%s requires ids", a.Type)
		}
	case AssertDeletableOrigins, AssertReclaimableBytes:
	case AssertError:
		if a.Code == "" {
			return fmt.Errorf("error requires code")
		}
	case AssertLogContains:
		if a.Text == "" {
			return fmt.Errorf("log_contains requires text")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
