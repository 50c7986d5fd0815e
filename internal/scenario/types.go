// Package scenario loads YAML-scripted provisioning scenarios for the
// orchestrator's table-driven tests. A scenario scripts the collaborators
// (transport outcomes, discovery passes, probe answers), the operator's
// actions, and the expected end state.
package scenario

// Scenario is one scripted provisioning run.
type Scenario struct {
	// ID is the unique scenario identifier (e.g., "SC-PROV-001").
	ID string `yaml:"id"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Transport scripts the credential channel.
	Transport TransportScript `yaml:"transport"`

	// Discovery scripts the discovery passes.
	Discovery DiscoveryScript `yaml:"discovery"`

	// Verify maps candidate addresses to probe outcome sequences. Each
	// outcome is one of "controller", "mismatch", "unreachable"; the
	// last entry repeats.
	Verify map[string][]string `yaml:"verify"`

	// Identity is what a "controller" probe outcome reports.
	Identity Identity `yaml:"identity"`

	// Steps are the operator actions in order.
	Steps []Step `yaml:"steps"`

	// Expect describes the required end state.
	Expect Expectation `yaml:"expect"`
}

// TransportScript scripts SendCredentials outcomes, one per submission; the
// last entry repeats. Outcomes: "success", "success-with-address:<host>",
// "rejected", "unreachable", "timeout", "protocol".
type TransportScript struct {
	Outcomes []string `yaml:"outcomes"`
}

// DiscoveryScript scripts the candidates yielded per discovery pass; passes
// beyond the scripted ones yield nothing.
type DiscoveryScript struct {
	Passes [][]string `yaml:"passes"`
}

// Identity is the scripted controller self-description.
type Identity struct {
	DeviceID string `yaml:"device_id"`
	Name     string `yaml:"name"`
	LEDCount int    `yaml:"led_count"`
}

// Step is one operator action.
type Step struct {
	// Action is one of "submit_credentials", "await_state",
	// "submit_manual", "force_accept", "cancel".
	Action string `yaml:"action"`

	// Network and Secret parameterize submit_credentials.
	Network string `yaml:"network,omitempty"`
	Secret  string `yaml:"secret,omitempty"`

	// Address parameterizes submit_manual and force_accept.
	Address string `yaml:"address,omitempty"`

	// State parameterizes await_state.
	State string `yaml:"state,omitempty"`

	// Attempt, when non-zero, asserts the credential attempt counter at
	// an await_state step.
	Attempt int `yaml:"attempt,omitempty"`
}

// Expectation is the required end state of a scenario.
type Expectation struct {
	// FinalState names the session state the scenario must end in.
	FinalState string `yaml:"final_state"`

	// Record, when set, must exist in the registry afterwards.
	Record *RecordExpect `yaml:"record,omitempty"`

	// EmptyRegistry asserts that no record was persisted.
	EmptyRegistry bool `yaml:"empty_registry,omitempty"`
}

// RecordExpect describes the persisted record.
type RecordExpect struct {
	DeviceID    string `yaml:"device_id"`
	Address     string `yaml:"address"`
	Configured  bool   `yaml:"configured"`
	NetworkName string `yaml:"network_name,omitempty"`
}
