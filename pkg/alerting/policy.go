package alerting

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	PolicyHighRiskAlert = "high_risk_alert"

	ChannelInApp = "in_app"
	ChannelEmail = "email"
	ChannelSMS   = "sms"

	PriorityUrgent = "urgent"
	PriorityNormal = "normal"
)

// CommunicationPolicy decides who is told about a clinical event, on
// which channels, and how often a single recipient may be contacted.
type CommunicationPolicy struct {
	Name                 string   `yaml:"name"`
	RecipientRoles       []string `yaml:"recipient_roles"`
	Channels             []string `yaml:"channels"`
	Priority             string   `yaml:"priority"`
	FrequencyLimitPerDay int      `yaml:"frequency_limit_per_day"`
}

type PolicySet struct {
	policies map[string]CommunicationPolicy
}

// DefaultPolicies returns the built-in policy set used when no policy
// file is configured.
func DefaultPolicies() *PolicySet {
	return &PolicySet{policies: map[string]CommunicationPolicy{
		PolicyHighRiskAlert: {
			Name:                 PolicyHighRiskAlert,
			RecipientRoles:       []string{"doctor", "clinic_manager"},
			Channels:             []string{ChannelInApp, ChannelEmail, ChannelSMS},
			Priority:             PriorityUrgent,
			FrequencyLimitPerDay: 10,
		},
	}}
}

// LoadPolicies reads a YAML policy file and overlays it on the
// defaults, so a partial file only overrides the policies it names.
func LoadPolicies(path string) (*PolicySet, error) {
	set := DefaultPolicies()
	if path == "" {
		return set, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var file struct {
		Policies []CommunicationPolicy `yaml:"policies"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}

	for _, policy := range file.Policies {
		if policy.Name == "" {
			return nil, fmt.Errorf("policy file contains a policy without a name")
		}
		set.policies[policy.Name] = policy
	}
	return set, nil
}

func (s *PolicySet) Get(name string) (CommunicationPolicy, bool) {
	policy, ok := s.policies[name]
	return policy, ok
}
