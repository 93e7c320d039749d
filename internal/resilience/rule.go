// Package resilience implements the policy engine guarding inter-service
// calls: per-resource circuit breakers (degrade rules), per-resource rate
// limits (flow rules) and a generic wrapper that substitutes a fallback value
// whenever a guarded call cannot produce a real one.
//
// A Policy is built once at startup from a rule table and handed explicitly to
// the components that need it. Rules are read-only afterwards.
package resilience

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Rule is one row of the policy table.
//
// For degrade rules Threshold is the failure ratio (0,1] above which the
// breaker opens, WindowSeconds the trailing statistics window and MinSamples
// the number of calls that must be observed in it first.
//
// For flow rules Threshold is the number of requests admitted per
// WindowSeconds (default 1); MinSamples is unused.
type Rule struct {
	Resource      string  `yaml:"resource"`
	Threshold     float64 `yaml:"threshold"`
	WindowSeconds int     `yaml:"windowSeconds"`
	MinSamples    int     `yaml:"minSamples"`
	// CooldownSeconds is how long an open breaker short-circuits before
	// admitting trial calls. Defaults to WindowSeconds.
	CooldownSeconds int `yaml:"cooldownSeconds,omitempty"`
	// TrialCalls bounds the calls admitted while half-open. Defaults to 1.
	TrialCalls int `yaml:"trialCalls,omitempty"`
}

func (r Rule) window() time.Duration {
	if r.WindowSeconds <= 0 {
		return time.Second
	}
	return time.Duration(r.WindowSeconds) * time.Second
}

func (r Rule) cooldown() time.Duration {
	if r.CooldownSeconds > 0 {
		return time.Duration(r.CooldownSeconds) * time.Second
	}
	return r.window()
}

func (r Rule) trialCalls() int {
	if r.TrialCalls > 0 {
		return r.TrialCalls
	}
	return 1
}

// Rules is the complete policy table.
type Rules struct {
	Flow    []Rule `yaml:"flow"`
	Degrade []Rule `yaml:"degrade"`
}

// Well-known resource names.
const (
	ResourceAuthService   = "auth-service"
	ResourceEngineService = "engine-service"
)

// DefaultRules returns the built-in table used when no overrides are configured.
func DefaultRules() Rules {
	return Rules{
		Flow: []Rule{
			{Resource: "POST:/api/v1/projects", Threshold: 10, WindowSeconds: 1},
			{Resource: "GET:/api/v1/templates", Threshold: 20, WindowSeconds: 1},
		},
		Degrade: []Rule{
			{Resource: ResourceAuthService, Threshold: 0.3, WindowSeconds: 30, MinSamples: 3},
			{Resource: ResourceEngineService, Threshold: 0.5, WindowSeconds: 60, MinSamples: 5},
		},
	}
}

// Validate checks every rule for usable values.
func (rs Rules) Validate() error {
	var errs []error
	for _, r := range rs.Flow {
		if r.Resource == "" {
			errs = append(errs, errors.New("flow rule: resource is required"))
		}
		if r.Threshold <= 0 {
			errs = append(errs, fmt.Errorf("flow rule %q: threshold must be > 0", r.Resource))
		}
	}
	for _, r := range rs.Degrade {
		if r.Resource == "" {
			errs = append(errs, errors.New("degrade rule: resource is required"))
		}
		if r.Threshold <= 0 || r.Threshold > 1 {
			errs = append(errs, fmt.Errorf("degrade rule %q: threshold must be in (0,1]", r.Resource))
		}
		if r.WindowSeconds <= 0 {
			errs = append(errs, fmt.Errorf("degrade rule %q: windowSeconds must be > 0", r.Resource))
		}
		if r.MinSamples < 1 {
			errs = append(errs, fmt.Errorf("degrade rule %q: minSamples must be >= 1", r.Resource))
		}
	}
	return errors.Join(errs...)
}

// Merge returns rs with the rules of o added; a rule in o replaces the rule
// for the same resource in rs.
func (rs Rules) Merge(o Rules) Rules {
	return Rules{
		Flow:    mergeRules(rs.Flow, o.Flow),
		Degrade: mergeRules(rs.Degrade, o.Degrade),
	}
}

func mergeRules(base, over []Rule) []Rule {
	out := make([]Rule, 0, len(base)+len(over))
	index := make(map[string]int, len(base)+len(over))
	for _, r := range append(append([]Rule{}, base...), over...) {
		if i, ok := index[r.Resource]; ok {
			out[i] = r
			continue
		}
		index[r.Resource] = len(out)
		out = append(out, r)
	}
	return out
}

// LoadRules reads a rule table from a YAML file:
//
//	degrade:
//	  - resource: auth-service
//	    threshold: 0.3
//	    windowSeconds: 30
//	    minSamples: 3
//	flow:
//	  - resource: "GET:/api/v1/templates"
//	    threshold: 20
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}

	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("failed to parse rules file: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, fmt.Errorf("invalid rules file %s: %w", path, err)
	}
	return rules, nil
}

// ParseRuleEntries parses inline entries of the form
// "resource|threshold|windowSeconds|minSamples"; trailing fields are optional.
func ParseRuleEntries(entries []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		fields := strings.Split(entry, "|")
		if len(fields) < 2 || len(fields) > 4 {
			return nil, fmt.Errorf("rule entry %q: want resource|threshold[|windowSeconds[|minSamples]]", entry)
		}

		r := Rule{Resource: strings.TrimSpace(fields[0])}
		var err error
		if r.Threshold, err = strconv.ParseFloat(strings.TrimSpace(fields[1]), 64); err != nil {
			return nil, fmt.Errorf("rule entry %q: threshold: %w", entry, err)
		}
		if len(fields) > 2 {
			if r.WindowSeconds, err = strconv.Atoi(strings.TrimSpace(fields[2])); err != nil {
				return nil, fmt.Errorf("rule entry %q: windowSeconds: %w", entry, err)
			}
		}
		if len(fields) > 3 {
			if r.MinSamples, err = strconv.Atoi(strings.TrimSpace(fields[3])); err != nil {
				return nil, fmt.Errorf("rule entry %q: minSamples: %w", entry, err)
			}
		}
		rules = append(rules, r)
	}
	return rules, nil
}
