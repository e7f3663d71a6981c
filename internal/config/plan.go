package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rescale/rescale-staging/internal/staging"
)

// Provider kinds accepted in a binding plan.
const (
	KindLocal     = "local"
	KindTemporary = "temporary"
	KindWorkspace = "workspace"
	KindNull      = "unbound"
)

// BindingPlan describes which providers a run creates and which staging slots
// each one fills.
//
//	fallback: data
//	providers:
//	  - name: data
//	    kind: local
//	    path: /data/in
//	  - name: snowflake
//	    kind: workspace
//	    workspace:
//	      type: workspace-snowflake
//	      create: true
//	    scopes:
//	      workspace-snowflake: [tableData]
type BindingPlan struct {
	// Fallback names the provider bound into every slot left unbound after all
	// providers have been added. Empty means no fallback.
	Fallback  string         `yaml:"fallback"`
	Providers []ProviderPlan `yaml:"providers"`
}

// ProviderPlan is one provider of a binding plan.
type ProviderPlan struct {
	Name      string              `yaml:"name"`
	Kind      string              `yaml:"kind"`
	Path      string              `yaml:"path,omitempty"`
	Workspace *WorkspacePlan      `yaml:"workspace,omitempty"`
	Scopes    map[string][]string `yaml:"scopes,omitempty"`
}

// WorkspacePlan selects a remote workspace for a provider of kind workspace.
// Exactly one of Create and ID must be set.
type WorkspacePlan struct {
	Type        string            `yaml:"type"`
	Create      bool              `yaml:"create,omitempty"`
	ID          string            `yaml:"id,omitempty"`
	LoginType   string            `yaml:"login_type,omitempty"`
	ComponentID string            `yaml:"component_id,omitempty"`
	ConfigID    string            `yaml:"config_id,omitempty"`
	Credentials map[string]string `yaml:"credentials,omitempty"`
}

// LoadBindingPlan reads and validates a YAML binding plan.
func LoadBindingPlan(path string) (*BindingPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read binding plan %s: %w", path, err)
	}
	return ParseBindingPlan(data)
}

// ParseBindingPlan decodes and validates a YAML binding plan.
func ParseBindingPlan(data []byte) (*BindingPlan, error) {
	var plan BindingPlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("%w: invalid binding plan: %v", staging.ErrConfiguration, err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Validate checks provider names, kinds and the fallback reference. Staging
// type keys of scopes are checked later, when the provider is added to the
// factory, so that the error lists the registry's known types.
func (p *BindingPlan) Validate() error {
	var errs []error
	seen := make(map[string]ProviderPlan, len(p.Providers))

	for i, prov := range p.Providers {
		if strings.TrimSpace(prov.Name) == "" {
			errs = append(errs, fmt.Errorf("provider #%d has no name", i+1))
			continue
		}
		if _, dup := seen[prov.Name]; dup {
			errs = append(errs, fmt.Errorf("provider %q is defined twice", prov.Name))
			continue
		}
		seen[prov.Name] = prov

		switch prov.Kind {
		case KindLocal:
			if strings.TrimSpace(prov.Path) == "" {
				errs = append(errs, fmt.Errorf("provider %q: local providers need a path", prov.Name))
			}
		case KindTemporary, KindNull:
		case KindWorkspace:
			errs = append(errs, validateWorkspacePlan(prov)...)
		default:
			errs = append(errs, fmt.Errorf("provider %q: unknown kind %q", prov.Name, prov.Kind))
		}

		for typ, axes := range prov.Scopes {
			if _, err := staging.NewScope(axes...); err != nil {
				errs = append(errs, fmt.Errorf("provider %q, scope %q: %w", prov.Name, typ, err))
			}
		}
	}

	if p.Fallback != "" {
		fb, ok := seen[p.Fallback]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("fallback provider %q is not defined", p.Fallback))
		case fb.Kind != KindLocal && fb.Kind != KindTemporary:
			errs = append(errs, fmt.Errorf("fallback provider %q must be local or temporary, got %q", p.Fallback, fb.Kind))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: invalid binding plan: %w", staging.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

func validateWorkspacePlan(prov ProviderPlan) []error {
	ws := prov.Workspace
	if ws == nil {
		return []error{fmt.Errorf("provider %q: workspace providers need a workspace section", prov.Name)}
	}
	var errs []error
	typ, err := staging.ParseType(ws.Type)
	if err != nil {
		errs = append(errs, fmt.Errorf("provider %q: %w", prov.Name, err))
	} else if typ.Class() != staging.ClassWorkspace {
		errs = append(errs, fmt.Errorf("provider %q: %q is not a workspace staging type", prov.Name, typ))
	}
	if ws.Create == (ws.ID != "") {
		errs = append(errs, fmt.Errorf("provider %q: set exactly one of workspace.create and workspace.id", prov.Name))
	}
	if ws.Create && len(ws.Credentials) > 0 {
		errs = append(errs, fmt.Errorf("provider %q: credentials only apply to an existing workspace", prov.Name))
	}
	return errs
}

// ScopeMap converts the provider's scopes into the form accepted by the
// strategy factory. Staging type names are passed through unparsed.
func (p ProviderPlan) ScopeMap() (map[staging.Type]staging.Scope, error) {
	out := make(map[staging.Type]staging.Scope, len(p.Scopes))
	for typ, axes := range p.Scopes {
		scope, err := staging.NewScope(axes...)
		if err != nil {
			return nil, fmt.Errorf("provider %q, scope %q: %w", p.Name, typ, err)
		}
		out[staging.Type(typ)] = scope
	}
	return out, nil
}

// ProviderNames returns provider names in plan order.
func (p *BindingPlan) ProviderNames() []string {
	names := make([]string, 0, len(p.Providers))
	for _, prov := range p.Providers {
		names = append(names, prov.Name)
	}
	return names
}

// ScopeTypes returns the staging type keys of the provider's scopes, sorted.
func (p ProviderPlan) ScopeTypes() []string {
	keys := make([]string, 0, len(p.Scopes))
	for k := range p.Scopes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
