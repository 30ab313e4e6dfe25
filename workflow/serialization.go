package workflow

import (
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pzhin/agentweave/types"
)

// Definition is the serializable form of a Graph. It carries structure
// and configuration only; dispatch conditions are plain Go functions
// and must be re-attached with AttachCondition after loading.
type Definition struct {
	ID             string            `json:"id" yaml:"id"`
	Name           string            `json:"name" yaml:"name"`
	Version        string            `json:"version,omitempty" yaml:"version,omitempty"`
	Metadata       types.Values      `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	DefaultTimeout string            `json:"default_timeout,omitempty" yaml:"default_timeout,omitempty"`
	DefaultRetry   *RetryDefinition  `json:"default_retry,omitempty" yaml:"default_retry,omitempty"`
	Agents         []AgentDefinition `json:"agents" yaml:"agents"`
}

// AgentDefinition is the serializable form of one agent slot.
// HasCondition records that the original node carried a condition, so
// a loader that forgets to re-attach one can notice.
type AgentDefinition struct {
	ID           string             `json:"id" yaml:"id"`
	Type         string             `json:"type" yaml:"type"`
	DependsOn    []string           `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	Inputs       types.Values       `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Bindings     map[string]Binding `json:"bindings,omitempty" yaml:"bindings,omitempty"`
	Checkpoint   bool               `json:"checkpoint,omitempty" yaml:"checkpoint,omitempty"`
	Timeout      string             `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Retry        *RetryDefinition   `json:"retry,omitempty" yaml:"retry,omitempty"`
	HasCondition bool               `json:"has_condition,omitempty" yaml:"has_condition,omitempty"`
}

// RetryDefinition is the serializable form of a RetryPolicy. Delays
// use time.ParseDuration syntax ("500ms", "30s"). The RetryIf
// predicate is a function and does not serialize; loaded policies
// retry every error.
type RetryDefinition struct {
	MaxRetries   int     `json:"max_retries" yaml:"max_retries"`
	InitialDelay string  `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
	MaxDelay     string  `json:"max_delay,omitempty" yaml:"max_delay,omitempty"`
	Multiplier   float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
	Jitter       bool    `json:"jitter,omitempty" yaml:"jitter,omitempty"`
}

// Definition converts the graph to its serializable form. Agents are
// emitted in ID order so the output is stable across calls.
func (g *Graph) Definition() *Definition {
	def := &Definition{
		ID:       g.id,
		Name:     g.name,
		Version:  g.version,
		Metadata: g.metadata.Clone(),
		Agents:   make([]AgentDefinition, 0, len(g.nodes)),
	}
	if g.defaultTimeout > 0 {
		def.DefaultTimeout = g.defaultTimeout.String()
	}
	def.DefaultRetry = retryDefinition(g.defaultRetry)

	for _, id := range g.NodeIDs() {
		n := g.nodes[id]
		ad := AgentDefinition{
			ID:           n.ID,
			Type:         n.Type,
			DependsOn:    append([]string(nil), n.DependsOn...),
			Checkpoint:   n.Checkpoint,
			HasCondition: n.Condition != nil,
		}
		if len(n.Inputs) > 0 {
			ad.Inputs = n.Inputs.Clone()
		}
		if len(n.Bindings) > 0 {
			ad.Bindings = make(map[string]Binding, len(n.Bindings))
			for k, v := range n.Bindings {
				ad.Bindings[k] = v
			}
		}
		if n.Timeout > 0 {
			ad.Timeout = n.Timeout.String()
		}
		ad.Retry = retryDefinition(n.Retry)
		def.Agents = append(def.Agents, ad)
	}
	return def
}

// FromDefinition rebuilds a validated Graph from its serializable
// form.
func FromDefinition(def *Definition) (*Graph, error) {
	if def == nil {
		return nil, types.NewError(types.ErrValidation, "nil workflow definition")
	}
	b := NewGraphBuilder(def.ID, def.Name).WithVersion(def.Version)
	for k, v := range def.Metadata {
		b.WithMetadata(k, v)
	}
	if def.DefaultTimeout != "" {
		d, err := parseDuration("default_timeout", def.DefaultTimeout)
		if err != nil {
			return nil, err
		}
		b.WithDefaultTimeout(d)
	}
	if def.DefaultRetry != nil {
		policy, err := retryPolicy(def.DefaultRetry)
		if err != nil {
			return nil, err
		}
		b.WithDefaultRetry(policy)
	}

	for _, ad := range def.Agents {
		nb := b.AddAgent(ad.ID, ad.Type).
			DependsOn(ad.DependsOn...).
			WithInputs(ad.Inputs)
		for input, binding := range ad.Bindings {
			nb.BindInput(input, binding.Source, binding.Key)
		}
		if ad.Checkpoint {
			nb.WithCheckpoint()
		}
		if ad.Timeout != "" {
			d, err := parseDuration(ad.ID+".timeout", ad.Timeout)
			if err != nil {
				return nil, err
			}
			nb.WithTimeout(d)
		}
		if ad.Retry != nil {
			policy, err := retryPolicy(ad.Retry)
			if err != nil {
				return nil, err
			}
			nb.WithRetry(policy)
		}
		nb.Done()
	}
	return b.Build()
}

// ToJSON serializes the graph as indented JSON.
func (g *Graph) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(g.Definition(), "", "  ")
	if err != nil {
		return nil, types.NewError(types.ErrValidation, "marshal workflow to JSON").WithCause(err)
	}
	return data, nil
}

// ToYAML serializes the graph as YAML.
func (g *Graph) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(g.Definition())
	if err != nil {
		return nil, types.NewError(types.ErrValidation, "marshal workflow to YAML").WithCause(err)
	}
	return data, nil
}

// FromJSON loads and validates a graph from JSON.
func FromJSON(data []byte) (*Graph, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, types.NewError(types.ErrValidation, "unmarshal workflow JSON").WithCause(err)
	}
	return FromDefinition(&def)
}

// FromYAML loads and validates a graph from YAML.
func FromYAML(data []byte) (*Graph, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, types.NewError(types.ErrValidation, "unmarshal workflow YAML").WithCause(err)
	}
	return FromDefinition(&def)
}

func retryDefinition(p *RetryPolicy) *RetryDefinition {
	if p == nil {
		return nil
	}
	rd := &RetryDefinition{
		MaxRetries: p.MaxRetries,
		Multiplier: p.Multiplier,
		Jitter:     p.Jitter,
	}
	if p.InitialDelay > 0 {
		rd.InitialDelay = p.InitialDelay.String()
	}
	if p.MaxDelay > 0 {
		rd.MaxDelay = p.MaxDelay.String()
	}
	return rd
}

func retryPolicy(rd *RetryDefinition) (*RetryPolicy, error) {
	p := &RetryPolicy{
		MaxRetries: rd.MaxRetries,
		Multiplier: rd.Multiplier,
		Jitter:     rd.Jitter,
	}
	if rd.InitialDelay != "" {
		d, err := parseDuration("retry.initial_delay", rd.InitialDelay)
		if err != nil {
			return nil, err
		}
		p.InitialDelay = d
	}
	if rd.MaxDelay != "" {
		d, err := parseDuration("retry.max_delay", rd.MaxDelay)
		if err != nil {
			return nil, err
		}
		p.MaxDelay = d
	}
	return p, nil
}

func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, types.Errorf(types.ErrValidation, "invalid duration %q for %s", value, field).WithCause(err)
	}
	return d, nil
}
