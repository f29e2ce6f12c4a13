package types

import (
	"context"
	"encoding/json"
	"strings"
)

// HookContext is the per-call context object the build host hands to a hook.
// Wrappers pass it through to the delegate untouched.
type HookContext interface {
	Warn(message string)
}

type InputOptions struct {
	Input []string               `json:"input,omitempty"`
	Extra map[string]interface{} `json:"extra,omitempty"`
}

type ResolveOptions struct {
	IsEntry    bool                   `json:"isEntry"`
	Attributes map[string]string      `json:"attributes,omitempty"`
	Custom     map[string]interface{} `json:"custom,omitempty"`
}

// ResolvedID is the result of a resolveId hook. A nil *ResolvedID means the
// hook had no opinion and the host should ask the next plugin.
type ResolvedID struct {
	ID                string `json:"id"`
	External          bool   `json:"external,omitempty"`
	ModuleSideEffects *bool  `json:"moduleSideEffects,omitempty"`
}

// SourceDescription is the result of load and transform hooks.
type SourceDescription struct {
	Code string                 `json:"code"`
	Map  json.RawMessage        `json:"map,omitempty"`
	Meta map[string]interface{} `json:"meta,omitempty"`
}

type (
	BuildStartHook func(ctx context.Context, hc HookContext, options InputOptions) error
	BuildEndHook   func(ctx context.Context, hc HookContext, buildErr error) error
	ResolveIDHook  func(ctx context.Context, hc HookContext, id, importer string, options ResolveOptions) (*ResolvedID, error)
	LoadHook       func(ctx context.Context, hc HookContext, id string) (*SourceDescription, error)
	TransformHook  func(ctx context.Context, hc HookContext, code, id string) (*SourceDescription, error)
)

// Plugin is the capability descriptor of a build plugin. A nil hook field
// means the plugin does not implement that hook, which the host must be able
// to tell apart from a hook that returns no result.
type Plugin struct {
	Name       string
	BuildStart BuildStartHook
	BuildEnd   BuildEndHook
	ResolveID  ResolveIDHook
	Load       LoadHook
	Transform  TransformHook

	// Extra carries host specific plugin fields the cache layer does not
	// interpret. They are copied verbatim onto wrapped plugins.
	Extra map[string]interface{}
}

type HookSet uint8

const (
	HookBuildStart HookSet = 1 << iota
	HookBuildEnd
	HookResolveID
	HookLoad
	HookTransform
)

var hookNames = []struct {
	flag HookSet
	name string
}{
	{HookBuildStart, "buildStart"},
	{HookBuildEnd, "buildEnd"},
	{HookResolveID, "resolveId"},
	{HookLoad, "load"},
	{HookTransform, "transform"},
}

func (h HookSet) Has(flag HookSet) bool {
	return h&flag != 0
}

func (h HookSet) String() string {
	names := make([]string, 0, len(hookNames))
	for _, hn := range hookNames {
		if h.Has(hn.flag) {
			names = append(names, hn.name)
		}
	}
	return strings.Join(names, ",")
}

// Hooks reports which hooks the plugin implements.
func (p *Plugin) Hooks() HookSet {
	if p == nil {
		return 0
	}

	var set HookSet
	if p.BuildStart != nil {
		set |= HookBuildStart
	}
	if p.BuildEnd != nil {
		set |= HookBuildEnd
	}
	if p.ResolveID != nil {
		set |= HookResolveID
	}
	if p.Load != nil {
		set |= HookLoad
	}
	if p.Transform != nil {
		set |= HookTransform
	}
	return set
}

// CloneExtra returns a shallow copy of the plugin's extra fields.
func (p *Plugin) CloneExtra() map[string]interface{} {
	if p == nil || p.Extra == nil {
		return nil
	}

	extra := make(map[string]interface{}, len(p.Extra))
	for k, v := range p.Extra {
		extra[k] = v
	}
	return extra
}
