package actions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/skydesk/skydesk/pkg/nodes"
	"github.com/skydesk/skydesk/pkg/session"
)

// CustomAction is a deployment-supplied context-menu entry appended after
// the built-in actions.
type CustomAction struct {
	Name       string
	Icon       string
	Section    string
	Applicable func(t Target) bool
	Exe        func(ctx context.Context, s *session.State, t Target) error
}

func (c CustomAction) build(s *session.State, t Target, p Permissions) (Action, bool) {
	if !c.Applicable(t) {
		return Action{}, false
	}
	return Action{
		Name:       c.Name,
		Icon:       c.Icon,
		Section:    c.Section,
		Authorized: p.Read,
		Applicable: func() bool { return true },
		Exe: func(ctx context.Context) error {
			return c.Exe(ctx, s, t)
		},
	}, true
}

// RegisterCustom appends a custom action.
func (r *Registry) RegisterCustom(c CustomAction) {
	r.mu.Lock()
	r.custom = append(r.custom, c)
	r.mu.Unlock()
}

// ManifestEntry is one context-menu extension in a deployment's install
// manifest.
type ManifestEntry struct {
	Name      string   `json:"name"`
	Icon      string   `json:"icon"`
	Section   string   `json:"section,omitempty"`
	ItemKinds []string `json:"itemKinds,omitempty"`
	// Package identifies the application the hosting shell launches when
	// the entry is invoked.
	Package    string            `json:"package"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// Launcher starts a deployment application against a node; supplied by the
// hosting shell.
type Launcher func(ctx context.Context, pkg string, parameters map[string]string, n nodes.Node) error

// LoadManifest parses an install manifest and registers its entries. Each
// entry applies to items of the listed kinds (every item when none are
// listed) and launches its package through the given launcher.
func (r *Registry) LoadManifest(raw []byte, launch Launcher) error {
	var entries []ManifestEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("parse actions manifest: %w", err)
	}
	for _, e := range entries {
		entry := e
		section := entry.Section
		if section == "" {
			section = SectionView
		}
		r.RegisterCustom(CustomAction{
			Name:    entry.Name,
			Icon:    entry.Icon,
			Section: section,
			Applicable: func(t Target) bool {
				item, ok := t.Node.(*nodes.ItemNode)
				if !ok {
					return false
				}
				if len(entry.ItemKinds) == 0 {
					return true
				}
				for _, k := range entry.ItemKinds {
					if nodes.ItemKind(k) == item.Kind {
						return true
					}
				}
				return false
			},
			Exe: func(ctx context.Context, s *session.State, t Target) error {
				return launch(ctx, entry.Package, entry.Parameters, t.Node)
			},
		})
	}
	return nil
}
