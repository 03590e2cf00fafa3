package autosettings

import (
	"context"

	"github.com/goliatone/go-autosettings/pkg/dom"
	"github.com/goliatone/go-autosettings/pkg/resolve"
)

// Layer names reported by Explain.
const (
	LayerManaged = "managed"
	LayerSynced  = "synced"
)

// Explain reports what policy, the synced store and the default provider
// each hold for option, and which of them wins. An empty group is taken from
// the bound control, if any. Explain never touches the page or the
// remembered groups, so it also works on a handle without a document.
func (s *Settings) Explain(ctx context.Context, option, group string) (resolve.Trace, error) {
	if group == "" {
		if el := dom.Lookup(s.doc, option); el != nil {
			group, _ = dom.GroupOf(el)
		}
	}
	key := storageKey(option, group)

	managed, err := s.managed.Get(ctx, key)
	if err != nil {
		s.logger.Warn("could not get managed options", "option", option, "error", err)
		managed = nil
	}
	synced, err := s.synced.Get(ctx, key)
	if err != nil {
		return resolve.Trace{}, optionError("explain", option, err)
	}

	trace, err := s.engine.Trace(ctx, option, group,
		resolve.Layer{Name: LayerManaged, Results: managed},
		resolve.Layer{Name: LayerSynced, Results: synced},
	)
	if err != nil {
		return resolve.Trace{}, optionError("explain", option, err)
	}
	return trace, nil
}
