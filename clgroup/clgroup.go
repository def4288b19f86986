// Package clgroup pairs each source rectangle with its resolvable targets.
package clgroup

import (
	"context"

	"cdr.dev/slog"

	"oss.terrastruct.com/connectlines/clresolve"
	"oss.terrastruct.com/connectlines/cltarget"
	"oss.terrastruct.com/connectlines/lib/log"
)

// Group resolves every source and target rectangle in elements.
//
// One group is emitted per element in input order. Targets keep their
// connectWith order and unresolvable ones are left out of the group they
// belong to. A source that cannot be resolved yields a group with a nil From
// and no targets.
func Group(ctx context.Context, r clresolve.Resolver, elements []cltarget.ConnectElement) []cltarget.GroupedConnection {
	groups := make([]cltarget.GroupedConnection, 0, len(elements))
	for _, el := range elements {
		g := cltarget.GroupedConnection{
			From: clresolve.Rect(r, el.Element),
			To:   make([]cltarget.ToEntry, 0, len(el.ConnectWith)),
		}
		if g.From == nil {
			log.Debug(ctx, "source not resolved", slog.F("element", el.Element.String()))
			groups = append(groups, g)
			continue
		}

		for _, cw := range el.ConnectWith {
			rect := clresolve.Rect(r, cw.Target)
			if rect == nil {
				log.Debug(ctx, "target not resolved",
					slog.F("element", el.Element.String()),
					slog.F("target", cw.Target.String()),
				)
				continue
			}
			cw.Normalize()
			g.To = append(g.To, cltarget.ToEntry{
				Rect:   rect,
				Color:  cw.Color,
				Edge:   cw.Edge,
				Stroke: cw.Stroke,
			})
		}
		groups = append(groups, g)
	}
	return groups
}
