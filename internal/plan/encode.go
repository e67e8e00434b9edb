package plan

import (
	"github.com/roach88/gplan/internal/ir"
)

// ToValue converts the plan into its logical encoding. Field names are
// stable; the runtime boundary may choose any byte layout on top of it.
func (p *Plan) ToValue() ir.Object {
	vertices := make(ir.List, len(p.vertices))
	for i, v := range p.vertices {
		inputs := make(ir.List, 0, len(v.Inputs))
		for _, e := range p.Inbound(v.ID) {
			shuffle := ir.Obj(ir.O("kind", ir.String(e.Shuffle.Kind)))
			if e.Shuffle.Kind == ShuffleByKey {
				shuffle["key_label"] = ir.Int(e.Shuffle.Key.Label)
				if e.Shuffle.Key.PropertyID != 0 {
					shuffle["key_property"] = ir.Int(e.Shuffle.Key.PropertyID)
				}
			}
			inputs = append(inputs, ir.Obj(
				ir.O("from", ir.Int(e.From)),
				ir.O("port", ir.Int(e.Port)),
				ir.O("shuffle", shuffle),
			))
		}

		obj := ir.Obj(
			ir.O("id", ir.Int(v.ID)),
			ir.O("op", ir.String(v.Op.Kind)),
			ir.O("args", v.Op.Args.Clone()),
			ir.O("inputs", inputs),
			ir.O("before", requirementsValue(v.Before)),
			ir.O("after", requirementsValue(v.After)),
			ir.O("global_stop", ir.Bool(v.GlobalStop)),
			ir.O("global_filter", ir.Bool(v.GlobalFilter)),
			ir.O("origin", ir.Int(v.Origin)),
		)
		if v.Store {
			obj["store"] = ir.String(v.StoreName)
		}
		if v.OutputType != nil {
			obj["output_type"] = ir.String(v.OutputType.String())
		}
		vertices[i] = obj
	}
	return ir.Obj(
		ir.O("format_version", ir.String(ir.PlanFormatVersion)),
		ir.O("vertices", vertices),
		ir.O("sink", ir.Int(p.sink)),
	)
}

func requirementsValue(reqs []Requirement) ir.List {
	out := make(ir.List, len(reqs))
	for i, r := range reqs {
		out[i] = ir.Obj(
			ir.O("kind", ir.String(r.Kind)),
			ir.O("labels", ir.Ints(r.Labels...)),
		)
	}
	return out
}

// MarshalCanonical encodes the plan as canonical JSON.
func (p *Plan) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(p.ToValue())
}

// Fingerprint is the content hash of the plan's canonical encoding. Equal
// plans have equal fingerprints regardless of which compilation built
// them.
func (p *Plan) Fingerprint() (string, error) {
	return ir.Fingerprint(ir.DomainPlan, p.ToValue())
}
