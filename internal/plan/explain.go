package plan

import (
	"fmt"
	"strings"

	"github.com/roach88/gplan/internal/ir"
)

// Explain renders the plan as deterministic text, one vertex per line:
//
//	#2 HAS {"predicate":...} <- #1 Forward :: Vertex
//
// followed by requirement lists and flags, and a final "sink #N" line.
func (p *Plan) Explain() string {
	var b strings.Builder
	for _, v := range p.vertices {
		fmt.Fprintf(&b, "#%d %s", v.ID, v.Op.Kind)
		if len(v.Op.Args) > 0 {
			args, err := ir.MarshalCanonical(v.Op.Args)
			if err != nil {
				args = []byte(fmt.Sprintf("<%v>", err))
			}
			b.WriteByte(' ')
			b.Write(args)
		}
		if in := p.Inbound(v.ID); len(in) > 0 {
			parts := make([]string, len(in))
			for i, e := range in {
				parts[i] = fmt.Sprintf("#%d %s", e.From, e.Shuffle)
			}
			b.WriteString(" <- ")
			b.WriteString(strings.Join(parts, ", "))
		}
		if v.OutputType != nil {
			b.WriteString(" :: ")
			b.WriteString(v.OutputType.String())
		}
		writeRequirements(&b, "before", v.Before)
		writeRequirements(&b, "after", v.After)
		if v.GlobalStop {
			b.WriteString(" global-stop")
		}
		if v.GlobalFilter {
			b.WriteString(" global-filter")
		}
		if v.Store {
			fmt.Fprintf(&b, " store=%s", v.StoreName)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "sink #%d\n", p.sink)
	return b.String()
}

func writeRequirements(b *strings.Builder, name string, reqs []Requirement) {
	if len(reqs) == 0 {
		return
	}
	parts := make([]string, len(reqs))
	for i, r := range reqs {
		parts[i] = r.String()
	}
	fmt.Fprintf(b, " %s=%s", name, strings.Join(parts, "+"))
}
