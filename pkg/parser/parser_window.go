package parser

import (
	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/token"
)

// Window specification parsing: OVER clauses, PARTITION BY, ORDER BY, frame specs.
//
// Grammar:
//
//	window_spec   → identifier | "(" [identifier] [PARTITION BY expr_list] [ORDER BY order_list] [frame_spec] ")"
//	window_defs   → identifier AS "(" window_spec ")" ("," identifier AS ...)*
//	frame_spec    → (ROWS|RANGE|GROUPS) frame_extent
//	frame_extent  → BETWEEN frame_bound AND frame_bound | frame_bound
//	frame_bound   → UNBOUNDED PRECEDING | UNBOUNDED FOLLOWING | CURRENT ROW | expr PRECEDING | expr FOLLOWING

// parseWindowSpec parses a window specification.
func (p *Parser) parseWindowSpec() *core.WindowSpec {
	start := p.token.Pos
	spec := &core.WindowSpec{}

	// Named window reference
	if p.isName(p.token) {
		spec.Name = p.ident()
		p.finish(spec, start)
		return spec
	}

	if !p.expect(token.LPAREN) {
		return nil
	}
	if !p.parseWindowBody(spec) || !p.expect(token.RPAREN) {
		return nil
	}
	p.finish(spec, start)
	return spec
}

// parseWindowBody parses the inside of a parenthesized window spec.
func (p *Parser) parseWindowBody(spec *core.WindowSpec) bool {
	// Base window name: OVER (w ORDER BY x)
	if p.isName(p.token) && !p.check(token.ROWS) && !p.check(token.RANGE) && !p.check(token.GROUPS) {
		spec.Name = p.ident()
	}

	// PARTITION BY
	if p.match(token.PARTITION) {
		if !p.expect(token.BY) {
			return false
		}
		spec.PartitionBy = p.parseExpressionList()
		if p.failed() {
			return false
		}
	}

	// ORDER BY
	if p.match(token.ORDER) {
		if !p.expect(token.BY) {
			return false
		}
		spec.OrderBy = p.parseOrderByList()
		if p.failed() {
			return false
		}
	}

	// Frame specification
	if p.check(token.ROWS) || p.check(token.RANGE) || p.check(token.GROUPS) {
		spec.Frame = p.parseFrameSpec()
		if spec.Frame == nil {
			return false
		}
	}
	return true
}

// parseWindowDefs parses the definitions of a WINDOW clause.
func (p *Parser) parseWindowDefs() []*core.WindowDef {
	var defs []*core.WindowDef
	for {
		start := p.token.Pos
		name, ok := p.expectIdent("window name")
		if !ok || !p.expect(token.AS) {
			return defs
		}
		def := &core.WindowDef{Name: name}
		def.Spec = p.parseWindowSpec()
		if def.Spec == nil {
			return defs
		}
		p.finish(def, start)
		defs = append(defs, def)

		if !p.match(token.COMMA) {
			return defs
		}
	}
}

// parseFrameSpec parses a window frame specification.
func (p *Parser) parseFrameSpec() *core.FrameSpec {
	frame := &core.FrameSpec{}

	// Frame type
	switch {
	case p.match(token.ROWS):
		frame.Type = core.FrameRows
	case p.match(token.RANGE):
		frame.Type = core.FrameRange
	case p.match(token.GROUPS):
		frame.Type = core.FrameGroups
	}

	// BETWEEN ... AND ...
	if p.match(token.BETWEEN) {
		frame.Start = p.parseFrameBound()
		if frame.Start == nil || !p.expect(token.AND) {
			return nil
		}
		frame.End = p.parseFrameBound()
		if frame.End == nil {
			return nil
		}
		return frame
	}

	// Single bound
	frame.Start = p.parseFrameBound()
	if frame.Start == nil {
		return nil
	}
	return frame
}

// parseFrameBound parses a frame bound.
func (p *Parser) parseFrameBound() *core.FrameBound {
	start := p.token.Pos
	bound := &core.FrameBound{}

	switch {
	case p.match(token.UNBOUNDED):
		switch {
		case p.match(token.PRECEDING):
			bound.Type = core.FrameUnboundedPreceding
		case p.match(token.FOLLOWING):
			bound.Type = core.FrameUnboundedFollowing
		default:
			p.unexpected("PRECEDING or FOLLOWING")
			return nil
		}

	case p.match(token.CURRENT):
		if !p.expect(token.ROW) {
			return nil
		}
		bound.Type = core.FrameCurrentRow

	default:
		// N PRECEDING or N FOLLOWING
		bound.Offset = p.parseExpression()
		if bound.Offset == nil {
			return nil
		}
		switch {
		case p.match(token.PRECEDING):
			bound.Type = core.FrameExprPreceding
		case p.match(token.FOLLOWING):
			bound.Type = core.FrameExprFollowing
		default:
			p.unexpected("PRECEDING or FOLLOWING")
			return nil
		}
	}

	p.finish(bound, start)
	return bound
}
