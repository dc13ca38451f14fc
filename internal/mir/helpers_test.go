package mir

func term(k TerminatorKind) *Terminator {
	return &Terminator{Kind: k}
}

func stmt(k StatementKind) Statement {
	return Statement{Kind: k}
}

func block(k TerminatorKind, stmts ...StatementKind) BasicBlockData {
	bd := BasicBlockData{Term: term(k)}
	for _, s := range stmts {
		bd.Statements = append(bd.Statements, stmt(s))
	}
	return bd
}

func i32() Ty { return PrimTy{Kind: I32} }

// diamondBlocks builds bb0 -> {bb1, bb2} -> bb3.
func diamondBlocks() []BasicBlockData {
	return []BasicBlockData{
		block(SwitchInt{
			Discr:     Copy{Place: PlaceFrom(1)},
			Targets:   []SwitchTarget{{Value: 0, Target: 1}},
			Otherwise: 2,
		}, StorageLive{Local: 2}),
		block(Goto{Target: 3}, Assign{Place: PlaceFrom(2), Rvalue: Use{Operand: ConstOperand{Constant: Constant{Literal: Int(I32, 1)}}}}),
		block(Goto{Target: 3}, Assign{Place: PlaceFrom(2), Rvalue: Use{Operand: ConstOperand{Constant: Constant{Literal: Int(I32, 2)}}}}),
		block(Return{}, Assign{Place: ReturnPlaceRef(), Rvalue: Use{Operand: Move{Place: PlaceFrom(2)}}}, StorageDead{Local: 2}),
	}
}

// testLocals returns the return place, argCount i32 arguments and extra
// i32 temporaries.
func testLocals(argCount, extra int) []LocalDecl {
	locals := make([]LocalDecl, 0, 1+argCount+extra)
	for i := 0; i < 1+argCount+extra; i++ {
		locals = append(locals, NewLocalDecl(i32(), DummySpan))
	}
	return locals
}

func newTestBody(blocks []BasicBlockData, argCount, extra int) *Body {
	return NewBody(
		MirSourceItem(DefID{Index: 1}, "test"),
		blocks,
		SourceScopes{{Span: DummySpan, LocalData: SetCrossCrate(SourceScopeLocalData{})}},
		testLocals(argCount, extra),
		nil,
		argCount,
		nil,
		DummySpan,
		nil,
		nil,
	)
}
