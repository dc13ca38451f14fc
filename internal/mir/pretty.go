package mir

import (
	"fmt"
	"io"
	"strings"
)

const indent = "    "

// WriteMirFn writes a textual dump of body to w.
func WriteMirFn(w io.Writer, body *Body) error {
	_, err := io.WriteString(w, FormatMirFn(body))
	return err
}

// FormatMirFn renders body in the MIR dump format.
func FormatMirFn(body *Body) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// MIR for `%s` at %s\n", body.Source, body.Phase)
	writeSignature(&b, body)
	b.WriteString(" {\n")

	for _, vdi := range body.VarDebugInfo {
		fmt.Fprintf(&b, "%sdebug %s => %s;\n", indent, vdi.Name, debugContents(vdi.Value))
	}
	for l := range body.LocalDecls {
		if l > 0 && l <= body.ArgCount {
			continue
		}
		decl := &body.LocalDecls[l]
		mut := ""
		if decl.Mutability == Mut {
			mut = "mut "
		}
		fmt.Fprintf(&b, "%slet %s%s: %s;\n", indent, mut, Local(l), decl.Ty)
	}

	for bb, data := range body.BasicBlocks.All() {
		b.WriteString("\n")
		writeBlock(&b, bb, data)
	}
	b.WriteString("}\n")
	return b.String()
}

func writeSignature(b *strings.Builder, body *Body) {
	args := make([]string, 0, body.ArgCount)
	for l := range body.ArgsIter() {
		args = append(args, fmt.Sprintf("%s: %s", l, body.LocalDecls[l].Ty))
	}
	fmt.Fprintf(b, "fn %s(%s)", body.Source.Instance.Name, strings.Join(args, ", "))
	if len(body.LocalDecls) > 0 {
		fmt.Fprintf(b, " -> %s", body.ReturnTy())
	}
}

func writeBlock(b *strings.Builder, bb BasicBlock, data *BasicBlockData) {
	if data.IsCleanup {
		fmt.Fprintf(b, "%s%s (cleanup): {\n", indent, bb)
	} else {
		fmt.Fprintf(b, "%s%s: {\n", indent, bb)
	}
	for i := range data.Statements {
		fmt.Fprintf(b, "%s%s%s;\n", indent, indent, data.Statements[i])
	}
	if data.Term == nil {
		fmt.Fprintf(b, "%s%s<unterminated>;\n", indent, indent)
	} else {
		fmt.Fprintf(b, "%s%s%s;\n", indent, indent, data.Term)
	}
	fmt.Fprintf(b, "%s}\n", indent)
}

func debugContents(c VarDebugInfoContents) string {
	switch c := c.(type) {
	case DebugPlace:
		return c.Place.String()
	case DebugConst:
		return c.Constant.String()
	default:
		return "?"
	}
}
