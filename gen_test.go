package til

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutputWriter_WriteLineIndentsAtCurrentLevel(t *testing.T) {
	w := newOutputWriter("  ")
	w.writeLine("int main() {")
	w.indent()
	w.writeLine("return 0;")
	w.dedent()
	w.writeLine("}")

	assert.Equal(t, "int main() {\n  return 0;\n}\n", w.buffer.String())
}

func TestOutputWriter_WritelAppendsNewlineWithoutIndent(t *testing.T) {
	w := newOutputWriter("    ")
	w.indent()
	w.writel("no indent here")

	assert.Equal(t, "no indent here\n", w.buffer.String())
}

func TestOutputWriter_WriteiIndentsWithoutNewline(t *testing.T) {
	w := newOutputWriter("\t")
	w.indent()
	w.writei("a")
	w.write("b")

	assert.Equal(t, "\tab", w.buffer.String())
}

func TestOutputWriter_NestedIndentLevelsAccumulate(t *testing.T) {
	w := newOutputWriter("  ")
	w.indent()
	w.indent()
	w.writeLine("deep")
	w.dedent()
	w.writeLine("shallow")

	assert.Equal(t, "    deep\n  shallow\n", w.buffer.String())
}
