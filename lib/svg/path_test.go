package svg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathContext(t *testing.T) {
	t.Parallel()

	pc := NewPathContext()
	pc.StartAt(0, 0)
	pc.L(10, 0.123456)
	pc.S(20, 0, 20, 10)
	pc.C(20, 15, 25, 20, 30, 20)
	pc.Z()

	assert.Equal(t, "M 0 0 L 10 0.1235 S 20 0 20 10 C 20 15 25 20 30 20 Z", pc.PathData())
	assert.Equal(t, 0., pc.Current.X)
}

func TestChopPrecisionNegativeZero(t *testing.T) {
	pc := NewPathContext()
	pc.StartAt(-0.00001, 5)
	assert.Equal(t, "M 0 5", pc.PathData())
}

func TestEscapeText(t *testing.T) {
	assert.Equal(t, "a&lt;b&#34;", EscapeText(`a<b"`))
}

func TestParsePathData(t *testing.T) {
	t.Parallel()

	pc := NewPathContext()
	pc.StartAt(0, 0)
	pc.L(10, 0)
	pc.S(20, 0, 20, 10)
	pc.C(20, 15, 25, 20, 30, 20)
	pc.Z()

	cmds, err := ParsePathData(pc.PathData())
	assert.NoError(t, err)
	assert.Equal(t, []PathCommand{
		{Op: 'M', Args: []float64{0, 0}},
		{Op: 'L', Args: []float64{10, 0}},
		{Op: 'S', Args: []float64{20, 0, 20, 10}},
		{Op: 'C', Args: []float64{20, 15, 25, 20, 30, 20}},
		{Op: 'Z'},
	}, cmds)

	for _, d := range []string{"L 1 1", "M 1", "M 0 0 l 1 1", "M 0 0 A 1 1 0 0 0 1 1", "M x 0", "M0 0"} {
		_, err := ParsePathData(d)
		assert.Error(t, err, d)
	}
}
