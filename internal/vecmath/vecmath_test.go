package vecmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineIdentical(t *testing.T) {
	a := []float32{1, 0, 0}
	got, err := Cosine(a, a)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestCosineOrthogonal(t *testing.T) {
	got, err := Cosine([]float32{1, 0, 0}, []float32{0, 1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 1e-9)
}

func TestCosineSpecScenarioS1(t *testing.T) {
	v1 := []float32{1, 0, 0}
	v3 := []float32{0.9, 0.1, 0}
	got, err := Cosine(v1, v3)
	require.NoError(t, err)
	assert.InDelta(t, 0.9939, got, 1e-3)
}

func TestCosineZeroVectorIsZero(t *testing.T) {
	got, err := Cosine([]float32{0, 0, 0}, []float32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestCosineDimensionMismatch(t *testing.T) {
	_, err := Cosine([]float32{1, 2}, []float32{1, 2, 3})
	require.Error(t, err)
	var dimErr *ErrDimensionMismatch
	assert.ErrorAs(t, err, &dimErr)
}

func TestL2(t *testing.T) {
	got, err := L2([]float32{0, 0}, []float32{3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, got, 1e-9)
}

func TestNormalizeUnitLength(t *testing.T) {
	out := Normalize([]float32{3, 4})
	assert.InDelta(t, 1.0, Norm(out), 1e-6)
}

func TestNormalizeZeroVectorUnchanged(t *testing.T) {
	out := Normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, out)
}

func TestValidateRejectsNaN(t *testing.T) {
	err := Validate([]float32{1, float32(math.NaN()), 3})
	require.Error(t, err)
	var nf *ErrNonFinite
	assert.ErrorAs(t, err, &nf)
	assert.Equal(t, 1, nf.Index)
}

func TestValidateRejectsInf(t *testing.T) {
	err := Validate([]float32{1, float32(math.Inf(1))})
	require.Error(t, err)
}
