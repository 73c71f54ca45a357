package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/popgen-sim/infsites/sim/dist"
)

func TestSelectionCoefficientFactory_RequiresExactlyOneSource(t *testing.T) {
	spec := &dist.DistSpec{Type: "constant", Params: map[string]float64{"s": 0.1}}
	src := NullaryFunc(func() (CoefValue, error) { return Scalar(0.1), nil })

	_, err := NewSelectionCoefficientFactory(nil, nil, nil)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = NewSelectionCoefficientFactory(spec, src, nil)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = NewSelectionCoefficientFactory(&dist.DistSpec{Type: "constant"}, nil, nil)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestSelectionCoefficientFactory_ConstantDistribution(t *testing.T) {
	// GIVEN a constant distribution without an explicit dominance
	spec := &dist.DistSpec{Type: "constant", Params: map[string]float64{"s": 0.01}}
	f, err := NewSelectionCoefficientFactory(spec, nil, NewStream(1, 1))
	require.NoError(t, err)

	// WHEN two loci are resolved, one of them twice
	c1, err := f.CoefficientOf(17)
	require.NoError(t, err)
	_, err = f.CoefficientOf(4)
	require.NoError(t, err)
	again, err := f.CoefficientOf(17)
	require.NoError(t, err)

	// THEN h defaults to 0.5 and repeated lookups return the cached pair
	assert.Equal(t, SelCoef{S: 0.01, H: 0.5}, c1)
	assert.Equal(t, c1, again)
	assert.Equal(t, []Allele{17, 4}, f.NewLoci())
	assert.Equal(t, 2, f.Cached())
	assert.True(t, f.Additive())

	// AND resetting the new-locus log keeps the cache
	f.ResetNewLoci()
	assert.Empty(t, f.NewLoci())
	_, err = f.CoefficientOf(4)
	require.NoError(t, err)
	assert.Empty(t, f.NewLoci())
	assert.Equal(t, 2, f.Cached())
}

func TestSelectionCoefficientFactory_GammaIsReproducible(t *testing.T) {
	spec := &dist.DistSpec{Type: "gamma", Params: map[string]float64{"shape": 0.5, "scale": 0.02}}
	f1, err := NewSelectionCoefficientFactory(spec, nil, NewStream(5, 9))
	require.NoError(t, err)
	f2, err := NewSelectionCoefficientFactory(spec, nil, NewStream(5, 9))
	require.NoError(t, err)

	for locus := Allele(1); locus <= 20; locus++ {
		c1, err := f1.CoefficientOf(locus)
		require.NoError(t, err)
		c2, err := f2.CoefficientOf(locus)
		require.NoError(t, err)
		assert.Equal(t, c1, c2)
		assert.Positive(t, c1.S)
	}
}

func TestSelectionCoefficientFactory_CallbackIsMemoized(t *testing.T) {
	// GIVEN a callback keyed by locus that counts its invocations
	calls := map[Allele]int{}
	f, err := NewSelectionCoefficientFactory(nil, LocusFunc(func(locus Allele) (CoefValue, error) {
		calls[locus]++
		return Sequence(float64(locus)/100, 0.25), nil
	}), nil)
	require.NoError(t, err)

	// WHEN a locus is looked up repeatedly
	for i := 0; i < 3; i++ {
		c, err := f.CoefficientOf(8)
		require.NoError(t, err)
		assert.Equal(t, SelCoef{S: 0.08, H: 0.25}, c)
	}

	// THEN the callback ran once and the additive flag is cleared
	assert.Equal(t, 1, calls[8])
	assert.False(t, f.Additive())
}

func TestSelectionCoefficientFactory_AdditiveFlagIsOneWay(t *testing.T) {
	h := map[Allele]float64{1: 0.5, 2: 0.1, 3: 0.5}
	f, err := NewSelectionCoefficientFactory(nil, LocusFunc(func(locus Allele) (CoefValue, error) {
		return Sequence(0.1, h[locus]), nil
	}), nil)
	require.NoError(t, err)

	_, _ = f.CoefficientOf(1)
	assert.True(t, f.Additive())
	_, _ = f.CoefficientOf(2)
	assert.False(t, f.Additive())
	_, _ = f.CoefficientOf(3)
	assert.False(t, f.Additive())
}

func TestSelectionCoefficientFactory_CallbackResults(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		value   CoefValue
		err     error
		want    SelCoef
		wantErr error
	}{
		{name: "scalar", value: Scalar(0.2), want: SelCoef{S: 0.2, H: 0.5}},
		{name: "sequence of one", value: Sequence(0.2), want: SelCoef{S: 0.2, H: 0.5}},
		{name: "sequence of two", value: Sequence(0.2, 0.9), want: SelCoef{S: 0.2, H: 0.9}},
		{name: "empty sequence", value: Sequence(), wantErr: ErrInvalidCoefficient},
		{name: "non-numeric s", value: Scalar(math.NaN()), wantErr: ErrInvalidCoefficient},
		{name: "non-numeric h", value: Sequence(0.1, math.NaN()), wantErr: ErrInvalidCoefficient},
		{name: "callback error", err: boom, wantErr: boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewSelectionCoefficientFactory(nil, NullaryFunc(func() (CoefValue, error) {
				return tt.value, tt.err
			}), nil)
			require.NoError(t, err)

			got, err := f.CoefficientOf(1)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, f.Cached())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
