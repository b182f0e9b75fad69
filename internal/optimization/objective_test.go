package optimization

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := WithContext(ctx, testObjectiveFunc)

	v, err := f([]float64{3})
	require.NoError(t, err)
	assert.Equal(t, 9.0, v)

	cancel()
	_, err = f([]float64{3})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = Evaluate(f, []float64{3})
	assert.ErrorIs(t, err, context.Canceled)
}
