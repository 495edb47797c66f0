package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolver(values map[string]float64) func(string) (float64, bool) {
	return func(path string) (float64, bool) {
		v, ok := values[path]

		return v, ok
	}
}

func TestIsArithmetic(t *testing.T) {
	assert.True(t, IsArithmetic("{{precio * cantidad}}"))
	assert.True(t, IsArithmetic("{{ a + b }}"))
	assert.True(t, IsArithmetic("{{total / 2}}"))

	assert.False(t, IsArithmetic("{{producto}}"))
	assert.False(t, IsArithmetic("{{productData.stock}}"))
	assert.False(t, IsArithmetic("precio * cantidad"))
	assert.False(t, IsArithmetic("{{precio}} * {{cantidad}}"))
}

func TestEvalArithmetic(t *testing.T) {
	values := resolver(map[string]float64{"precio": 100, "cantidad": 3, "descuento": 10})

	result, err := EvalArithmetic("{{precio * cantidad}}", values)
	require.NoError(t, err)
	assert.InEpsilon(t, 300.0, result, 1e-9)

	result, err = EvalArithmetic("{{precio * cantidad - descuento}}", values)
	require.NoError(t, err)
	assert.InEpsilon(t, 290.0, result, 1e-9)

	// Multiplication binds tighter than subtraction.
	result, err = EvalArithmetic("{{precio - descuento * 2}}", values)
	require.NoError(t, err)
	assert.InEpsilon(t, 80.0, result, 1e-9)
}

func TestEvalArithmetic_DottedPaths(t *testing.T) {
	values := resolver(map[string]float64{"productData.precio": 50, "cantidad": 2})

	result, err := EvalArithmetic("{{productData.precio * cantidad}}", values)
	require.NoError(t, err)
	assert.InEpsilon(t, 100.0, result, 1e-9)
}

func TestEvalArithmetic_UnresolvableIdentifier(t *testing.T) {
	_, err := EvalArithmetic("{{precio * cantidad}}", resolver(map[string]float64{"precio": 100}))
	require.ErrorIs(t, err, ErrInvalidExpression)
}

func TestEvalArithmetic_DivisionByZero(t *testing.T) {
	_, err := EvalArithmetic("{{precio / cero}}", resolver(map[string]float64{"precio": 100, "cero": 0}))
	require.ErrorIs(t, err, ErrInvalidExpression)
}

func TestEvalExpression_RejectsUnsafeInput(t *testing.T) {
	rejected := []string{
		"(1 + 2) * 3",
		"2 ** 8",
		"1e9 * 1e9",
		"precio",
		"1; 2",
	}

	for _, input := range rejected {
		_, err := evalExpression(input)
		assert.ErrorIs(t, err, ErrInvalidExpression, input)
	}
}
