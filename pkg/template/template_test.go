package template

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recordflow/recordflow/pkg/models"
)

func testContext() *models.ExecutionContext {
	return models.NewExecutionContext(map[string]any{
		"producto": "Servidor Cloud",
		"precio":   100.0,
		"cantidad": 3,
		"productData": map[string]any{
			"stock":    7.0,
			"categoria": "hosting",
		},
	})
}

func TestRender(t *testing.T) {
	ctx := testContext()

	assert.Equal(t, "Pedido de Servidor Cloud", Render("Pedido de {{producto}}", ctx))
	assert.Equal(t, "Stock: 7", Render("Stock: {{productData.stock}}", ctx))
	assert.Equal(t, "Precio 100", Render("Precio {{ precio }}", ctx))
}

func TestRender_UnresolvedIsEmpty(t *testing.T) {
	ctx := testContext()

	assert.Equal(t, "Hola ", Render("Hola {{noExiste}}", ctx))
	assert.Equal(t, "", Render("{{productData.noExiste}}", ctx))
}

func TestRenderValue_PreservesType(t *testing.T) {
	ctx := testContext()

	value := RenderValue("{{precio}}", ctx)
	assert.InEpsilon(t, 100.0, value, 1e-9)

	nested := RenderValue("{{productData}}", ctx)
	require.IsType(t, map[string]any{}, nested)

	// Mixed text renders as a string.
	assert.Equal(t, "100 EUR", RenderValue("{{precio}} EUR", ctx))

	// Non-strings pass through untouched.
	assert.Equal(t, 42, RenderValue(42, ctx))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "100", FormatValue(100.0))
	assert.Equal(t, "3.5", FormatValue(3.5))
	assert.Equal(t, "true", FormatValue(true))
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "hola", FormatValue("hola"))
}

func TestResolveDateMacro(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	cases := []struct {
		input    string
		expected string
	}{
		{"today", "2026-03-10"},
		{"tomorrow", "2026-03-11"},
		{"nextWeek", "2026-03-17"},
		{"in3Days", "2026-03-13"},
		{"today + 10", "2026-03-20"},
		{"today+2", "2026-03-12"},
	}

	for _, tc := range cases {
		resolved, ok := ResolveDateMacro(tc.input, now)
		require.True(t, ok, tc.input)
		assert.Equal(t, tc.expected, resolved, tc.input)
	}

	_, ok := ResolveDateMacro("Servidor Cloud", now)
	assert.False(t, ok)

	_, ok = ResolveDateMacro("today - 2", now)
	assert.False(t, ok)
}
