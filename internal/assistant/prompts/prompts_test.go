package prompts

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arckit11/v-novaa/internal/assistant/model"
	"github.com/arckit11/v-novaa/internal/core"
	logx "github.com/arckit11/v-novaa/pkg/logger"
)

func TestRenderIntentIncludesContext(t *testing.T) {
	cc := model.CommandContext{Route: "/product/g4", Product: &model.Product{Name: "GripForce Workout Gloves"}}
	out, err := RenderIntent(context.Background(), `add the "large" one`, cc, []string{"Gym", "Yoga"})
	require.NoError(t, err)

	assert.Contains(t, out, "Current page: /product/g4")
	assert.Contains(t, out, "Product on screen: GripForce Workout Gloves")
	assert.Contains(t, out, "Gym, Yoga")
	assert.Contains(t, out, `Utterance: "add the 'large' one"`)
	assert.Contains(t, out, `{"intent": "<intent>"}`)
}

func TestRenderIntentWithoutProduct(t *testing.T) {
	out, err := RenderIntent(context.Background(), "go home", model.CommandContext{Route: "/cart"}, nil)
	require.NoError(t, err)
	assert.NotContains(t, out, "Product on screen")
}

func TestRenderFieldExtraction(t *testing.T) {
	out, err := RenderFieldExtraction(context.Background(), "john at gmail dot com", model.FieldEmail)
	require.NoError(t, err)
	assert.Contains(t, out, "Extract a single EMAIL value")
	assert.Contains(t, out, "Could not extract EMAIL")
	assert.Contains(t, out, "john at gmail dot com")

	_, err = RenderFieldExtraction(context.Background(), "x", model.FieldType("SHOE"))
	assert.Error(t, err)
}

func TestEveryFieldTypeHasInstruction(t *testing.T) {
	for _, ft := range []model.FieldType{
		model.FieldName, model.FieldEmail, model.FieldAddress, model.FieldPhone,
		model.FieldCardName, model.FieldCardNumber, model.FieldExpiryDate, model.FieldCVV,
	} {
		assert.NotEmpty(t, fieldInstructions[ft], ft)
	}
}

func TestRenderProductNavigationListsProducts(t *testing.T) {
	out, err := RenderProductNavigation(context.Background(), "show me the watch", []model.Product{
		{ID: "w1", Name: "Nova Watch Pro"},
		{ID: "a1", Name: "Nova X-1 Wireless Headphones"},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "- w1: Nova Watch Pro")
	assert.Contains(t, out, "- a1: Nova X-1 Wireless Headphones")
}

func TestRenderProductActionSizes(t *testing.T) {
	p := &model.Product{Name: "AeroStride Running Shoes", Sizes: []string{"9", "10"}}
	out, err := RenderProductAction(context.Background(), "size ten", p, []model.Product{*p})
	require.NoError(t, err)
	assert.Contains(t, out, "AeroStride Running Shoes (sizes: 9, 10)")
}

func TestTranscriptTemplates(t *testing.T) {
	for _, name := range []Name{Navigation, RemoveFilter, UserInfo, OrderCompletion} {
		out, err := Transcript(context.Background(), name, "hello there")
		require.NoError(t, err, name)
		assert.Contains(t, out, "hello there", name)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := Render(context.Background(), Name("missing"), nil)
	assert.Error(t, err)
}

func TestRenderNotifiesPromptObserver(t *testing.T) {
	var buf bytes.Buffer
	logx.Init(logx.LoggerOpts{Environment: core.Production, Level: "debug", Output: &buf})
	t.Cleanup(func() { logx.Init() })

	_, err := Transcript(context.Background(), Navigation, "take me to the cart")
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"message":"prompt rendered"`)
	assert.Contains(t, buf.String(), `"node":"navigation"`)
}
