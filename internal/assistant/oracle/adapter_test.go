package oracle

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/arckit11/v-novaa/internal/assistant/model"
	"github.com/arckit11/v-novaa/internal/core"
	errx "github.com/arckit11/v-novaa/internal/core/error"
	logx "github.com/arckit11/v-novaa/pkg/logger"
)

type reply struct {
	text string
	err  error
}

type fakeChatModel struct {
	mu      sync.Mutex
	replies []reply
	inputs  [][]*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	if len(f.replies) == 0 {
		return schema.AssistantMessage("", nil), nil
	}
	r := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	if r.err != nil {
		return nil, r.err
	}
	msg := schema.AssistantMessage(r.text, nil)
	msg.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 100, CompletionTokens: 10, TotalTokens: 110}}
	return msg, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (f *fakeChatModel) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inputs)
}

func testConfig() model.OracleModelConfig {
	return model.OracleModelConfig{
		Model:          "gemini-2.5-flash-lite",
		MaxAttempts:    3,
		RetryBaseDelay: time.Millisecond,
	}
}

func newAdapter(t *testing.T, replies ...reply) (*Adapter, *fakeChatModel) {
	t.Helper()
	cm := &fakeChatModel{replies: replies}
	a, err := New(context.Background(), cm, testConfig(), WithCategories([]string{"Gym", "Yoga"}))
	require.NoError(t, err)
	return a, cm
}

func TestCompleteSendsSystemAndUserMessages(t *testing.T) {
	a, cm := newAdapter(t, reply{text: "  hello  "})

	out, err := a.Complete(context.Background(), "say hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	require.Equal(t, 1, cm.calls())
	msgs := cm.inputs[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, "say hello", msgs[1].Content)
}

func TestCompleteRetriesRateLimit(t *testing.T) {
	a, cm := newAdapter(t,
		reply{err: errors.New("googleapi: Error 429: Resource has been exhausted")},
		reply{err: errors.New("RESOURCE_EXHAUSTED")},
		reply{text: "ok"},
	)

	out, err := a.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, cm.calls())
}

func TestCompleteGivesUpAfterMaxAttempts(t *testing.T) {
	a, cm := newAdapter(t, reply{err: errors.New("429 too many requests")})

	_, err := a.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, errx.IsRateLimited(err))
	assert.Equal(t, 3, cm.calls())
}

func TestCompleteFailsFastOnOtherErrors(t *testing.T) {
	a, cm := newAdapter(t, reply{err: errors.New("invalid argument")}, reply{text: "never"})

	_, err := a.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.False(t, errx.IsRateLimited(err))
	assert.Equal(t, 1, cm.calls())
}

func TestCompleteRejectsEmptyPrompt(t *testing.T) {
	a, cm := newAdapter(t, reply{text: "x"})
	_, err := a.Complete(context.Background(), "   ")
	assert.Error(t, err)
	assert.Zero(t, cm.calls())
}

func TestNilAdapterIsUnavailable(t *testing.T) {
	var a *Adapter
	_, err := a.Complete(context.Background(), "p")
	assert.ErrorIs(t, err, errx.ErrOracleUnavailable)

	_, err = New(context.Background(), nil, testConfig())
	assert.ErrorIs(t, err, errx.ErrOracleUnavailable)
}

func TestCompleteJSONToleratesFences(t *testing.T) {
	a, _ := newAdapter(t, reply{text: "Sure!\n```json\n{\"intent\": \"cart\"}\n```"})

	var res struct {
		Intent string `json:"intent"`
	}
	ok, err := a.CompleteJSON(context.Background(), "p", &res)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "cart", res.Intent)
}

func TestCompleteJSONNoStructuredResult(t *testing.T) {
	a, _ := newAdapter(t, reply{text: "I am not sure"})

	var res map[string]any
	ok, err := a.CompleteJSON(context.Background(), "p", &res)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExtractField(t *testing.T) {
	a, cm := newAdapter(t, reply{text: `{"extracted": "John Smith", "error": null}`})

	res, err := a.ExtractField(context.Background(), "my name is john smith", model.FieldName)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "John Smith", res.Value)
	assert.Empty(t, res.Error)
	assert.Contains(t, cm.inputs[0][1].Content, "Extract a single NAME value")
}

func TestExtractFieldIsObserved(t *testing.T) {
	var buf bytes.Buffer
	logx.Init(logx.LoggerOpts{Environment: core.Production, Level: "debug", Output: &buf})
	t.Cleanup(func() { logx.Init() })

	a, _ := newAdapter(t, reply{text: `{"extracted": "4242", "error": null}`})
	_, err := a.ExtractField(context.Background(), "four two four two", model.FieldCVV)
	require.NoError(t, err)

	logged := buf.String()
	assert.Contains(t, logged, `"message":"prompt rendered"`)
	assert.Contains(t, logged, `"node":"field_extraction"`)
	assert.Contains(t, logged, `"message":"oracle model start"`)
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte(`"message":"oracle model start"`)))
}

func TestExtractFieldNumericValue(t *testing.T) {
	a, _ := newAdapter(t, reply{text: `{"extracted": 4242424242424242, "error": null}`})

	res, err := a.ExtractField(context.Background(), "four two four two", model.FieldCardNumber)
	require.NoError(t, err)
	assert.Equal(t, "4242424242424242", res.Value)
}

func TestExtractFieldNullValue(t *testing.T) {
	a, _ := newAdapter(t, reply{text: `{"extracted": null, "error": "Could not extract EMAIL"}`})

	res, err := a.ExtractField(context.Background(), "umm", model.FieldEmail)
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, "Could not extract EMAIL", res.Error)
}

func TestExtractFieldRateLimited(t *testing.T) {
	a, _ := newAdapter(t, reply{err: genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}})

	res, err := a.ExtractField(context.Background(), "john", model.FieldName)
	require.Error(t, err)
	assert.True(t, res.RateLimited)
	assert.False(t, res.OK())
}

func TestClassifyIntent(t *testing.T) {
	a, cm := newAdapter(t, reply{text: `{"intent": "apply_filter"}`})

	in, err := a.ClassifyIntent(context.Background(), "show items under fifty dollars", model.CommandContext{Route: "/products"})
	require.NoError(t, err)
	assert.Equal(t, model.IntentApplyFilter, in)
	assert.Contains(t, cm.inputs[0][1].Content, "Gym, Yoga")
}

func TestClassifyIntentFallsBackToGeneral(t *testing.T) {
	a, _ := newAdapter(t, reply{text: `{"intent": "juggle"}`})
	in, err := a.ClassifyIntent(context.Background(), "juggle", model.CommandContext{})
	require.NoError(t, err)
	assert.Equal(t, model.IntentGeneral, in)

	b, _ := newAdapter(t, reply{text: "no json"})
	in, err = b.ClassifyIntent(context.Background(), "juggle", model.CommandContext{})
	require.NoError(t, err)
	assert.Equal(t, model.IntentGeneral, in)
}
