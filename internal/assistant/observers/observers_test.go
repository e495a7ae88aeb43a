package observers

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func TestLastUserContent(t *testing.T) {
	msgs := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage(" first "),
		nil,
		schema.AssistantMessage("reply", nil),
		schema.UserMessage(" second "),
	}
	assert.Equal(t, "second", lastUserContent(msgs))
	assert.Equal(t, "", lastUserContent([]*schema.Message{schema.SystemMessage("sys")}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short"))
	long := strings.Repeat("a", maxLoggedContent+10)
	got := truncate(long)
	assert.Len(t, got, maxLoggedContent+3)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestNewOracleCallbacks(t *testing.T) {
	assert.NotNil(t, NewOracleCallbacks())
}
func TestNewPromptCallbacks(t *testing.T) {
	assert.NotNil(t, NewPromptCallbacks())
}
