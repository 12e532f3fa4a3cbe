package device

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"flock/pkg/requestcontext"
)

func TestParse(t *testing.T) {
	t.Run("empty user agent", func(t *testing.T) {
		assert.True(t, Parse("").IsZero())
	})

	t.Run("mobile safari", func(t *testing.T) {
		info := Parse("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
		assert.True(t, info.Mobile)
		assert.Equal(t, "Safari", info.Browser)
		assert.False(t, info.Bot)
	})

	t.Run("from context", func(t *testing.T) {
		ctx := requestcontext.WithClientMetadata(context.Background(), "10.0.0.1", "Googlebot/2.1 (+http://www.google.com/bot.html)")
		info := FromContext(ctx)
		assert.True(t, info.Bot)
	})
}
