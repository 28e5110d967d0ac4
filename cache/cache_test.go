package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/blockcrawl/models"
)

func request() *models.ExtractRequest {
	return &models.ExtractRequest{
		URL:           "https://example.com/feed",
		RequestMode:   "direct",
		ParseMode:     "xml",
		BlockSelector: "//item",
		Fields:        []models.Field{{Name: "t", Selector: "title/text()"}},
	}
}

func TestKey(t *testing.T) {
	base := Key(request())

	same := request()
	same.MaxAge = 5000
	same.WebhookURL = "https://hooks.example.com"
	same.ParseMode = "XML"
	assert.Equal(t, base, Key(same), "delivery options and case must not change the key")

	other := request()
	other.Fields[0].Selector = "link/text()"
	assert.NotEqual(t, base, Key(other))

	withProc := request()
	withProc.Processors = []models.ProcessorSpec{{Type: "first", ID: "t", Field: "t"}}
	assert.NotEqual(t, base, Key(withProc))
}

func TestGetSet(t *testing.T) {
	c := New(10)
	defer c.Close()

	key := Key(request())
	_, ok := c.Get(key, 1000)
	assert.False(t, ok)

	c.Set(key, &models.ExtractResponse{Success: true, BlockCount: 2, JobID: "job"})

	_, ok = c.Get(key, 0)
	assert.False(t, ok, "max_age 0 disables lookup")

	got, ok := c.Get(key, 60_000)
	require.True(t, ok)
	assert.Equal(t, 2, got.BlockCount)
	assert.Empty(t, got.JobID)

	got.CacheStatus = "hit"
	again, _ := c.Get(key, 60_000)
	assert.Empty(t, again.CacheStatus, "callers must not mutate the stored entry")
}

func TestCapacityAndEviction(t *testing.T) {
	c := New(2)
	defer c.Close()

	c.Set("a", &models.ExtractResponse{})
	c.Set("b", &models.ExtractResponse{})
	c.Set("c", &models.ExtractResponse{})
	assert.Equal(t, 2, c.Len())

	c.evictBefore(time.Now().Add(time.Minute))
	assert.Equal(t, 0, c.Len())
}
