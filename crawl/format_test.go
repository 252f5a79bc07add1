package crawl_test

import (
	"errors"
	"testing"

	"github.com/fwojciec/b2bsync"
	"github.com/fwojciec/b2bsync/crawl"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatEvent(t *testing.T) {
	t.Parallel()

	w := b2bsync.PageWindow{Start: 68, End: 134}
	tests := []struct {
		event crawl.ProgressEvent
		want  string
	}{
		{crawl.ProgressEvent{Type: crawl.ProgressWorkerStarted, Worker: 2, Window: w}, "[worker 2] pages 68-134"},
		{crawl.ProgressEvent{Type: crawl.ProgressLoginFailed, Worker: 2, Error: errors.New("bad password")}, "[worker 2] login failed: bad password"},
		{crawl.ProgressEvent{Type: crawl.ProgressPageCompleted, Worker: 1, Page: 7, Products: 20}, "[worker 1] page 7: 20 products"},
		{crawl.ProgressEvent{Type: crawl.ProgressPageSkipped, Worker: 1, Page: 8, Error: errors.New("timeout")}, "[worker 1] page 8 skipped: timeout"},
		{crawl.ProgressEvent{Type: crawl.ProgressStoppedEarly, Worker: 3, Page: 190}, "[worker 3] no products since page 190, stopping"},
		{crawl.ProgressEvent{Type: crawl.ProgressWorkerFinished, Worker: 3, Products: 400}, "[worker 3] done, 400 products"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, crawl.FormatEvent(tt.event))
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	t.Run("returns string unchanged when shorter than max", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "Vana", crawl.Truncate("Vana", 10))
	})

	t.Run("truncates with ellipsis", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "Küresel...", crawl.Truncate("Küresel Vana 1/2 inç", 10))
	})

	t.Run("counts runes not bytes", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "Çıkış", crawl.Truncate("Çıkış", 5))
	})

	t.Run("returns prefix when max is very small", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "Çı", crawl.Truncate("Çıkış", 2))
	})

	t.Run("returns empty string when max is not positive", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, crawl.Truncate("Vana", 0))
		assert.Empty(t, crawl.Truncate("Vana", -1))
	})
}

func TestFormatPrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"0", "0,00"},
		{"5.5", "5,50"},
		{"168", "168,00"},
		{"1234.567", "1.234,57"},
		{"1234567.8", "1.234.567,80"},
		{"-1500", "-1.500,00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, crawl.FormatPrice(decimal.RequireFromString(tt.in)), tt.in)
	}
}
