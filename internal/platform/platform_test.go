package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Platform
		wantErr bool
	}{
		{name: "apple books", input: "apple_books", want: AppleBooks},
		{name: "wechat read", input: "wechat_read", want: WechatRead},
		{name: "chrome bookmarks", input: "chrome_bookmarks", want: ChromeBookmarks},
		{name: "unknown", input: "goodreads", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "case sensitive", input: "Apple_Books", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllPlatformsHaveTraits(t *testing.T) {
	t.Parallel()

	assert.Len(t, All(), 10)
	for _, p := range All() {
		traits := p.Traits()
		assert.True(t, p.Valid())
		assert.Positive(t, traits.BatchSize, "platform %s", p)
		assert.Positive(t, traits.DefaultIntervalHours, "platform %s", p)
		assert.Contains(t, []Kind{KindEbook, KindVideo, KindBookmark}, traits.Kind)
	}
}

func TestTraitsSelectedValues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 20, WechatRead.Traits().BatchSize, "rate-limited platform syncs small batches")
	assert.Equal(t, 100, SafariBookmarks.Traits().BatchSize)
	assert.Equal(t, 100, ChromeBookmarks.Traits().BatchSize)
	assert.Equal(t, 50, AppleBooks.Traits().BatchSize)

	assert.Equal(t, StrategyFingerprint, AppleBooks.Traits().Strategy)
	assert.Equal(t, StrategyFingerprint, Kindle.Traits().Strategy)
	assert.Equal(t, StrategyTimestamp, WechatRead.Traits().Strategy)
	assert.Equal(t, StrategyTimestamp, Bilibili.Traits().Strategy)

	assert.Equal(t, KindVideo, Bilibili.Traits().Kind)
	assert.Equal(t, KindEbook, Douban.Traits().Kind)
	assert.Equal(t, KindBookmark, GithubStars.Traits().Kind)

	// Only the zero-configuration local platform starts enabled.
	for _, p := range All() {
		if p == AppleBooks {
			assert.True(t, p.Traits().DefaultEnabled)
		} else {
			assert.False(t, p.Traits().DefaultEnabled, "platform %s", p)
		}
	}
}

func TestTraitsPanicsOnUnknown(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		Platform("goodreads").Traits()
	})
}
