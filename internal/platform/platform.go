// Package platform defines the closed set of external services the agent
// synchronizes from, together with their compile-time sync traits.
package platform

import "fmt"

// Platform identifies one external data source.
type Platform string

const (
	// AppleBooks is the local Apple Books library (macOS SQLite databases).
	AppleBooks Platform = "apple_books"

	// WechatRead is the WeChat Reading cloud service.
	WechatRead Platform = "wechat_read"

	// Kindle is the local Kindle clippings file.
	Kindle Platform = "kindle"

	// Douban is the Douban book/movie collection service.
	Douban Platform = "douban"

	// Zhihu is the Zhihu favorites service.
	Zhihu Platform = "zhihu"

	// Bilibili is the Bilibili watched/favorited video service.
	Bilibili Platform = "bilibili"

	// GithubStars is the set of starred GitHub repositories.
	GithubStars Platform = "github_stars"

	// Twitter is the Twitter/X bookmarks service.
	Twitter Platform = "twitter"

	// SafariBookmarks is the local Safari bookmarks property list.
	SafariBookmarks Platform = "safari_bookmarks"

	// ChromeBookmarks is the local Chrome bookmarks file.
	ChromeBookmarks Platform = "chrome_bookmarks"
)

// Kind is the backend payload family a platform syncs into. It selects the
// URL segment of the three-step protocol (/api/{kind}/sync/...).
type Kind string

const (
	// KindEbook covers reading material: books, progress, highlights.
	KindEbook Kind = "ebook"

	// KindVideo covers watched/favorited videos.
	KindVideo Kind = "video"

	// KindBookmark covers saved links and favorites.
	KindBookmark Kind = "bookmark"
)

// Strategy selects how changed items are detected for a platform.
type Strategy string

const (
	// StrategyFingerprint diffs a persisted per-item fingerprint manifest.
	// Used for local stores that expose no server-confirmed watermark.
	StrategyFingerprint Strategy = "fingerprint"

	// StrategyTimestamp filters items against the backend's last-synced
	// watermark. Used when items carry their own timestamps and the backend
	// is the source of truth for what has been seen.
	StrategyTimestamp Strategy = "timestamp"
)

// Traits are the fixed sync characteristics of a platform.
type Traits struct {
	Kind      Kind
	Strategy  Strategy
	BatchSize int

	// DefaultIntervalHours is the scheduling interval applied when settings
	// carry no explicit value for the platform.
	DefaultIntervalHours int

	// DefaultEnabled marks platforms synced out of the box.
	DefaultEnabled bool
}

var traits = map[Platform]Traits{
	AppleBooks:      {Kind: KindEbook, Strategy: StrategyFingerprint, BatchSize: 50, DefaultIntervalHours: 6, DefaultEnabled: true},
	WechatRead:      {Kind: KindEbook, Strategy: StrategyTimestamp, BatchSize: 20, DefaultIntervalHours: 12},
	Kindle:          {Kind: KindEbook, Strategy: StrategyFingerprint, BatchSize: 50, DefaultIntervalHours: 12},
	Douban:          {Kind: KindEbook, Strategy: StrategyTimestamp, BatchSize: 50, DefaultIntervalHours: 12},
	Zhihu:           {Kind: KindBookmark, Strategy: StrategyTimestamp, BatchSize: 50, DefaultIntervalHours: 12},
	Bilibili:        {Kind: KindVideo, Strategy: StrategyTimestamp, BatchSize: 50, DefaultIntervalHours: 6},
	GithubStars:     {Kind: KindBookmark, Strategy: StrategyTimestamp, BatchSize: 50, DefaultIntervalHours: 12},
	Twitter:         {Kind: KindBookmark, Strategy: StrategyTimestamp, BatchSize: 50, DefaultIntervalHours: 12},
	SafariBookmarks: {Kind: KindBookmark, Strategy: StrategyFingerprint, BatchSize: 100, DefaultIntervalHours: 12},
	ChromeBookmarks: {Kind: KindBookmark, Strategy: StrategyFingerprint, BatchSize: 100, DefaultIntervalHours: 12},
}

// ordered keeps a stable iteration order for scheduling and display.
var ordered = []Platform{
	AppleBooks,
	WechatRead,
	Kindle,
	Douban,
	Zhihu,
	Bilibili,
	GithubStars,
	Twitter,
	SafariBookmarks,
	ChromeBookmarks,
}

// All returns every platform in stable order.
func All() []Platform {
	out := make([]Platform, len(ordered))
	copy(out, ordered)
	return out
}

// Parse validates a platform identifier.
func Parse(s string) (Platform, error) {
	p := Platform(s)
	if _, ok := traits[p]; !ok {
		return "", fmt.Errorf("unknown platform %q", s)
	}
	return p, nil
}

// Valid reports whether p is a member of the closed set.
func (p Platform) Valid() bool {
	_, ok := traits[p]
	return ok
}

// Traits returns the fixed sync characteristics of p. It panics on a platform
// outside the closed set, which can only happen through a programming error.
func (p Platform) Traits() Traits {
	t, ok := traits[p]
	if !ok {
		panic(fmt.Sprintf("platform: no traits for %q", string(p)))
	}
	return t
}

func (p Platform) String() string {
	return string(p)
}
