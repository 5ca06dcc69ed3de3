package notification

import (
	"sync"
	"time"
)

// unreadCountCache は未読件数のユーザー別TTLキャッシュ。
// 件数表示はバッジUI向けのヒントにすぎないため、正確性よりDB負荷軽減を優先する。
// 通知の作成・既読化・削除のたびに該当ユーザーのエントリを無効化する。
type unreadCountCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]unreadCountEntry

	// テストで時刻を固定するためのフック
	now func() time.Time
}

type unreadCountEntry struct {
	value     int
	fetchedAt time.Time
}

// newUnreadCountCache は指定TTLのキャッシュを生成する。
func newUnreadCountCache(ttl time.Duration) *unreadCountCache {
	return &unreadCountCache{
		ttl:     ttl,
		entries: make(map[string]unreadCountEntry),
		now:     time.Now,
	}
}

// get はキャッシュされた未読件数を返す。エントリが無いか期限切れの場合はfalseを返す。
func (c *unreadCountCache) get(userID string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[userID]
	if !ok {
		return 0, false
	}
	if c.now().Sub(entry.fetchedAt) > c.ttl {
		delete(c.entries, userID)
		return 0, false
	}
	return entry.value, true
}

// set は未読件数をキャッシュする。
func (c *unreadCountCache) set(userID string, value int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = unreadCountEntry{value: value, fetchedAt: c.now()}
}

// invalidate は指定ユーザーのエントリを無効化する。
func (c *unreadCountCache) invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}
