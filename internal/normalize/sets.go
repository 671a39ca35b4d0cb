package normalize

import twitter "github.com/anatolykoptev/go-twitter-proxy"

// BookmarkSet is the viewer's bookmarks, used for is_bookmarked.
// A nil *BookmarkSet means the bookmarks were not fetched.
type BookmarkSet struct {
	ids map[string]struct{}
}

// NewBookmarkSet indexes bookmarks by tweet id.
func NewBookmarkSet(bookmarks []*twitter.Tweet) *BookmarkSet {
	s := &BookmarkSet{ids: make(map[string]struct{}, len(bookmarks))}
	for _, t := range bookmarks {
		if t != nil {
			s.ids[t.ID] = struct{}{}
		}
	}
	return s
}

// Contains reports whether id is bookmarked. A nil set contains nothing.
func (s *BookmarkSet) Contains(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.ids[id]
	return ok
}

func (s *BookmarkSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// FollowingSet holds the handles the viewer follows. It only covers the page
// that was fetched.
type FollowingSet struct {
	handles map[string]struct{}
}

// NewFollowingSet indexes the followed users by handle.
func NewFollowingSet(users []*twitter.TwitterUser) *FollowingSet {
	s := &FollowingSet{handles: make(map[string]struct{}, len(users))}
	for _, u := range users {
		if u != nil {
			s.handles[u.Handle] = struct{}{}
		}
	}
	return s
}

// Contains reports whether handle is followed.
func (s *FollowingSet) Contains(handle string) bool {
	if s == nil {
		return false
	}
	_, ok := s.handles[handle]
	return ok
}
