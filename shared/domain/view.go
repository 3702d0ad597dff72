package domain

import (
	"sort"
	"time"
)

// ReplyView is the client-facing projection of Reply.
type ReplyView struct {
	Id        ReplyId   `json:"_id"`
	Text      Text      `json:"text"`
	CreatedOn time.Time `json:"created_on"`
}

// ThreadView is the client-facing projection of Thread. It has no moderation
// or password fields, so they cannot leak through serialization.
type ThreadView struct {
	Id         ThreadId    `json:"_id"`
	Board      BoardName   `json:"board"`
	Text       Text        `json:"text"`
	CreatedOn  time.Time   `json:"created_on"`
	BumpedOn   time.Time   `json:"bumped_on"`
	Replies    []ReplyView `json:"replies"`
	ReplyCount int         `json:"replycount"`
}

func (r Reply) View() ReplyView {
	return ReplyView{Id: r.Id, Text: r.Text, CreatedOn: r.CreatedOn}
}

// View projects the thread with every reply in insertion order.
func (t Thread) View() ThreadView {
	v := t.header()
	v.Replies = make([]ReplyView, len(t.Replies))
	for i, r := range t.Replies {
		v.Replies[i] = r.View()
	}
	return v
}

// Preview projects the thread for a board listing: at most n replies, newest first.
// Replies sharing a timestamp keep reverse insertion order.
func (t Thread) Preview(n int) ThreadView {
	v := t.header()

	newest := make([]Reply, len(t.Replies))
	for i, r := range t.Replies {
		newest[len(t.Replies)-1-i] = r
	}
	sort.SliceStable(newest, func(i, j int) bool {
		return newest[i].CreatedOn.After(newest[j].CreatedOn)
	})
	if n < 0 {
		n = 0
	}
	if len(newest) > n {
		newest = newest[:n]
	}

	v.Replies = make([]ReplyView, len(newest))
	for i, r := range newest {
		v.Replies[i] = r.View()
	}
	return v
}

func (t Thread) header() ThreadView {
	return ThreadView{
		Id:         t.Id,
		Board:      t.Board,
		Text:       t.Text,
		CreatedOn:  t.CreatedOn,
		BumpedOn:   t.BumpedOn,
		ReplyCount: max(t.ReplyCount, len(t.Replies)),
	}
}

// SortByBump orders threads most recently bumped first. Ties fall back to
// creation time and then id, so repeated reads return the same order.
func SortByBump(threads []Thread) {
	sort.SliceStable(threads, func(i, j int) bool {
		return BumpedBefore(threads[j], threads[i])
	})
}

// BumpedBefore reports whether a sorts after b in board order.
func BumpedBefore(a, b Thread) bool {
	if !a.BumpedOn.Equal(b.BumpedOn) {
		return a.BumpedOn.Before(b.BumpedOn)
	}
	if !a.CreatedOn.Equal(b.CreatedOn) {
		return a.CreatedOn.Before(b.CreatedOn)
	}
	return a.Id > b.Id
}
