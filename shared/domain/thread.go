package domain

import (
	"sort"
	"time"
)

// to iterate thru layers: handler -> service -> storage
type ThreadCreationData struct {
	Id             ThreadId
	Board          BoardName
	Text           Text
	DeletePassword Password
	CreatedOn      time.Time
}

// Thread is the stored record. Only the creation response serializes it as is,
// reads go through ThreadView.
type Thread struct {
	Id             ThreadId  `json:"_id"`
	Board          BoardName `json:"board"`
	Text           Text      `json:"text"`
	CreatedOn      time.Time `json:"created_on"`
	BumpedOn       time.Time `json:"bumped_on"`
	Reported       bool      `json:"reported"`
	DeletePassword Password  `json:"delete_password"`
	Replies        []Reply   `json:"replies"`

	// Total number of replies. Equals len(Replies) unless storage returned a truncated list.
	ReplyCount int `json:"-"`
}

func NewThread(data ThreadCreationData) Thread {
	return Thread{
		Id:             data.Id,
		Board:          data.Board,
		Text:           data.Text,
		CreatedOn:      data.CreatedOn,
		BumpedOn:       data.CreatedOn,
		DeletePassword: data.DeletePassword,
		Replies:        []Reply{},
	}
}

// Bump moves BumpedOn forward to ts. It never moves it back.
func (t *Thread) Bump(ts time.Time) {
	if ts.After(t.BumpedOn) {
		t.BumpedOn = ts
	}
}

func (t *Thread) FindReply(id ReplyId) (*Reply, bool) {
	for i := range t.Replies {
		if t.Replies[i].Id == id {
			return &t.Replies[i], true
		}
	}
	return nil, false
}

// LatestReplies returns a copy of t holding only its n newest replies, still in
// insertion order. ReplyCount keeps the total.
func (t Thread) LatestReplies(n int) Thread {
	total := max(t.ReplyCount, len(t.Replies))

	idx := make([]int, len(t.Replies))
	for i := range idx {
		idx[i] = len(idx) - 1 - i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return t.Replies[idx[a]].CreatedOn.After(t.Replies[idx[b]].CreatedOn)
	})
	if n < 0 {
		n = 0
	}
	if len(idx) > n {
		idx = idx[:n]
	}
	sort.Ints(idx)

	replies := make([]Reply, len(idx))
	for i, j := range idx {
		replies[i] = t.Replies[j]
	}
	t.Replies = replies
	t.ReplyCount = total
	return t
}
