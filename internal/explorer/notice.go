package explorer

// NoticeKind classifies a user-visible message.
type NoticeKind string

const (
	NoticeNetwork   NoticeKind = "network"
	NoticeEmpty     NoticeKind = "empty"
	NoticeMalformed NoticeKind = "malformed"
)

// Notice is a dismissable message shown to the user.
type Notice struct {
	ID      uint64     `json:"id"`
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// maxNotices bounds the backlog; the oldest notice is dropped first.
const maxNotices = 20

type notices struct {
	seq   uint64
	items []Notice
}

func (n *notices) add(kind NoticeKind, msg string) Notice {
	n.seq++
	note := Notice{ID: n.seq, Kind: kind, Message: msg}
	n.items = append(n.items, note)
	if len(n.items) > maxNotices {
		n.items = n.items[len(n.items)-maxNotices:]
	}
	return note
}

func (n *notices) dismiss(id uint64) bool {
	for i, note := range n.items {
		if note.ID == id {
			n.items = append(n.items[:i], n.items[i+1:]...)
			return true
		}
	}
	return false
}

func (n *notices) list() []Notice {
	out := make([]Notice, len(n.items))
	copy(out, n.items)
	return out
}
