package domain

import "sort"

// SortPending orders oldest-created first.
func SortPending(msgs []*Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		a, b := msgs[i], msgs[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// SortDelivered orders most-recently-delivered first.
func SortDelivered(msgs []*Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		a, b := msgs[i], msgs[j]
		ta, tb := deliveredTime(a), deliveredTime(b)
		if ta != tb {
			return ta > tb
		}
		return a.ID > b.ID
	})
}

// SortNewest orders newest-created first.
func SortNewest(msgs []*Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		a, b := msgs[i], msgs[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

func deliveredTime(m *Message) int64 {
	if m.DeliveredAt == nil {
		return 0
	}
	return m.DeliveredAt.UnixNano()
}
