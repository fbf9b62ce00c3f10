package notifications

// Merge inserts n into list. An entry with the same id is replaced in place;
// otherwise n is prepended. It reports whether an entry was replaced.
func Merge(list []Notification, n Notification) ([]Notification, bool) {
	for i := range list {
		if list[i].ID == n.ID {
			list[i] = n
			return list, true
		}
	}
	out := make([]Notification, 0, len(list)+1)
	out = append(out, n)
	return append(out, list...), false
}
