// ABOUTME: Day-based grouping of the message list for display
// ABOUTME: Groups preserve chronological order and first-seen day order

package conversation

// DayGroup is one calendar day's slice of the conversation. Day is the
// local date in YYYY-MM-DD form.
type DayGroup struct {
	Day      string
	Messages []Message
}

// GroupedByDay partitions the conversation by calendar day, computed on
// demand from the current list. Messages keep their list order within
// each day, and days appear in the order their first message appears in
// the list. Every message lands in exactly one group.
func (s *Service) GroupedByDay() []DayGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var groups []DayGroup
	index := make(map[string]int) // day -> position in groups

	for _, m := range s.messages {
		day := m.Timestamp.Format("2006-01-02")
		i, ok := index[day]
		if !ok {
			i = len(groups)
			index[day] = i
			groups = append(groups, DayGroup{Day: day})
		}
		groups[i].Messages = append(groups[i].Messages, *m)
	}

	return groups
}
