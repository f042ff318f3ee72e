package schedule

// Interval is an occupied time range within a single room and day, as
// reported by the reservation store.
type Interval struct {
	Start string // "HH:MM"
	End   string // "HH:MM"
}

// Grid returns the start times of every bookable 30-minute slot, from
// 09:00 up to but not including 18:00 (18 slots), in ascending order.
func Grid() []string {
	slots := make([]string, 0, SlotsPerDay)
	for m := OpenMinute; m < CloseMinute; m += SlotMinutes {
		slots = append(slots, FormatClock(m))
	}
	return slots
}

// FreeSlots subtracts the occupied intervals from the daily grid and
// returns the remaining slot start times in ascending order. A grid slot
// t is occupied when some interval satisfies start <= t < end. The
// function is read-only and idempotent: the same inputs always produce
// the same output.
func FreeSlots(busy []Interval) []string {
	free := make([]string, 0, SlotsPerDay)
	for _, slot := range Grid() {
		occupied := false
		for _, b := range busy {
			if b.Start <= slot && slot < b.End {
				occupied = true
				break
			}
		}
		if !occupied {
			free = append(free, slot)
		}
	}
	return free
}
