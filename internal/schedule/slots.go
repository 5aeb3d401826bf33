package schedule

// The clinic operates on a fixed half-hour grid, every day: 08:00-11:30 in
// the morning and 13:30-17:00 in the afternoon, with the 11:30-13:30 lunch
// gap excluded. Appointments may only start on one of these times.
var dailySlots = []string{
	"08:00", "08:30", "09:00", "09:30", "10:00", "10:30",
	"11:00", "11:30", "13:30", "14:00", "14:30", "15:00",
	"15:30", "16:00", "16:30", "17:00",
}

var slotSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(dailySlots))
	for _, s := range dailySlots {
		m[s] = struct{}{}
	}
	return m
}()

// DailySlots returns the full opening grid in chronological order.
func DailySlots() []string {
	out := make([]string, len(dailySlots))
	copy(out, dailySlots)
	return out
}

// IsClinicSlot reports whether s is a member of the opening grid.
func IsClinicSlot(s string) bool {
	_, ok := slotSet[s]
	return ok
}
