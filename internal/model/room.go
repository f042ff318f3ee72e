package model

// Rooms is the closed set of bookable rooms. The identifiers are fixed;
// there is no rooms table and no way to add rooms at runtime.
var Rooms = []string{
	"Sala1", "Sala2", "Sala3", "Sala4", "Sala5",
	"Sala6", "Sala7", "Sala8", "Sala9", "Sala10",
}

// ValidRoom reports whether the given identifier names one of the fixed rooms.
func ValidRoom(room string) bool {
	for _, r := range Rooms {
		if r == room {
			return true
		}
	}
	return false
}
