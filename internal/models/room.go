package models

type Room struct {
	RoomCode      string            `json:"room_code"`
	RoomName      string            `json:"room_name"`
	RoomNames     map[string]string `json:"room_names,omitempty"`
	RoomType      string            `json:"room_type,omitempty"`
	Department    string            `json:"department,omitempty"`
	IsActive      bool              `json:"is_active"`
	DisplayOrder  int               `json:"display_order"`
	StaffAssigned string            `json:"staff_assigned,omitempty"`
}

// LocalizedName returns the room name for the given language, falling back
// to the default name and finally the room code.
func (r Room) LocalizedName(language string) string {
	if name, ok := r.RoomNames[language]; ok && name != "" {
		return name
	}
	if r.RoomName != "" {
		return r.RoomName
	}
	return r.RoomCode
}
