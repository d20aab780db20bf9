package models

type PollOption struct {
	ID    int    `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// PollState is the poll as seen by one user
type PollState struct {
	Options          []PollOption `json:"options"`
	SelectedOptionID *int         `json:"user_selected_option_id"`
}

// Clone returns a deep copy of the state.
func (s PollState) Clone() PollState {
	out := PollState{Options: make([]PollOption, len(s.Options))}
	copy(out.Options, s.Options)
	if s.SelectedOptionID != nil {
		id := *s.SelectedOptionID
		out.SelectedOptionID = &id
	}
	return out
}

// Option returns the index of the option with the given id, or -1.
func (s PollState) Option(id int) int {
	for i, o := range s.Options {
		if o.ID == id {
			return i
		}
	}
	return -1
}
