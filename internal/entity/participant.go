package entity

type Participant struct {
	ID       string  `json:"id,omitempty"`
	Username string  `json:"username,omitempty"`
	Side     Side    `json:"role"`
	Ready    bool    `json:"ready"`
	Rating   *Rating `json:"rating,omitempty"`
}
