package tafl

// Rules toggles the individual movement, capture and win rules.
type Rules struct {
	CantMoveOver          bool
	KingOnlyRestricted    bool
	Sandwich              bool
	Shieldwall            bool
	ArmedKing             bool
	TakeAgainstRestricted bool
	KingCornerRetreat     bool
	KingSurrounded        bool
	EdgeFortEscape        bool
	DefendersSurrounded   bool
	EndOnRepetition       bool
}

// DefaultRules is the rule set games are played with unless configured otherwise.
func DefaultRules() Rules {
	return Rules{
		CantMoveOver:          true,
		KingOnlyRestricted:    false,
		Sandwich:              true,
		Shieldwall:            true,
		ArmedKing:             true,
		TakeAgainstRestricted: true,
		KingCornerRetreat:     true,
		KingSurrounded:        true,
		EdgeFortEscape:        true,
		DefendersSurrounded:   true,
		EndOnRepetition:       false,
	}
}
