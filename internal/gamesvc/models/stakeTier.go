package models

type StakeTier struct {
	Amount int    `json:"amount"` // coins wagered by each player
	Label  string `json:"label"`
}

var StakeTiers = []StakeTier{
	{Amount: 10, Label: "Casual"},
	{Amount: 50, Label: "Competitive"},
	{Amount: 100, Label: "High Stakes"},
}

func ValidStake(amount int) bool {
	for _, t := range StakeTiers {
		if t.Amount == amount {
			return true
		}
	}
	return false
}
