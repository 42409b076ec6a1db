package tools

import "fmt"

// FoodEstimate 按人口估算的食物需求
type FoodEstimate struct {
	People  int `json:"people"`
	Apples  int `json:"apples"`
	Bananas int `json:"bananas"`
	Oranges int `json:"oranges"`
}

func (e FoodEstimate) String() string {
	return fmt.Sprintf("%d apples, %d bananas, and %d oranges are needed for %d people.",
		e.Apples, e.Bananas, e.Oranges, e.People)
}

// EstimateFoodNeeds 每人 3 个苹果、2 根香蕉、1 个橙子
func EstimateFoodNeeds(people int) FoodEstimate {
	return FoodEstimate{
		People:  people,
		Apples:  people * 3,
		Bananas: people * 2,
		Oranges: people,
	}
}

// DispatchEstimate 按受灾人数估算的救援力量
type DispatchEstimate struct {
	Affected      int `json:"affected"`
	Helicopters   int `json:"helicopters"`
	Police        int `json:"police"`
	SpecialForces int `json:"special_forces"`
}

func (e DispatchEstimate) String() string {
	return fmt.Sprintf("%d helicopters dispatched, %d police dispatched and %d special forces",
		e.Helicopters, e.Police, e.SpecialForces)
}

// EstimateDispatch 每 100 人一架直升机，每 50 人一名警察，每 200 人一名特种兵，向下取整
func EstimateDispatch(affected int) DispatchEstimate {
	return DispatchEstimate{
		Affected:      affected,
		Helicopters:   affected / 100,
		Police:        affected / 50,
		SpecialForces: affected / 200,
	}
}
