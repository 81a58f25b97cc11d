package models

// Child represents one child attached to the logged-in guardian's account.
type Child struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Institution string `json:"institution"`
}

// ChildInfo is the flattened entry returned by FetchBasicData, keyed by child id.
type ChildInfo struct {
	Name        string `json:"name"`
	Institution string `json:"institution"`
}

// DailyOverview maps a child id to its presence record for today.
// A nil value means the portal reported no presence data for that child.
type DailyOverview map[int]map[string]interface{}
