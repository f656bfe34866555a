package services

import (
	"fmt"
	"time"
	"uptree/internal/db"
	"uptree/internal/models"
	"uptree/internal/tree"
	"uptree/internal/utils"
)

const statsCacheTTL = 60 * time.Second

// DownlineStats is the dashboard summary for one client's organization.
type DownlineStats struct {
	UserID    uint                   `json:"user_id"`
	Total     int                    `json:"total"`
	Direct    int                    `json:"direct"`
	MaxDepth  int                    `json:"max_depth"`
	ByPackage map[models.Package]int `json:"by_package"`
}

// GetDownlineStats computes the downline summary for a user, cached for a
// minute. Staleness is acceptable: the tree only ever grows.
func GetDownlineStats(t *tree.Service, userID uint) (*DownlineStats, error) {
	cacheKey := fmt.Sprintf("downline_stats:%d", userID)
	if cached := utils.GetCache().Get(cacheKey); cached != nil {
		if stats, ok := cached.(*DownlineStats); ok {
			return stats, nil
		}
	}

	nodes, err := t.Downline(userID)
	if err != nil {
		return nil, err
	}
	children, err := t.DirectChildren(userID)
	if err != nil {
		return nil, err
	}

	stats := &DownlineStats{
		UserID:    userID,
		Total:     len(nodes),
		Direct:    len(children),
		MaxDepth:  maxDepth(userID, nodes),
		ByPackage: make(map[models.Package]int),
	}

	if len(nodes) > 0 {
		ids := make([]uint, 0, len(nodes))
		for _, n := range nodes {
			ids = append(ids, n.ID)
		}
		var users []models.User
		if err := db.DB.Select("id", "package").Where("id IN ?", ids).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			if u.Package != "" {
				stats.ByPackage[u.Package]++
			}
		}
	}

	utils.GetCache().Set(cacheKey, stats, statsCacheTTL)
	return stats, nil
}

// maxDepth measures the deepest descendant relative to the root node by
// chasing parent links through the downline set.
func maxDepth(rootID uint, nodes []tree.Node) int {
	depth := map[uint]int{rootID: 0}
	// Downline is pre-order, so a parent's depth is always known before
	// its children are visited.
	max := 0
	for _, n := range nodes {
		if n.ParentID == nil {
			continue
		}
		d := depth[*n.ParentID] + 1
		depth[n.ID] = d
		if d > max {
			max = d
		}
	}
	return max
}
