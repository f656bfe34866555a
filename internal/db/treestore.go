package db

import (
	"errors"
	"uptree/internal/models"
	"uptree/internal/tree"

	"gorm.io/gorm"
)

// TreeStore adapts the users table to the placement engine's Store
// interface. Ascending id is creation order for serial keys, which is the
// candidate order the engine documents.
type TreeStore struct {
	db *gorm.DB
}

func NewTreeStore(g *gorm.DB) *TreeStore {
	return &TreeStore{db: g}
}

func (s *TreeStore) Exists(id uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (s *TreeStore) ChildrenOf(parentID uint) ([]tree.Node, error) {
	var users []models.User
	if err := s.db.Where("parent_id = ?", parentID).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	nodes := make([]tree.Node, 0, len(users))
	for _, u := range users {
		nodes = append(nodes, userNode(u))
	}
	return nodes, nil
}

func (s *TreeStore) CandidateIDs() ([]uint, error) {
	var ids []uint
	err := s.db.Model(&models.User{}).
		Where("role = ? AND parent_id IS NOT NULL", models.RoleClient).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (s *TreeStore) Attach(id uint, parentID uint, pos tree.Position) error {
	p := string(pos)
	res := s.db.Model(&models.User{}).
		Where("id = ? AND parent_id IS NULL", id).
		Updates(map[string]interface{}{"parent_id": parentID, "position": p})
	if res.Error != nil {
		// The (parent_id, position) unique index rejects a slot another
		// process grabbed between our check and this write.
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return tree.ErrSlotTaken
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Row gone or already attached; either way this placement lost.
		return tree.ErrSlotTaken
	}
	return nil
}

func userNode(u models.User) tree.Node {
	n := tree.Node{ID: u.ID, ParentID: u.ParentID}
	if u.Position != nil {
		p := tree.Position(*u.Position)
		n.Position = &p
	}
	return n
}
