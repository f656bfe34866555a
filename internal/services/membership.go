package services

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"uptree/internal/db"
	"uptree/internal/models"
	"uptree/internal/tree"
	"uptree/internal/utils"

	"gorm.io/gorm"
)

var (
	ErrUsernameTaken = errors.New("membership: username already taken")
	ErrNoAnchor      = errors.New("membership: no admin anchor exists")
	ErrUnknownPlan   = errors.New("membership: plan not found")
)

// MembershipService is the create-and-place boundary: it creates the
// account record and fixes its tree slot as one unit. A placement failure
// rolls the account back, so a client either fully exists in the tree or
// not at all.
type MembershipService struct {
	tree *tree.Service
}

var (
	membershipInstance *MembershipService
	membershipOnce     sync.Once
)

// GetMembershipService returns the singleton wired to the database store.
func GetMembershipService() *MembershipService {
	membershipOnce.Do(func() {
		membershipInstance = &MembershipService{
			tree: tree.NewService(db.NewTreeStore(db.DB)),
		}
	})
	return membershipInstance
}

// NewMembershipService builds a service on an explicit engine (tests).
func NewMembershipService(t *tree.Service) *MembershipService {
	return &MembershipService{tree: t}
}

// Tree exposes the placement engine for read-side handlers.
func (s *MembershipService) Tree() *tree.Service {
	return s.tree
}

type CreateClientInput struct {
	Username string
	Password string
	FullName string
	Package  models.Package
	PlanID   *uint
	ParentID uint           // requested sponsor
	Position *tree.Position // optional explicit slot
}

// CreateClient creates a client account and places it in the tree. The
// returned placement is the slot actually assigned, which can differ from
// the request when the sponsor is full (spillover).
func (s *MembershipService) CreateClient(in CreateClientInput) (*models.User, tree.Placement, error) {
	if !in.Package.Valid() {
		return nil, tree.Placement{}, fmt.Errorf("membership: invalid package %q", in.Package)
	}
	if in.PlanID != nil {
		var count int64
		db.DB.Model(&models.Plan{}).Where("id = ?", *in.PlanID).Count(&count)
		if count == 0 {
			return nil, tree.Placement{}, ErrUnknownPlan
		}
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, tree.Placement{}, err
	}

	user := models.User{
		Username:     in.Username,
		Password:     hash,
		FullName:     in.FullName,
		Role:         models.RoleClient,
		Package:      in.Package,
		PlanID:       in.PlanID,
		ReferralCode: utils.GenerateReferralCode(),
	}
	if err := db.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, tree.Placement{}, ErrUsernameTaken
		}
		return nil, tree.Placement{}, err
	}

	anchor, err := s.AnchorID()
	if err != nil {
		db.DB.Delete(&models.User{}, user.ID)
		return nil, tree.Placement{}, err
	}

	placement, err := s.tree.Place(user.ID, in.ParentID, in.Position, &anchor)
	if err != nil {
		// No partial success: the account goes away with the failed
		// placement.
		db.DB.Delete(&models.User{}, user.ID)
		return nil, tree.Placement{}, err
	}

	pos := string(placement.Position)
	user.ParentID = &placement.ParentID
	user.Position = &pos

	s.notifyUpline(&user, placement)

	return &user, placement, nil
}

// CreateAdmin creates an administrator account. Admins are not tree
// members: no parent, no position, never a fallback candidate.
func (s *MembershipService) CreateAdmin(username, password, fullName string) (*models.User, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		Username:     username,
		Password:     hash,
		FullName:     fullName,
		Role:         models.RoleAdmin,
		ReferralCode: utils.GenerateReferralCode(),
	}
	if err := db.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return &user, nil
}

// AnchorID returns the earliest administrator id, the root every spillover
// ultimately falls back to.
func (s *MembershipService) AnchorID() (uint, error) {
	var admin models.User
	err := db.DB.Where("role = ?", models.RoleAdmin).Order("id ASC").First(&admin).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNoAnchor
		}
		return 0, err
	}
	return admin.ID, nil
}

func (s *MembershipService) notifyUpline(joined *models.User, placement tree.Placement) {
	notification := models.Notification{
		UserID:  placement.ParentID,
		ActorID: &joined.ID,
		Type:    models.NotificationTypeDownlineJoined,
		Reason:  fmt.Sprintf("%s joined your downline on the %s side.", joined.Username, placement.Position),
	}
	if err := db.DB.Create(&notification).Error; err != nil {
		log.Printf("Failed to create downline notification: %v", err)
	}
}
