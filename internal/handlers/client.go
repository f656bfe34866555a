package handlers

import (
	"net/http"
	"uptree/internal/db"
	"uptree/internal/models"
	"uptree/internal/services"
	"uptree/internal/tree"
	"uptree/internal/utils"

	"github.com/gin-gonic/gin"
)

type ClientHandler struct {
	membership *services.MembershipService
}

func NewClientHandler() *ClientHandler {
	return &ClientHandler{membership: services.GetMembershipService()}
}

type createClientRequest struct {
	Username string         `json:"username" binding:"required"`
	Password string         `json:"password" binding:"required"`
	FullName string         `json:"full_name"`
	Role     string         `json:"role"` // defaults to client
	Package  models.Package `json:"package"`
	PlanID   *uint          `json:"plan_id"`
	ParentID *uint          `json:"parent_id"`
	Position *string        `json:"position"` // left, right; omit to auto-assign
}

// Create registers a new account. With a parent_id the account is a client
// and gets slotted into the tree (spilling over if the sponsor is full);
// without one it is an administrator and stays outside the tree.
func (h *ClientHandler) Create(c *gin.Context) {
	var req createClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "username and password are required")
		return
	}
	if len(req.Password) < 6 {
		Fail(c, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	if req.ParentID == nil || req.Role == models.RoleAdmin {
		if req.ParentID != nil {
			Fail(c, http.StatusBadRequest, "admin accounts cannot have a parent")
			return
		}
		user, err := h.membership.CreateAdmin(req.Username, req.Password, req.FullName)
		if err != nil {
			FailPlacement(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"user": user})
		return
	}

	var pos *tree.Position
	if req.Position != nil {
		p, err := tree.ParsePosition(*req.Position)
		if err != nil {
			Fail(c, http.StatusBadRequest, "position must be left or right")
			return
		}
		pos = &p
	}

	if req.Package == "" {
		req.Package = models.PackageSilver
	}

	user, placement, err := h.membership.CreateClient(services.CreateClientInput{
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
		Package:  req.Package,
		PlanID:   req.PlanID,
		ParentID: *req.ParentID,
		Position: pos,
	})
	if err != nil {
		FailPlacement(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user, "placement": placement})
}

// List returns all accounts, admins first is not guaranteed; creation order.
func (h *ClientHandler) List(c *gin.Context) {
	var users []models.User
	q := db.DB.Order("id ASC")
	if role := c.Query("role"); role != "" {
		q = q.Where("role = ?", role)
	}
	if err := q.Find(&users).Error; err != nil {
		Fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *ClientHandler) Get(c *gin.Context) {
	user, ok := h.requireViewable(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Slots returns the open positions under an account, left before right.
func (h *ClientHandler) Slots(c *gin.Context) {
	user, ok := h.requireViewable(c)
	if !ok {
		return
	}
	slots, err := h.membership.Tree().AvailableSlots(user.ID)
	if err != nil {
		FailPlacement(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"parent_id": user.ID, "available": slots})
}

// Children returns the direct children, creation order.
func (h *ClientHandler) Children(c *gin.Context) {
	user, ok := h.requireViewable(c)
	if !ok {
		return
	}
	nodes, err := h.membership.Tree().DirectChildren(user.ID)
	if err != nil {
		FailPlacement(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"children": h.withAccounts(nodes)})
}

// Downline returns the full subtree as a flat pre-order list.
func (h *ClientHandler) Downline(c *gin.Context) {
	user, ok := h.requireViewable(c)
	if !ok {
		return
	}
	nodes, err := h.membership.Tree().Downline(user.ID)
	if err != nil {
		FailPlacement(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"downline": h.withAccounts(nodes)})
}

// treeNode is the nested payload the dashboard renders the genealogy from.
type treeNode struct {
	ID       uint           `json:"id"`
	Username string         `json:"username"`
	FullName string         `json:"full_name"`
	Package  models.Package `json:"package"`
	Position *string        `json:"position"`
	Children []*treeNode    `json:"children"`
}

// Tree returns the subtree rooted at the account as nested JSON.
func (h *ClientHandler) Tree(c *gin.Context) {
	user, ok := h.requireViewable(c)
	if !ok {
		return
	}
	nodes, err := h.membership.Tree().Downline(user.ID)
	if err != nil {
		FailPlacement(c, err)
		return
	}

	accounts := h.accountsByID(nodes)
	root := &treeNode{ID: user.ID, Username: user.Username, FullName: user.FullName, Package: user.Package, Position: user.Position}
	byID := map[uint]*treeNode{user.ID: root}
	// Pre-order guarantees every parent precedes its children.
	for _, n := range nodes {
		tn := &treeNode{ID: n.ID}
		if acc, ok := accounts[n.ID]; ok {
			tn.Username = acc.Username
			tn.FullName = acc.FullName
			tn.Package = acc.Package
		}
		if n.Position != nil {
			p := string(*n.Position)
			tn.Position = &p
		}
		byID[n.ID] = tn
		if n.ParentID != nil {
			if parent, ok := byID[*n.ParentID]; ok {
				parent.Children = append(parent.Children, tn)
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"tree": root})
}

// Stats returns the cached downline summary.
func (h *ClientHandler) Stats(c *gin.Context) {
	user, ok := h.requireViewable(c)
	if !ok {
		return
	}
	stats, err := services.GetDownlineStats(h.membership.Tree(), user.ID)
	if err != nil {
		FailPlacement(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// requireViewable resolves :id and enforces that clients only read their
// own record while admins read anyone's.
func (h *ClientHandler) requireViewable(c *gin.Context) (*models.User, bool) {
	current := CurrentUser(c)
	id := utils.StringToUint(c.Param("id"))

	if current.Role != models.RoleAdmin && current.ID != id {
		Fail(c, http.StatusForbidden, "not your account")
		return nil, false
	}

	var user models.User
	if err := db.DB.First(&user, id).Error; err != nil {
		Fail(c, http.StatusNotFound, "account not found")
		return nil, false
	}
	return &user, true
}

// nodeView pairs tree linkage with the account fields the UI lists.
type nodeView struct {
	ID       uint           `json:"id"`
	ParentID *uint          `json:"parent_id"`
	Position *tree.Position `json:"position"`
	Username string         `json:"username"`
	FullName string         `json:"full_name"`
	Package  models.Package `json:"package"`
}

func (h *ClientHandler) withAccounts(nodes []tree.Node) []nodeView {
	accounts := h.accountsByID(nodes)
	out := make([]nodeView, 0, len(nodes))
	for _, n := range nodes {
		v := nodeView{ID: n.ID, ParentID: n.ParentID, Position: n.Position}
		if acc, ok := accounts[n.ID]; ok {
			v.Username = acc.Username
			v.FullName = acc.FullName
			v.Package = acc.Package
		}
		out = append(out, v)
	}
	return out
}

func (h *ClientHandler) accountsByID(nodes []tree.Node) map[uint]models.User {
	accounts := make(map[uint]models.User, len(nodes))
	if len(nodes) == 0 {
		return accounts
	}
	ids := make([]uint, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	var users []models.User
	db.DB.Where("id IN ?", ids).Find(&users)
	for _, u := range users {
		accounts[u.ID] = u
	}
	return accounts
}
