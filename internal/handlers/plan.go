package handlers

import (
	"net/http"
	"uptree/internal/db"
	"uptree/internal/models"

	"github.com/gin-gonic/gin"
)

type PlanHandler struct{}

func NewPlanHandler() *PlanHandler {
	return &PlanHandler{}
}

func (h *PlanHandler) List(c *gin.Context) {
	var plans []models.Plan
	if err := db.DB.Order("price_cents ASC").Find(&plans).Error; err != nil {
		Fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func (h *PlanHandler) Get(c *gin.Context) {
	var plan models.Plan
	if err := db.DB.First(&plan, c.Param("id")).Error; err != nil {
		Fail(c, http.StatusNotFound, "plan not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

type planRequest struct {
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
	PriceCents    int    `json:"price_cents"`
	ReferralBonus int    `json:"referral_bonus"`
	PairBonus     int    `json:"pair_bonus"`
}

func (h *PlanHandler) Create(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "name is required")
		return
	}

	plan := models.Plan{
		Name:          req.Name,
		Description:   req.Description,
		PriceCents:    req.PriceCents,
		ReferralBonus: req.ReferralBonus,
		PairBonus:     req.PairBonus,
	}
	if err := db.DB.Create(&plan).Error; err != nil {
		Fail(c, http.StatusConflict, "plan name already exists")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"plan": plan})
}

func (h *PlanHandler) Update(c *gin.Context) {
	var plan models.Plan
	if err := db.DB.First(&plan, c.Param("id")).Error; err != nil {
		Fail(c, http.StatusNotFound, "plan not found")
		return
	}

	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "name is required")
		return
	}

	plan.Name = req.Name
	plan.Description = req.Description
	plan.PriceCents = req.PriceCents
	plan.ReferralBonus = req.ReferralBonus
	plan.PairBonus = req.PairBonus
	if err := db.DB.Save(&plan).Error; err != nil {
		Fail(c, http.StatusConflict, "plan name already exists")
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

func (h *PlanHandler) Delete(c *gin.Context) {
	var plan models.Plan
	if err := db.DB.First(&plan, c.Param("id")).Error; err != nil {
		Fail(c, http.StatusNotFound, "plan not found")
		return
	}

	var assigned int64
	db.DB.Model(&models.User{}).Where("plan_id = ?", plan.ID).Count(&assigned)
	if assigned > 0 {
		Fail(c, http.StatusConflict, "plan is assigned to clients")
		return
	}

	db.DB.Delete(&plan)
	c.Status(http.StatusNoContent)
}
